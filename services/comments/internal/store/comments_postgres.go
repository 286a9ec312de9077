package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/example/comment-tree/services/comments/internal/pathcodec"
)

// PostgresCommentStore persists comments in Postgres. Reactions live in a
// jsonb array so that each reaction change is a single-row UPDATE.
type PostgresCommentStore struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// NewPostgresCommentStore creates a store backed by Postgres.
func NewPostgresCommentStore(pool *pgxpool.Pool, log *zap.Logger) *PostgresCommentStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &PostgresCommentStore{pool: pool, log: log.Named("comments.postgres")}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS comments (
		comment_id           text PRIMARY KEY,
		comment_type         text NOT NULL,
		commenter_account_id text NOT NULL,
		commenter_username   text NOT NULL,
		commented_timestamp  timestamptz NOT NULL,
		comment_text         text NOT NULL,
		reactions            jsonb NOT NULL DEFAULT '[]'::jsonb,
		branch_comment_ids   jsonb NOT NULL DEFAULT '[]'::jsonb,
		materialized_path    text NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS comments_materialized_path_idx
		ON comments (materialized_path text_pattern_ops)`,
}

// EnsureSchema creates the comments table and its path index.
func (s *PostgresCommentStore) EnsureSchema(ctx context.Context) error {
	for _, q := range schema {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("ensure comments schema: %w", err)
		}
	}
	return nil
}

const selectColumns = `SELECT comment_id, comment_type, commenter_account_id, commenter_username,
	       commented_timestamp, comment_text, reactions, branch_comment_ids, materialized_path
	FROM comments`

// prefixWhere matches the node at $1 and everything below it.
const prefixWhere = `(materialized_path = $1 OR starts_with(materialized_path, $1 || '` + pathcodec.Separator + `'))`

const subtreeQuery = selectColumns + `
	WHERE ` + prefixWhere + `
	ORDER BY array_length(string_to_array(materialized_path, '` + pathcodec.Separator + `'), 1) ASC,
	         commented_timestamp DESC`

func (s *PostgresCommentStore) Insert(ctx context.Context, c Comment) error {
	c = normalize(c)
	reactions, err := json.Marshal(c.Reactions)
	if err != nil {
		return err
	}
	branches, err := json.Marshal(c.BranchCommentIDs)
	if err != nil {
		return err
	}
	const q = `INSERT INTO comments (comment_id, comment_type, commenter_account_id, commenter_username,
	                                 commented_timestamp, comment_text, reactions, branch_comment_ids, materialized_path)
	           VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9)`
	_, err = s.pool.Exec(ctx, q, c.CommentID, string(c.CommentType), c.Commenter.AccountID, c.Commenter.Username,
		c.CommentedTimestamp, c.CommentText, string(reactions), string(branches), c.MaterializedPath)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *PostgresCommentStore) FindByID(ctx context.Context, commentID string) (Comment, error) {
	rows, err := s.query(ctx, selectColumns+` WHERE comment_id = $1`, commentID)
	if err != nil {
		return Comment{}, fmt.Errorf("find comment: %w", err)
	}
	if len(rows) == 0 {
		return Comment{}, ErrNotFound
	}
	return rows[0], nil
}

func (s *PostgresCommentStore) AppendReaction(ctx context.Context, commentID string, r CommentReaction) error {
	b, err := json.Marshal([]CommentReaction{r})
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE comments SET reactions = reactions || $2::jsonb WHERE comment_id = $1`,
		commentID, string(b))
	if err != nil {
		return fmt.Errorf("append reaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoOp
	}
	return nil
}

// RemoveReaction deletes the array element at the first ordinal equal to the
// reaction; the EXISTS guard keeps rows without a match untouched.
func (s *PostgresCommentStore) RemoveReaction(ctx context.Context, commentID string, r CommentReaction) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, removeReactionQuery, commentID, string(b))
	if err != nil {
		return fmt.Errorf("remove reaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoOp
	}
	return nil
}

const removeReactionQuery = `UPDATE comments
	           SET reactions = reactions - (
	               SELECT (e.ord - 1)::int
	               FROM jsonb_array_elements(reactions) WITH ORDINALITY AS e(elem, ord)
	               WHERE e.elem = $2::jsonb
	               ORDER BY e.ord
	               LIMIT 1)
	           WHERE comment_id = $1
	             AND EXISTS (SELECT 1 FROM jsonb_array_elements(reactions) AS x(elem) WHERE x.elem = $2::jsonb)`

func (s *PostgresCommentStore) ReplaceText(ctx context.Context, commentID, text string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE comments SET comment_text = $2 WHERE comment_id = $1 AND comment_text IS DISTINCT FROM $2`,
		commentID, text)
	if err != nil {
		return fmt.Errorf("replace comment text: %w", err)
	}
	if tag.RowsAffected() == 0 {
		s.log.Info("no comment documents updated", zap.String("comment_id", commentID))
	}
	return nil
}

func (s *PostgresCommentStore) PruneSubtree(ctx context.Context, path string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM comments WHERE `+prefixWhere, path)
	if err != nil {
		return fmt.Errorf("prune comments: %w", err)
	}
	if tag.RowsAffected() == 0 {
		s.log.Info("no comment documents deleted", zap.String("path", path))
	}
	return nil
}

func (s *PostgresCommentStore) FindChildren(ctx context.Context, parentPath string) ([]Comment, error) {
	q := selectColumns + `
	WHERE materialized_path ~ $1
	ORDER BY commented_timestamp DESC`
	out, err := s.query(ctx, q, pathcodec.ChildPattern(parentPath))
	if err != nil {
		return nil, fmt.Errorf("find child comments: %w", err)
	}
	return out, nil
}

func (s *PostgresCommentStore) FindSubtree(ctx context.Context, rootPath string) ([]Comment, error) {
	out, err := s.query(ctx, subtreeQuery, rootPath)
	if err != nil {
		return nil, fmt.Errorf("find comment subtree: %w", err)
	}
	return out, nil
}

func (s *PostgresCommentStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresCommentStore) query(ctx context.Context, q string, args ...any) ([]Comment, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, scanComment)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Comment{}
	}
	return out, nil
}

func scanComment(row pgx.CollectableRow) (Comment, error) {
	var (
		c        Comment
		typ      string
		reacts   []byte
		branches []byte
	)
	err := row.Scan(&c.CommentID, &typ, &c.Commenter.AccountID, &c.Commenter.Username,
		&c.CommentedTimestamp, &c.CommentText, &reacts, &branches, &c.MaterializedPath)
	if err != nil {
		return Comment{}, err
	}
	c.CommentType = CommentType(typ)
	if err := json.Unmarshal(reacts, &c.Reactions); err != nil {
		return Comment{}, fmt.Errorf("decode reactions: %w", err)
	}
	if err := json.Unmarshal(branches, &c.BranchCommentIDs); err != nil {
		return Comment{}, fmt.Errorf("decode branch ids: %w", err)
	}
	c.CommentedTimestamp = c.CommentedTimestamp.UTC()
	return normalize(c), nil
}
