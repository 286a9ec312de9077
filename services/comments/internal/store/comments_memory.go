package store

import (
	"context"
	"regexp"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/example/comment-tree/services/comments/internal/pathcodec"
)

// InMemoryCommentStore is a development-only in-memory implementation.
// Each method holds the lock for its whole body, so single operations are
// atomic just like the document updates of the database backends.
type InMemoryCommentStore struct {
	mu       sync.RWMutex
	comments map[string]Comment // comment_id -> comment
	log      *zap.Logger
}

func NewInMemoryCommentStore(log *zap.Logger) *InMemoryCommentStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &InMemoryCommentStore{
		comments: make(map[string]Comment),
		log:      log.Named("comments.memory"),
	}
}

func (s *InMemoryCommentStore) Insert(_ context.Context, c Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.comments[c.CommentID] = clone(normalize(c))
	return nil
}

func (s *InMemoryCommentStore) FindByID(_ context.Context, commentID string) (Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[commentID]
	if !ok {
		return Comment{}, ErrNotFound
	}
	return clone(c), nil
}

func (s *InMemoryCommentStore) AppendReaction(_ context.Context, commentID string, r CommentReaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return ErrNoOp
	}
	c.Reactions = append(slices.Clone(c.Reactions), r)
	s.comments[commentID] = c
	return nil
}

func (s *InMemoryCommentStore) RemoveReaction(_ context.Context, commentID string, r CommentReaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return ErrNoOp
	}
	idx := slices.Index(c.Reactions, r)
	if idx < 0 {
		return ErrNoOp
	}
	c.Reactions = slices.Delete(slices.Clone(c.Reactions), idx, idx+1)
	s.comments[commentID] = c
	return nil
}

func (s *InMemoryCommentStore) ReplaceText(_ context.Context, commentID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok || c.CommentText == text {
		s.log.Info("no comment documents updated", zap.String("comment_id", commentID))
		return nil
	}
	c.CommentText = text
	s.comments[commentID] = c
	return nil
}

func (s *InMemoryCommentStore) PruneSubtree(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, c := range s.comments {
		if pathcodec.IsDescendantOrSelf(c.MaterializedPath, path) {
			delete(s.comments, id)
			deleted++
		}
	}
	if deleted == 0 {
		s.log.Info("no comment documents deleted", zap.String("path", path))
	}
	return nil
}

func (s *InMemoryCommentStore) FindChildren(_ context.Context, parentPath string) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	re := regexp.MustCompile(pathcodec.ChildPattern(parentPath))
	out := []Comment{}
	for _, c := range s.comments {
		if re.MatchString(c.MaterializedPath) {
			out = append(out, clone(c))
		}
	}
	newestFirst(out)
	return out, nil
}

func (s *InMemoryCommentStore) FindSubtree(_ context.Context, rootPath string) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Comment{}
	for _, c := range s.comments {
		if pathcodec.IsDescendantOrSelf(c.MaterializedPath, rootPath) {
			out = append(out, clone(c))
		}
	}
	shallowestThenNewest(out)
	return out, nil
}

func (s *InMemoryCommentStore) Ping(context.Context) error { return nil }

// Len reports how many comments are stored.
func (s *InMemoryCommentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.comments)
}

func clone(c Comment) Comment {
	c.Reactions = slices.Clone(c.Reactions)
	c.BranchCommentIDs = slices.Clone(c.BranchCommentIDs)
	return c
}
