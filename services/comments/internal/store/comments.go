package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/example/comment-tree/services/comments/internal/pathcodec"
)

// CommentType tells whether a comment hangs off a resource or another comment.
type CommentType string

const (
	CommentTypeRoot   CommentType = "Root"
	CommentTypeBranch CommentType = "Branch"
)

// Commenter is a snapshot of the author at posting time.
type Commenter struct {
	AccountID string `json:"account_id" bson:"account_id"`
	Username  string `json:"username" bson:"username"`
}

// CommentReactor is a snapshot of the account that reacted.
type CommentReactor struct {
	AccountID string `json:"account_id" bson:"account_id"`
	Username  string `json:"username" bson:"username"`
}

// CommentReaction is one emoji reaction. Two reactions are the same reaction
// when every field is equal.
type CommentReaction struct {
	Reactor          CommentReactor `json:"reactor" bson:"reactor"`
	EmojiUnifiedCode string         `json:"emoji_unified_code" bson:"emoji_unified_code"`
}

// Comment is a single node of a thread.
type Comment struct {
	CommentID          string            `json:"comment_id" bson:"comment_id"`
	CommentType        CommentType       `json:"comment_type" bson:"comment_type"`
	Commenter          Commenter         `json:"commenter" bson:"commenter"`
	CommentedTimestamp time.Time         `json:"commented_timestamp" bson:"commented_timestamp"`
	CommentText        string            `json:"comment_text" bson:"comment_text"`
	Reactions          []CommentReaction `json:"reactions" bson:"reactions"`
	// BranchCommentIDs is reserved: always empty, never read.
	BranchCommentIDs []string `json:"branch_comment_ids" bson:"branch_comment_ids"`
	MaterializedPath string   `json:"materialized_path" bson:"materialized_path"`
}

// CommentStore defines the contract for comment persistence.
//
// Paths passed to the query and prune methods are materialized paths built
// with pathcodec; a bare resource id is a valid path with no comment segment.
type CommentStore interface {
	Insert(ctx context.Context, c Comment) error
	FindByID(ctx context.Context, commentID string) (Comment, error)
	// AppendReaction returns ErrNoOp when no comment was modified.
	AppendReaction(ctx context.Context, commentID string, r CommentReaction) error
	// RemoveReaction removes the first equal reaction and returns ErrNoOp
	// when nothing was removed.
	RemoveReaction(ctx context.Context, commentID string, r CommentReaction) error
	// ReplaceText logs but does not fail when no comment matched.
	ReplaceText(ctx context.Context, commentID, text string) error
	// PruneSubtree deletes the node at path and all of its descendants. It
	// logs but does not fail when nothing was deleted.
	PruneSubtree(ctx context.Context, path string) error
	// FindChildren returns comments exactly one level below parentPath,
	// newest first.
	FindChildren(ctx context.Context, parentPath string) ([]Comment, error)
	// FindSubtree returns the node at rootPath and all of its descendants,
	// shallowest first and newest first within a depth.
	FindSubtree(ctx context.Context, rootPath string) ([]Comment, error)
	Ping(ctx context.Context) error
}

// Sentinel errors
var (
	ErrNotFound    = errors.New("comment not found")
	ErrNoOp        = errors.New("no comment modified")
	ErrUnavailable = errors.New("comment store unavailable")
)

const collectionName = "comments"

func normalize(c Comment) Comment {
	if c.Reactions == nil {
		c.Reactions = []CommentReaction{}
	}
	if c.BranchCommentIDs == nil {
		c.BranchCommentIDs = []string{}
	}
	return c
}

func newestFirst(cs []Comment) {
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].CommentedTimestamp.After(cs[j].CommentedTimestamp)
	})
}

func shallowestThenNewest(cs []Comment) {
	sort.SliceStable(cs, func(i, j int) bool {
		di, dj := pathcodec.Segments(cs[i].MaterializedPath), pathcodec.Segments(cs[j].MaterializedPath)
		if di != dj {
			return di < dj
		}
		return cs[i].CommentedTimestamp.After(cs[j].CommentedTimestamp)
	})
}
