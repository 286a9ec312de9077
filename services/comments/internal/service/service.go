// Package service implements the comment operations on top of a CommentStore.
// Each operation is one or two store calls; nothing is cached between calls.
//
// Operations that read and then write (CreateBranch, EditText, Delete) are
// not transactional. A branch created while its parent's subtree is being
// pruned can end up orphaned; that gap is accepted.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/comment-tree/internal/platform/events"
	"github.com/example/comment-tree/services/comments/internal/pathcodec"
	"github.com/example/comment-tree/services/comments/internal/store"
)

// ErrNotFound is the client-error class: the referenced comment does not
// exist. Every other error returned by Service is a server error.
var ErrNotFound = errors.New("comment not found")

// IsNotFound reports whether err belongs to the client-error class.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Publisher receives domain events after successful mutations.
type Publisher interface {
	Publish(subject, eventName, actorID string, props map[string]any)
}

// Service orchestrates comment operations.
type Service struct {
	store store.CommentStore
	pub   Publisher
	log   *zap.Logger

	now   func() time.Time
	newID func() string
}

// Option customizes a Service.
type Option func(*Service)

// WithPublisher sets the domain event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides comment id minting.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func New(cs store.CommentStore, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		store: cs,
		pub:   (*events.Publisher)(nil),
		log:   log.Named("service"),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRootInput is the payload of CreateRoot.
type CreateRootInput struct {
	ResourceID string
	Commenter  store.Commenter
	Text       string
}

// CreateBranchInput is the payload of CreateBranch.
type CreateBranchInput struct {
	ParentID  string
	Commenter store.Commenter
	Text      string
}

// CreateRoot attaches a new comment directly to a resource.
func (s *Service) CreateRoot(ctx context.Context, in CreateRootInput) (string, error) {
	id := s.newID()
	c := store.Comment{
		CommentID:          id,
		CommentType:        store.CommentTypeRoot,
		Commenter:          in.Commenter,
		CommentedTimestamp: s.now(),
		CommentText:        in.Text,
		MaterializedPath:   pathcodec.FromChain(in.ResourceID, id),
	}
	if err := s.store.Insert(ctx, c); err != nil {
		return "", fmt.Errorf("create root comment: %w", err)
	}
	s.pub.Publish(events.SubjectCommentCreated, "comment_created", in.Commenter.AccountID, map[string]any{
		"comment_id":   id,
		"comment_type": string(store.CommentTypeRoot),
		"resource_id":  in.ResourceID,
	})
	return id, nil
}

// CreateBranch attaches a new comment below an existing one. The new path is
// the parent's current path plus the new id.
func (s *Service) CreateBranch(ctx context.Context, in CreateBranchInput) (string, error) {
	parent, err := s.find(ctx, in.ParentID)
	if err != nil {
		return "", err
	}
	id := s.newID()
	c := store.Comment{
		CommentID:          id,
		CommentType:        store.CommentTypeBranch,
		Commenter:          in.Commenter,
		CommentedTimestamp: s.now(),
		CommentText:        in.Text,
		MaterializedPath:   pathcodec.Append(parent.MaterializedPath, id),
	}
	if err := s.store.Insert(ctx, c); err != nil {
		return "", fmt.Errorf("create branch comment: %w", err)
	}
	s.pub.Publish(events.SubjectCommentCreated, "comment_created", in.Commenter.AccountID, map[string]any{
		"comment_id":    id,
		"comment_type":  string(store.CommentTypeBranch),
		"branched_from": parent.CommentID,
	})
	return id, nil
}

// React appends a reaction. A missing comment surfaces as a server error.
func (s *Service) React(ctx context.Context, commentID string, r store.CommentReaction) error {
	if err := s.store.AppendReaction(ctx, commentID, r); err != nil {
		return fmt.Errorf("react to comment: %w", err)
	}
	s.pub.Publish(events.SubjectCommentReacted, "comment_reacted", r.Reactor.AccountID, map[string]any{
		"comment_id": commentID,
		"emoji":      r.EmojiUnifiedCode,
	})
	return nil
}

// UndoReaction removes one matching reaction. Nothing to remove surfaces as
// a server error.
func (s *Service) UndoReaction(ctx context.Context, commentID string, r store.CommentReaction) error {
	if err := s.store.RemoveReaction(ctx, commentID, r); err != nil {
		return fmt.Errorf("undo reaction: %w", err)
	}
	s.pub.Publish(events.SubjectCommentUnreacted, "comment_unreacted", r.Reactor.AccountID, map[string]any{
		"comment_id": commentID,
		"emoji":      r.EmojiUnifiedCode,
	})
	return nil
}

// EditText replaces a comment's text.
func (s *Service) EditText(ctx context.Context, commentID, text string) error {
	c, err := s.find(ctx, commentID)
	if err != nil {
		return err
	}
	c.CommentText = text
	if err := s.store.ReplaceText(ctx, c.CommentID, c.CommentText); err != nil {
		return fmt.Errorf("edit comment text: %w", err)
	}
	s.pub.Publish(events.SubjectCommentEdited, "comment_edited", c.Commenter.AccountID, map[string]any{
		"comment_id": commentID,
	})
	return nil
}

// Delete removes a comment and its whole subtree.
func (s *Service) Delete(ctx context.Context, commentID string) error {
	c, err := s.find(ctx, commentID)
	if err != nil {
		return err
	}
	if err := s.store.PruneSubtree(ctx, c.MaterializedPath); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	s.pub.Publish(events.SubjectCommentDeleted, "comment_deleted", c.Commenter.AccountID, map[string]any{
		"comment_id": commentID,
		"path":       c.MaterializedPath,
	})
	return nil
}

// RootComments lists a resource's root comments, newest first.
func (s *Service) RootComments(ctx context.Context, resourceID string) ([]store.Comment, error) {
	out, err := s.store.FindChildren(ctx, pathcodec.FromChain(resourceID))
	if err != nil {
		return nil, fmt.Errorf("get root comments: %w", err)
	}
	return out, nil
}

// BranchCommentsNext lists the direct branches of a comment, newest first.
func (s *Service) BranchCommentsNext(ctx context.Context, parentID string) ([]store.Comment, error) {
	parent, err := s.find(ctx, parentID)
	if err != nil {
		return nil, err
	}
	out, err := s.store.FindChildren(ctx, parent.MaterializedPath)
	if err != nil {
		return nil, fmt.Errorf("get next branch comments: %w", err)
	}
	return out, nil
}

// BranchCommentsRest returns a comment and its whole subtree, shallowest
// first and newest first within a depth.
func (s *Service) BranchCommentsRest(ctx context.Context, parentID string) ([]store.Comment, error) {
	parent, err := s.find(ctx, parentID)
	if err != nil {
		return nil, err
	}
	out, err := s.store.FindSubtree(ctx, parent.MaterializedPath)
	if err != nil {
		return nil, fmt.Errorf("get rest branch comments: %w", err)
	}
	return out, nil
}

// AllComments returns every comment on a resource in subtree order.
func (s *Service) AllComments(ctx context.Context, resourceID string) ([]store.Comment, error) {
	out, err := s.store.FindSubtree(ctx, pathcodec.FromChain(resourceID))
	if err != nil {
		return nil, fmt.Errorf("get all comments: %w", err)
	}
	return out, nil
}

// Ready reports whether the backing store answers.
func (s *Service) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) find(ctx context.Context, commentID string) (store.Comment, error) {
	c, err := s.store.FindByID(ctx, commentID)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Debug("comment lookup missed", zap.String("comment_id", commentID))
		return store.Comment{}, fmt.Errorf("%w: %s", ErrNotFound, commentID)
	}
	if err != nil {
		return store.Comment{}, fmt.Errorf("find comment: %w", err)
	}
	return c, nil
}
