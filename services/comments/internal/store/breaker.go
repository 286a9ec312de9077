package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerSettings configures NewBreakerStore.
type BreakerSettings struct {
	MaxFailures uint32        // consecutive failures before opening
	OpenTimeout time.Duration // time spent open before a half-open probe
}

// BreakerStore fails fast with ErrUnavailable while the wrapped store keeps
// failing. It never retries.
type BreakerStore struct {
	next CommentStore
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps next with a circuit breaker. ErrNotFound and ErrNoOp
// are answers, not failures, and do not count toward tripping.
func NewBreakerStore(next CommentStore, cfg BreakerSettings, log *zap.Logger) *BreakerStore {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "comment-store",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoOp)
		},
	})
	return &BreakerStore{next: next, cb: cb}
}

func call[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	v, err := cb.Execute(func() (any, error) { return fn() })
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func exec(cb *gobreaker.CircuitBreaker, fn func() error) error {
	_, err := call(cb, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

func (b *BreakerStore) Insert(ctx context.Context, c Comment) error {
	return exec(b.cb, func() error { return b.next.Insert(ctx, c) })
}

func (b *BreakerStore) FindByID(ctx context.Context, commentID string) (Comment, error) {
	return call(b.cb, func() (Comment, error) { return b.next.FindByID(ctx, commentID) })
}

func (b *BreakerStore) AppendReaction(ctx context.Context, commentID string, r CommentReaction) error {
	return exec(b.cb, func() error { return b.next.AppendReaction(ctx, commentID, r) })
}

func (b *BreakerStore) RemoveReaction(ctx context.Context, commentID string, r CommentReaction) error {
	return exec(b.cb, func() error { return b.next.RemoveReaction(ctx, commentID, r) })
}

func (b *BreakerStore) ReplaceText(ctx context.Context, commentID, text string) error {
	return exec(b.cb, func() error { return b.next.ReplaceText(ctx, commentID, text) })
}

func (b *BreakerStore) PruneSubtree(ctx context.Context, path string) error {
	return exec(b.cb, func() error { return b.next.PruneSubtree(ctx, path) })
}

func (b *BreakerStore) FindChildren(ctx context.Context, parentPath string) ([]Comment, error) {
	return call(b.cb, func() ([]Comment, error) { return b.next.FindChildren(ctx, parentPath) })
}

func (b *BreakerStore) FindSubtree(ctx context.Context, rootPath string) ([]Comment, error) {
	return call(b.cb, func() ([]Comment, error) { return b.next.FindSubtree(ctx, rootPath) })
}

// Ping bypasses the breaker so readiness reflects the backend itself.
func (b *BreakerStore) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}

// State reports the breaker state, e.g. "closed" or "open".
func (b *BreakerStore) State() string {
	return b.cb.State().String()
}
