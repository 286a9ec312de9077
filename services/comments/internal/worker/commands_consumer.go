package worker

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/comment-tree/internal/platform/idempotency"
	"github.com/example/comment-tree/services/comments/internal/service"
	"github.com/example/comment-tree/services/comments/internal/store"
)

// Comments is the part of service.Service driven by commands.
type Comments interface {
	CreateRoot(ctx context.Context, in service.CreateRootInput) (string, error)
	CreateBranch(ctx context.Context, in service.CreateBranchInput) (string, error)
	React(ctx context.Context, commentID string, r store.CommentReaction) error
	UndoReaction(ctx context.Context, commentID string, r store.CommentReaction) error
	EditText(ctx context.Context, commentID, text string) error
	Delete(ctx context.Context, commentID string) error
}

type disposition int

const (
	dispAck disposition = iota
	dispNak
	dispTerm
)

func (d disposition) String() string {
	switch d {
	case dispAck:
		return "ack"
	case dispNak:
		return "nak"
	default:
		return "term"
	}
}

// retryBackoff is the redelivery delay after each failed attempt; the last
// entry repeats until MaxDeliver is reached.
var retryBackoff = []time.Duration{time.Second, 5 * time.Second, 30 * time.Second, 2 * time.Minute}

const defaultMaxDeliver = 8

// CommandConsumer applies comment commands received over JetStream.
type CommandConsumer struct {
	comments Comments
	idem     idempotency.Store
	log      *zap.Logger
}

func NewCommandConsumer(comments Comments, idem idempotency.Store, log *zap.Logger) *CommandConsumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &CommandConsumer{comments: comments, idem: idem, log: log.Named("commands")}
}

// retryDelay returns the nak delay for a message delivered n times.
func retryDelay(n uint64) time.Duration {
	if n == 0 {
		n = 1
	}
	if n > uint64(len(retryBackoff)) {
		return retryBackoff[len(retryBackoff)-1]
	}
	return retryBackoff[n-1]
}

// EnsureCommandStream creates the command stream if it does not exist yet.
func EnsureCommandStream(js nats.JetStreamContext) error {
	_, err := js.StreamInfo(CommandStream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     CommandStream,
		Subjects: []string{CommandSubjectPrefix + "*"},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	return err
}

// Start subscribes to comments.commands.* and processes messages until ctx
// is done. It returns once the subscription is in place.
func (c *CommandConsumer) Start(ctx context.Context, js nats.JetStreamContext) error {
	sub, err := js.PullSubscribe(CommandSubjectPrefix+"*", commandDurable,
		nats.AckExplicit(),
		nats.MaxDeliver(envInt("WORKER_MAX_DELIVER", defaultMaxDeliver)),
	)
	if err != nil {
		return err
	}

	batchSize := envInt("WORKER_BATCH_SIZE", 100)
	maxWait := time.Duration(envInt("WORKER_BATCH_INTERVAL_MS", 2000)) * time.Millisecond

	go func() {
		defer func() { _ = sub.Unsubscribe() }()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			msgs, err := sub.Fetch(batchSize, nats.MaxWait(maxWait))
			if err != nil {
				if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				c.log.Warn("fetch failed", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}

			for _, m := range msgs {
				c.settle(m, c.handle(ctx, m.Subject, m.Data))
			}
		}
	}()
	return nil
}

func (c *CommandConsumer) settle(m *nats.Msg, d disposition) {
	var err error
	switch d {
	case dispAck:
		err = m.Ack()
	case dispNak:
		var n uint64
		if md, merr := m.Metadata(); merr == nil {
			n = md.NumDelivered
		}
		err = m.NakWithDelay(retryDelay(n))
	default:
		err = m.Term()
	}
	if err != nil {
		c.log.Warn("settle failed", zap.String("subject", m.Subject), zap.Stringer("disposition", d), zap.Error(err))
	}
}

// handle applies one command and decides how the message is settled.
func (c *CommandConsumer) handle(ctx context.Context, subject string, data []byte) disposition {
	action := strings.TrimPrefix(subject, CommandSubjectPrefix)
	log := c.log.With(zap.String("action", action))

	eventID, apply, err := c.prepare(action, data)
	if err != nil {
		log.Warn("dropping invalid command", zap.Error(err))
		return dispTerm
	}
	log = log.With(zap.String("event_id", eventID))

	dup, err := c.idem.Check(ctx, eventID)
	if err != nil {
		log.Error("idempotency check failed", zap.Error(err))
		return dispNak
	}
	if dup {
		log.Debug("duplicate command skipped")
		return dispAck
	}

	if err := apply(ctx); err != nil {
		if service.IsNotFound(err) {
			log.Warn("command target not found", zap.Error(err))
			return dispAck
		}
		// Nothing to react to or undo: a server error, but one that no
		// redelivery can fix.
		if errors.Is(err, store.ErrNoOp) {
			log.Error("command modified nothing", zap.Error(err))
			return dispTerm
		}
		log.Error("command failed", zap.Error(err))
		if ferr := c.idem.Forget(ctx, eventID); ferr != nil {
			log.Warn("idempotency release failed", zap.Error(ferr))
		}
		return dispNak
	}
	log.Debug("command applied")
	return dispAck
}

// prepare decodes and validates a command, returning the operation to run.
func (c *CommandConsumer) prepare(action string, data []byte) (string, func(context.Context) error, error) {
	switch action {
	case ActionCreateRoot:
		var cmd CreateRootCommand
		if err := decodeCommand(data, &cmd); err != nil {
			return "", nil, err
		}
		if err := cmd.validate(); err != nil {
			return "", nil, err
		}
		return cmd.EventID, func(ctx context.Context) error {
			_, err := c.comments.CreateRoot(ctx, service.CreateRootInput{
				ResourceID: strings.TrimSpace(cmd.ResourceID),
				Commenter:  store.Commenter{AccountID: strings.TrimSpace(cmd.CommenterAccountID), Username: cmd.CommenterUsername},
				Text:       cmd.CommentText,
			})
			return err
		}, nil
	case ActionCreateBranch:
		var cmd CreateBranchCommand
		if err := decodeCommand(data, &cmd); err != nil {
			return "", nil, err
		}
		if err := cmd.validate(); err != nil {
			return "", nil, err
		}
		return cmd.EventID, func(ctx context.Context) error {
			_, err := c.comments.CreateBranch(ctx, service.CreateBranchInput{
				ParentID:  strings.TrimSpace(cmd.CommentID),
				Commenter: store.Commenter{AccountID: strings.TrimSpace(cmd.CommenterAccountID), Username: cmd.CommenterUsername},
				Text:      cmd.CommentText,
			})
			return err
		}, nil
	case ActionReact, ActionUnreact:
		var cmd ReactionCommand
		if err := decodeCommand(data, &cmd); err != nil {
			return "", nil, err
		}
		if err := cmd.validate(); err != nil {
			return "", nil, err
		}
		apply := c.comments.React
		if action == ActionUnreact {
			apply = c.comments.UndoReaction
		}
		return cmd.EventID, func(ctx context.Context) error {
			return apply(ctx, strings.TrimSpace(cmd.CommentID), cmd.reaction())
		}, nil
	case ActionEdit:
		var cmd EditCommand
		if err := decodeCommand(data, &cmd); err != nil {
			return "", nil, err
		}
		if err := cmd.validate(); err != nil {
			return "", nil, err
		}
		return cmd.EventID, func(ctx context.Context) error {
			return c.comments.EditText(ctx, strings.TrimSpace(cmd.CommentID), cmd.NewCommentText)
		}, nil
	case ActionDelete:
		var cmd DeleteCommand
		if err := decodeCommand(data, &cmd); err != nil {
			return "", nil, err
		}
		if err := cmd.validate(); err != nil {
			return "", nil, err
		}
		return cmd.EventID, func(ctx context.Context) error {
			return c.comments.Delete(ctx, strings.TrimSpace(cmd.CommentID))
		}, nil
	default:
		return "", nil, errors.Join(errInvalidCommand, errors.New("unknown action "+strconv.Quote(action)))
	}
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
