package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/example/comment-tree/services/comments/internal/store"
)

// Command stream and subjects.
const (
	CommandStream        = "COMMENT_COMMANDS"
	CommandSubjectPrefix = "comments.commands."
	commandDurable       = "comments_commands"
)

// Command actions, the last token of the subject.
const (
	ActionCreateRoot   = "create_root"
	ActionCreateBranch = "create_branch"
	ActionReact        = "react"
	ActionUnreact      = "unreact"
	ActionEdit         = "edit"
	ActionDelete       = "delete"
)

var errInvalidCommand = errors.New("invalid command")

// CreateRootCommand is the payload for create_root
type CreateRootCommand struct {
	EventID            string `json:"event_id"`
	ResourceID         string `json:"resource_id"`
	CommenterAccountID string `json:"commenter_account_id"`
	CommenterUsername  string `json:"commenter_username"`
	CommentText        string `json:"comment_text"`
}

// CreateBranchCommand is the payload for create_branch
type CreateBranchCommand struct {
	EventID            string `json:"event_id"`
	CommentID          string `json:"comment_id"`
	CommenterAccountID string `json:"commenter_account_id"`
	CommenterUsername  string `json:"commenter_username"`
	CommentText        string `json:"comment_text"`
}

// ReactionCommand is the payload for react and unreact
type ReactionCommand struct {
	EventID          string `json:"event_id"`
	CommentID        string `json:"comment_id"`
	ReactorAccountID string `json:"reactor_account_id"`
	ReactorUsername  string `json:"reactor_username"`
	EmojiUnicode     string `json:"emoji_unicode"`
}

// EditCommand is the payload for edit
type EditCommand struct {
	EventID        string `json:"event_id"`
	CommentID      string `json:"comment_id"`
	NewCommentText string `json:"new_comment_text"`
}

// DeleteCommand is the payload for delete
type DeleteCommand struct {
	EventID   string `json:"event_id"`
	CommentID string `json:"comment_id"`
}

func decodeCommand(data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", errInvalidCommand, err)
	}
	return nil
}

func requireEventID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: event_id is required", errInvalidCommand)
	}
	return nil
}

func requireUUID(name, v string) error {
	if _, err := uuid.Parse(strings.TrimSpace(v)); err != nil {
		return fmt.Errorf("%w: %s must be a UUID", errInvalidCommand, name)
	}
	return nil
}

func requireText(name, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s must not be empty", errInvalidCommand, name)
	}
	return nil
}

func (c CreateRootCommand) validate() error {
	return errors.Join(
		requireEventID(c.EventID),
		requireUUID("resource_id", c.ResourceID),
		requireUUID("commenter_account_id", c.CommenterAccountID),
		requireText("comment_text", c.CommentText),
	)
}

func (c CreateBranchCommand) validate() error {
	return errors.Join(
		requireEventID(c.EventID),
		requireUUID("comment_id", c.CommentID),
		requireUUID("commenter_account_id", c.CommenterAccountID),
		requireText("comment_text", c.CommentText),
	)
}

func (c ReactionCommand) validate() error {
	return errors.Join(
		requireEventID(c.EventID),
		requireUUID("comment_id", c.CommentID),
		requireUUID("reactor_account_id", c.ReactorAccountID),
		requireText("emoji_unicode", c.EmojiUnicode),
	)
}

func (c ReactionCommand) reaction() store.CommentReaction {
	return store.CommentReaction{
		Reactor:          store.CommentReactor{AccountID: strings.TrimSpace(c.ReactorAccountID), Username: c.ReactorUsername},
		EmojiUnifiedCode: c.EmojiUnicode,
	}
}

func (c EditCommand) validate() error {
	return errors.Join(
		requireEventID(c.EventID),
		requireUUID("comment_id", c.CommentID),
		requireText("new_comment_text", c.NewCommentText),
	)
}

func (c DeleteCommand) validate() error {
	return errors.Join(
		requireEventID(c.EventID),
		requireUUID("comment_id", c.CommentID),
	)
}
