package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/comment-tree/internal/platform/api"
	"github.com/example/comment-tree/internal/platform/httpserver"
	"github.com/example/comment-tree/services/comments/internal/service"
	"github.com/example/comment-tree/services/comments/internal/store"
)

// CommentService is the part of service.Service the handlers call.
type CommentService interface {
	CreateRoot(ctx context.Context, in service.CreateRootInput) (string, error)
	CreateBranch(ctx context.Context, in service.CreateBranchInput) (string, error)
	React(ctx context.Context, commentID string, r store.CommentReaction) error
	UndoReaction(ctx context.Context, commentID string, r store.CommentReaction) error
	EditText(ctx context.Context, commentID, text string) error
	Delete(ctx context.Context, commentID string) error
	RootComments(ctx context.Context, resourceID string) ([]store.Comment, error)
	BranchCommentsNext(ctx context.Context, parentID string) ([]store.Comment, error)
	BranchCommentsRest(ctx context.Context, parentID string) ([]store.Comment, error)
	AllComments(ctx context.Context, resourceID string) ([]store.Comment, error)
}

type createCommentRequest struct {
	CommenterAccountID string `json:"commenter_account_id"`
	CommenterUsername  string `json:"commenter_username"`
	CommentText        string `json:"comment_text"`
}

type editCommentRequest struct {
	NewCommentText string `json:"new_comment_text"`
}

type reactionRequest struct {
	ReactorAccountID string `json:"reactor_account_id"`
	ReactorUsername  string `json:"reactor_username"`
	EmojiUnicode     string `json:"emoji_unicode"`
}

type createdResponse struct {
	CommentID string `json:"comment_id"`
}

type rootCommentsResponse struct {
	RootComments []store.Comment `json:"root_comments"`
}

type allCommentsResponse struct {
	Comments []store.Comment `json:"comments"`
}

type branchCommentsResponse struct {
	BranchComments []store.Comment `json:"branch_comments"`
}

// CreateRootComment handles POST /v1/resources/{resource_id}/comments
func CreateRootComment(svc CommentService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		resourceID, ok := uuidParam(w, r, "resource_id")
		if !ok {
			return
		}

		var req createCommentRequest
		if !decode(w, r, &req) {
			return
		}
		commenter, ok := validateCommenter(w, rid, req)
		if !ok {
			return
		}

		id, err := svc.CreateRoot(r.Context(), service.CreateRootInput{
			ResourceID: resourceID,
			Commenter:  commenter,
			Text:       req.CommentText,
		})
		if err != nil {
			writeServiceError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusCreated, createdResponse{CommentID: id})
	}
}

// CreateBranchComment handles POST /v1/comments/{comment_id}/branches
func CreateBranchComment(svc CommentService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		parentID, ok := uuidParam(w, r, "comment_id")
		if !ok {
			return
		}

		var req createCommentRequest
		if !decode(w, r, &req) {
			return
		}
		commenter, ok := validateCommenter(w, rid, req)
		if !ok {
			return
		}

		id, err := svc.CreateBranch(r.Context(), service.CreateBranchInput{
			ParentID:  parentID,
			Commenter: commenter,
			Text:      req.CommentText,
		})
		if err != nil {
			writeServiceError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusCreated, createdResponse{CommentID: id})
	}
}

// GetRootComments handles GET /v1/resources/{resource_id}/comments
func GetRootComments(svc CommentService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resourceID, ok := uuidParam(w, r, "resource_id")
		if !ok {
			return
		}
		out, err := svc.RootComments(r.Context(), resourceID)
		if err != nil {
			writeServiceError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, rootCommentsResponse{RootComments: out})
	}
}

// GetAllComments handles GET /v1/resources/{resource_id}/comments/all
func GetAllComments(svc CommentService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resourceID, ok := uuidParam(w, r, "resource_id")
		if !ok {
			return
		}
		out, err := svc.AllComments(r.Context(), resourceID)
		if err != nil {
			writeServiceError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, allCommentsResponse{Comments: out})
	}
}

// GetBranchCommentsNext handles GET /v1/comments/{comment_id}/branches
func GetBranchCommentsNext(svc CommentService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parentID, ok := uuidParam(w, r, "comment_id")
		if !ok {
			return
		}
		out, err := svc.BranchCommentsNext(r.Context(), parentID)
		if err != nil {
			writeServiceError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, branchCommentsResponse{BranchComments: out})
	}
}

// GetBranchCommentsRest handles GET /v1/comments/{comment_id}/branches/all
func GetBranchCommentsRest(svc CommentService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parentID, ok := uuidParam(w, r, "comment_id")
		if !ok {
			return
		}
		out, err := svc.BranchCommentsRest(r.Context(), parentID)
		if err != nil {
			writeServiceError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, branchCommentsResponse{BranchComments: out})
	}
}

// EditComment handles PUT /v1/comments/{comment_id}
func EditComment(svc CommentService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		commentID, ok := uuidParam(w, r, "comment_id")
		if !ok {
			return
		}

		var req editCommentRequest
		if !decode(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.NewCommentText) == "" {
			api.BadRequest(w, "EMPTY_TEXT", "new_comment_text must not be empty", rid, nil)
			return
		}

		if err := svc.EditText(r.Context(), commentID, req.NewCommentText); err != nil {
			writeServiceError(w, r, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteComment handles DELETE /v1/comments/{comment_id}
func DeleteComment(svc CommentService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID, ok := uuidParam(w, r, "comment_id")
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), commentID); err != nil {
			writeServiceError(w, r, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ReactToComment handles POST /v1/comments/{comment_id}/reactions
func ReactToComment(svc CommentService, log *zap.Logger) http.HandlerFunc {
	return reaction(log, svc.React)
}

// UndoReaction handles POST /v1/comments/{comment_id}/reactions/undo
func UndoReaction(svc CommentService, log *zap.Logger) http.HandlerFunc {
	return reaction(log, svc.UndoReaction)
}

func reaction(log *zap.Logger, apply func(context.Context, string, store.CommentReaction) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		commentID, ok := uuidParam(w, r, "comment_id")
		if !ok {
			return
		}

		var req reactionRequest
		if !decode(w, r, &req) {
			return
		}
		if _, err := uuid.Parse(strings.TrimSpace(req.ReactorAccountID)); err != nil {
			api.BadRequest(w, "INVALID_ID", "reactor_account_id must be a UUID", rid, nil)
			return
		}
		if strings.TrimSpace(req.EmojiUnicode) == "" {
			api.BadRequest(w, "EMPTY_EMOJI", "emoji_unicode must not be empty", rid, nil)
			return
		}

		err := apply(r.Context(), commentID, store.CommentReaction{
			Reactor: store.CommentReactor{
				AccountID: strings.TrimSpace(req.ReactorAccountID),
				Username:  req.ReactorUsername,
			},
			EmojiUnifiedCode: req.EmojiUnicode,
		})
		if err != nil {
			writeServiceError(w, r, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := strings.TrimSpace(chi.URLParam(r, name))
	if _, err := uuid.Parse(v); err != nil {
		api.BadRequest(w, "INVALID_ID", name+" must be a UUID", httpserver.RequestIDFromContext(r.Context()), map[string]any{"value": v})
		return "", false
	}
	return v, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst); err != nil {
		api.BadRequest(w, "INVALID_JSON", "invalid JSON", httpserver.RequestIDFromContext(r.Context()), nil)
		return false
	}
	return true
}

func validateCommenter(w http.ResponseWriter, rid string, req createCommentRequest) (store.Commenter, bool) {
	accountID := strings.TrimSpace(req.CommenterAccountID)
	if _, err := uuid.Parse(accountID); err != nil {
		api.BadRequest(w, "INVALID_ID", "commenter_account_id must be a UUID", rid, nil)
		return store.Commenter{}, false
	}
	if strings.TrimSpace(req.CommentText) == "" {
		api.BadRequest(w, "EMPTY_TEXT", "comment_text must not be empty", rid, nil)
		return store.Commenter{}, false
	}
	return store.Commenter{AccountID: accountID, Username: req.CommenterUsername}, true
}

// writeServiceError maps the service error classes onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	rid := httpserver.RequestIDFromContext(r.Context())
	switch {
	case service.IsNotFound(err):
		api.NotFound(w, "NOT_FOUND", "comment not found", rid)
	case errors.Is(err, store.ErrUnavailable):
		log.Warn("comment store unavailable", zap.String("path", r.URL.Path), zap.String("request_id", rid), zap.Error(err))
		api.Unavailable(w, "UNAVAILABLE", "comment store unavailable", rid)
	default:
		log.Error("comment operation failed", zap.String("path", r.URL.Path), zap.String("request_id", rid), zap.Error(err))
		api.Internal(w, rid)
	}
}
