package grpcapi

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/example/comment-tree/services/comments/internal/service"
	"github.com/example/comment-tree/services/comments/internal/store"
)

// Comments is the part of service.Service exposed over gRPC.
type Comments interface {
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

// CommentService implements CommentServiceServer.
type CommentService struct {
	Comments Comments
	Log      *zap.Logger
}

var _ CommentServiceServer = (*CommentService)(nil)

func field(req *structpb.Struct, key string) string {
	return strings.TrimSpace(req.GetFields()[key].GetStringValue())
}

func uuidField(req *structpb.Struct, key string) (string, error) {
	v := field(req, key)
	if _, err := uuid.Parse(v); err != nil {
		return "", invalidArgument(key, key+" must be a UUID")
	}
	return v, nil
}

func nonEmptyField(req *structpb.Struct, key string) (string, error) {
	v := req.GetFields()[key].GetStringValue()
	if strings.TrimSpace(v) == "" {
		return "", invalidArgument(key, key+" must not be empty")
	}
	return v, nil
}

func commenter(req *structpb.Struct) (store.Commenter, error) {
	accountID, err := uuidField(req, "commenter_account_id")
	if err != nil {
		return store.Commenter{}, err
	}
	return store.Commenter{AccountID: accountID, Username: req.GetFields()["commenter_username"].GetStringValue()}, nil
}

func reaction(req *structpb.Struct) (store.CommentReaction, error) {
	accountID, err := uuidField(req, "reactor_account_id")
	if err != nil {
		return store.CommentReaction{}, err
	}
	emoji, err := nonEmptyField(req, "emoji_unicode")
	if err != nil {
		return store.CommentReaction{}, err
	}
	return store.CommentReaction{
		Reactor:          store.CommentReactor{AccountID: accountID, Username: req.GetFields()["reactor_username"].GetStringValue()},
		EmojiUnifiedCode: emoji,
	}, nil
}

// commentsStruct encodes comments under key using their JSON shape.
func commentsStruct(key string, cs []store.Comment) (*structpb.Struct, error) {
	raw, err := json.Marshal(map[string]any{key: cs})
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func empty() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}
}

func (s *CommentService) CreateRootComment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	resourceID, err := uuidField(req, "resource_id")
	if err != nil {
		return nil, err
	}
	who, err := commenter(req)
	if err != nil {
		return nil, err
	}
	text, err := nonEmptyField(req, "comment_text")
	if err != nil {
		return nil, err
	}
	id, err := s.Comments.CreateRoot(ctx, service.CreateRootInput{ResourceID: resourceID, Commenter: who, Text: text})
	if err != nil {
		return nil, s.toStatus(MethodCreateRootComment, err)
	}
	return structpb.NewStruct(map[string]any{"comment_id": id})
}

func (s *CommentService) CreateBranchComment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	parentID, err := uuidField(req, "comment_id")
	if err != nil {
		return nil, err
	}
	who, err := commenter(req)
	if err != nil {
		return nil, err
	}
	text, err := nonEmptyField(req, "comment_text")
	if err != nil {
		return nil, err
	}
	id, err := s.Comments.CreateBranch(ctx, service.CreateBranchInput{ParentID: parentID, Commenter: who, Text: text})
	if err != nil {
		return nil, s.toStatus(MethodCreateBranchComment, err)
	}
	return structpb.NewStruct(map[string]any{"comment_id": id})
}

func (s *CommentService) ReactToComment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.applyReaction(ctx, MethodReactToComment, req, s.Comments.React)
}

func (s *CommentService) UndoReaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.applyReaction(ctx, MethodUndoReaction, req, s.Comments.UndoReaction)
}

func (s *CommentService) applyReaction(ctx context.Context, method string, req *structpb.Struct, apply func(context.Context, string, store.CommentReaction) error) (*structpb.Struct, error) {
	commentID, err := uuidField(req, "comment_id")
	if err != nil {
		return nil, err
	}
	r, err := reaction(req)
	if err != nil {
		return nil, err
	}
	if err := apply(ctx, commentID, r); err != nil {
		return nil, s.toStatus(method, err)
	}
	return empty(), nil
}

func (s *CommentService) EditComment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	commentID, err := uuidField(req, "comment_id")
	if err != nil {
		return nil, err
	}
	text, err := nonEmptyField(req, "new_comment_text")
	if err != nil {
		return nil, err
	}
	if err := s.Comments.EditText(ctx, commentID, text); err != nil {
		return nil, s.toStatus(MethodEditComment, err)
	}
	return empty(), nil
}

func (s *CommentService) DeleteComment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	commentID, err := uuidField(req, "comment_id")
	if err != nil {
		return nil, err
	}
	if err := s.Comments.Delete(ctx, commentID); err != nil {
		return nil, s.toStatus(MethodDeleteComment, err)
	}
	return empty(), nil
}

func (s *CommentService) GetRootComments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.list(ctx, MethodGetRootComments, req, "resource_id", "root_comments", s.Comments.RootComments)
}

func (s *CommentService) GetBranchCommentsNext(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.list(ctx, MethodGetBranchCommentsNext, req, "comment_id", "branch_comments", s.Comments.BranchCommentsNext)
}

func (s *CommentService) GetBranchCommentsRest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.list(ctx, MethodGetBranchCommentsRest, req, "comment_id", "branch_comments", s.Comments.BranchCommentsRest)
}

func (s *CommentService) GetAllComments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.list(ctx, MethodGetAllComments, req, "resource_id", "comments", s.Comments.AllComments)
}

func (s *CommentService) list(ctx context.Context, method string, req *structpb.Struct, idKey, outKey string, query func(context.Context, string) ([]store.Comment, error)) (*structpb.Struct, error) {
	id, err := uuidField(req, idKey)
	if err != nil {
		return nil, err
	}
	out, err := query(ctx, id)
	if err != nil {
		return nil, s.toStatus(method, err)
	}
	resp, err := commentsStruct(outKey, out)
	if err != nil {
		return nil, s.toStatus(method, err)
	}
	return resp, nil
}

func (s *CommentService) toStatus(method string, err error) error {
	st := statusFor(err)
	if st.Code() != codes.NotFound && s.Log != nil {
		s.Log.Error("grpc comment operation failed", zap.String("method", method), zap.Error(err))
	}
	return st.Err()
}
