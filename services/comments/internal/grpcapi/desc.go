package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "comments.v1.CommentService"

// Method names of comments.v1.CommentService.
const (
	MethodCreateRootComment     = "CreateRootComment"
	MethodCreateBranchComment   = "CreateBranchComment"
	MethodReactToComment        = "ReactToComment"
	MethodUndoReaction          = "UndoReaction"
	MethodEditComment           = "EditComment"
	MethodDeleteComment         = "DeleteComment"
	MethodGetRootComments       = "GetRootComments"
	MethodGetBranchCommentsNext = "GetBranchCommentsNext"
	MethodGetBranchCommentsRest = "GetBranchCommentsRest"
	MethodGetAllComments        = "GetAllComments"
)

// FullMethod returns the "/service/method" path of a method.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// CommentServiceServer is the server API of comments.v1.CommentService.
// Messages are google.protobuf.Struct so no generated code is needed.
type CommentServiceServer interface {
	CreateRootComment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateBranchComment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReactToComment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UndoReaction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EditComment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteComment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRootComments(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBranchCommentsNext(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBranchCommentsRest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAllComments(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(CommentServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CommentServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(CommentServiceServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// CommentServiceDesc describes comments.v1.CommentService for grpc.Server.
var CommentServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CommentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		handler(MethodCreateRootComment, CommentServiceServer.CreateRootComment),
		handler(MethodCreateBranchComment, CommentServiceServer.CreateBranchComment),
		handler(MethodReactToComment, CommentServiceServer.ReactToComment),
		handler(MethodUndoReaction, CommentServiceServer.UndoReaction),
		handler(MethodEditComment, CommentServiceServer.EditComment),
		handler(MethodDeleteComment, CommentServiceServer.DeleteComment),
		handler(MethodGetRootComments, CommentServiceServer.GetRootComments),
		handler(MethodGetBranchCommentsNext, CommentServiceServer.GetBranchCommentsNext),
		handler(MethodGetBranchCommentsRest, CommentServiceServer.GetBranchCommentsRest),
		handler(MethodGetAllComments, CommentServiceServer.GetAllComments),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "comments/v1/comments.proto",
}

// RegisterCommentServiceServer registers srv on s.
func RegisterCommentServiceServer(s grpc.ServiceRegistrar, srv CommentServiceServer) {
	s.RegisterService(&CommentServiceDesc, srv)
}
