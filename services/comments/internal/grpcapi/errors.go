package grpcapi

import (
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/example/comment-tree/services/comments/internal/service"
	"github.com/example/comment-tree/services/comments/internal/store"
)

// ErrorDomain is the errdetails.ErrorInfo domain on every error status.
const ErrorDomain = "comments"

// Error reasons carried in errdetails.ErrorInfo.
const (
	ReasonNotFound    = "COMMENT_NOT_FOUND"
	ReasonInvalid     = "INVALID_ARGUMENT"
	ReasonUnavailable = "STORE_UNAVAILABLE"
	ReasonInternal    = "INTERNAL"
)

func withInfo(code codes.Code, msg, reason string) *status.Status {
	st := status.New(code, msg)
	if detailed, err := st.WithDetails(&errdetails.ErrorInfo{Reason: reason, Domain: ErrorDomain}); err == nil {
		return detailed
	}
	return st
}

func invalidArgument(field, msg string) error {
	st := status.New(codes.InvalidArgument, msg)
	bad := &errdetails.BadRequest{FieldViolations: []*errdetails.BadRequest_FieldViolation{{Field: field, Description: msg}}}
	st2, err := st.WithDetails(&errdetails.ErrorInfo{Reason: ReasonInvalid, Domain: ErrorDomain}, bad)
	if err != nil {
		return st.Err()
	}
	return st2.Err()
}

// statusFor maps the service error classes onto gRPC codes.
func statusFor(err error) *status.Status {
	switch {
	case service.IsNotFound(err):
		return withInfo(codes.NotFound, "comment not found", ReasonNotFound)
	case errors.Is(err, store.ErrUnavailable):
		return withInfo(codes.Unavailable, "comment store unavailable", ReasonUnavailable)
	default:
		return withInfo(codes.Internal, "internal error", ReasonInternal)
	}
}

// ReasonOf extracts the ErrorInfo reason from a status error.
func ReasonOf(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return info.GetReason()
		}
	}
	return ""
}
