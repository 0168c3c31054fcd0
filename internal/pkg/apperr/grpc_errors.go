package apperr

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ToGRPC converts an Error to a gRPC status error.
// Errors without a known Kind are reported as Internal.
func ToGRPC(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindValidation:
			return status.Error(codes.InvalidArgument, e.Error())
		case KindNotFound:
			return status.Error(codes.NotFound, e.Error())
		}
	}
	return status.Errorf(codes.Internal, "internal error: %v", err)
}
