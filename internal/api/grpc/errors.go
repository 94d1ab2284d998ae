package grpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/membership"
)

// toStatus maps ledger errors onto gRPC codes. The message keeps the full
// wrapped chain so collaborator reverts stay visible to the client.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codeOf(err), err.Error())
}

func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrOwnership),
		errors.Is(err, membership.ErrNotWhitelisted):
		return codes.PermissionDenied
	case errors.Is(err, membership.ErrAlreadyMinted):
		return codes.AlreadyExists
	case errors.Is(err, domain.ErrUnsupportedPayment),
		errors.Is(err, domain.ErrPaymentMismatch),
		errors.Is(err, domain.ErrNotRentable),
		errors.Is(err, domain.ErrStillRented),
		errors.Is(err, domain.ErrAlreadyClaimed):
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}
