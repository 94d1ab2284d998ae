package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"rentfun-backend/internal/api/grpc/interceptor"
	"rentfun-backend/internal/domain"
)

// GetCallerFromContext extracts the caller address from the gRPC metadata.
func GetCallerFromContext(ctx context.Context) (domain.Address, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Errorf(codes.Unauthenticated, "metadata is not provided")
	}

	callers := md.Get(interceptor.CallerHeader)
	if len(callers) == 0 {
		return "", status.Errorf(codes.Unauthenticated, "caller address is not provided in metadata")
	}

	caller, err := domain.ParseAddress(callers[0])
	if err != nil {
		return "", status.Errorf(codes.InvalidArgument, "invalid caller address: %v", err)
	}
	return caller, nil
}
