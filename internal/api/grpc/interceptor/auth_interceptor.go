package interceptor

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"rentfun-backend/internal/config"
	"rentfun-backend/internal/logger"
	"rentfun-backend/internal/security"
)

const (
	// CallerHeader carries the authenticated wallet address to handlers.
	CallerHeader    = "caller-address"
	RequestIDHeader = "request-id"
)

type AuthInterceptor struct {
	tokenManager security.TokenManager
}

func NewAuthInterceptor(tm security.TokenManager) *AuthInterceptor {
	return &AuthInterceptor{tokenManager: tm}
}

// Unary returns a server interceptor function to authenticate and authorize unary RPCs
func (i *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			md = metadata.New(nil)
		} else {
			md = md.Copy()
		}
		// Never trust a caller address sent by the client.
		md.Delete(CallerHeader)
		if len(md.Get(RequestIDHeader)) == 0 {
			md.Set(RequestIDHeader, uuid.NewString())
		}
		requestID := md.Get(RequestIDHeader)[0]

		level := config.GetSecurityLevel(info.FullMethod)
		if level != config.SecurityPublic {
			token, err := extractToken(md)
			if err != nil {
				return nil, err
			}

			claims, err := i.tokenManager.ValidateToken(token)
			if err != nil {
				return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
			}

			if err := checkSecurityLevel(level, claims); err != nil {
				logger.WithCaller(info.FullMethod, claims.Address.String()).Warn("Request denied", "request_id", requestID)
				return nil, err
			}

			md.Set(CallerHeader, claims.Address.String())
		}

		logger.Debug("gRPC request", "method", info.FullMethod, "request_id", requestID)
		return handler(metadata.NewIncomingContext(ctx, md), req)
	}
}

func extractToken(md metadata.MD) (string, error) {
	authHeader := md.Get("authorization")
	if len(authHeader) == 0 {
		return "", status.Error(codes.Unauthenticated, "authorization token is not provided")
	}

	token := authHeader[0]
	// Remove Bearer prefix if present
	if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
		token = token[7:]
	}

	return token, nil
}

func checkSecurityLevel(level config.SecurityLevel, claims *security.AccountClaims) error {
	if claims.Type != security.TokenTypeAccess {
		return status.Error(codes.PermissionDenied, "access token required")
	}
	if level == config.SecurityAdmin && !claims.HasRole(config.RoleAdmin) {
		return status.Error(codes.PermissionDenied, "admin role required")
	}
	return nil
}
