package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const apiPackage = "rentfun.api.v1"

// unary builds a method descriptor for a handler method taking *Req. It is
// the hand-written counterpart of what protoc-gen-go-grpc emits.
func unary[H, Req, Resp any](service, method string, call func(h H, ctx context.Context, req *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + apiPackage + "." + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(H), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(H), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func serviceDesc(service string, handlerType any, methods ...grpc.MethodDesc) *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: apiPackage + "." + service,
		HandlerType: handlerType,
		Methods:     methods,
		Streams:     []grpc.StreamDesc{},
		Metadata:    "rentfun/api/v1/" + service,
	}
}

// Empty is the request or response of calls without a payload.
type Empty struct{}
