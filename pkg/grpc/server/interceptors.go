package server

import (
	"context"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func clientAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return "unknown"
}

// LoggingInterceptor creates a gRPC unary interceptor for request/response logging.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		addr := clientAddr(ctx)

		logger.Debug("gRPC request started",
			zap.String("method", info.FullMethod),
			zap.String("client_addr", addr))

		resp, err := handler(ctx, req)
		duration := time.Since(start)

		if err == nil {
			logger.Info("gRPC request completed",
				zap.String("method", info.FullMethod),
				zap.Duration("duration", duration),
				zap.String("status_code", codes.OK.String()))
			return resp, nil
		}

		st, _ := status.FromError(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("client_addr", addr),
			zap.Duration("duration", duration),
			zap.String("status_code", st.Code().String()),
			zap.String("status_message", st.Message()),
		}
		switch st.Code() {
		case codes.InvalidArgument, codes.NotFound, codes.Canceled:
			logger.Info("gRPC request rejected", fields...)
		default:
			logger.Error("gRPC request failed", append(fields, zap.Error(err))...)
		}

		return resp, err
	}
}

// TimeoutInterceptor applies d as the request deadline unless the caller set
// an earlier one.
func TimeoutInterceptor(d time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= d {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return handler(ctx, req)
	}
}

// RecoveryInterceptor turns a handler panic into an Internal status.
func RecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("gRPC handler panic",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
