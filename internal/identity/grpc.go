package identity

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"skillswap-service/internal/observability"
)

// ValidateTokenMethod is the auth-service RPC. It takes the raw token as a
// StringValue and answers with a Struct holding valid, user_id and name.
const ValidateTokenMethod = "/auth.AuthService/ValidateToken"

// GRPCVerifier validates tokens against the auth-service.
type GRPCVerifier struct {
	conn grpc.ClientConnInterface
}

// NewGRPCVerifier wraps an established auth-service connection.
func NewGRPCVerifier(conn grpc.ClientConnInterface) *GRPCVerifier {
	return &GRPCVerifier{conn: conn}
}

// DialAuthService connects to the auth-service with tracing and metrics attached.
func DialAuthService(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithUnaryInterceptor(observability.GRPCClientMetricsUnaryInterceptor()),
	}, opts...)
	return grpc.Dial(addr, opts...)
}

func (v *GRPCVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	resp := &structpb.Struct{}
	if err := v.conn.Invoke(ctx, ValidateTokenMethod, wrapperspb.String(token), resp); err != nil {
		switch status.Code(err) {
		case codes.Unauthenticated, codes.InvalidArgument, codes.NotFound:
			return Identity{}, ErrInvalidToken
		}
		return Identity{}, fmt.Errorf("validate token: %w", err)
	}

	fields := resp.GetFields()
	userID := int(fields["user_id"].GetNumberValue())
	if !fields["valid"].GetBoolValue() || userID == 0 {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: userID, Name: fields["name"].GetStringValue()}, nil
}
