package health

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported to grpc.health.v1 clients in addition
// to the overall ("") status.
const ServiceName = "speakwav.Synthesizer"

// GRPC serves grpc.health.v1.
type GRPC struct {
	port   int
	health *grpchealth.Server
	server *grpc.Server
}

// NewGRPC creates a gRPC health server. Status starts as NOT_SERVING.
func NewGRPC(port int) *GRPC {
	h := grpchealth.NewServer()
	h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, h)

	return &GRPC{port: port, health: h, server: srv}
}

// SetServing flips both the overall and the service status.
func (g *GRPC) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	g.health.SetServingStatus("", status)
	g.health.SetServingStatus(ServiceName, status)
}

// Serve accepts connections on lis until ctx is cancelled.
func (g *GRPC) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		g.health.Shutdown()
		g.server.GracefulStop()
	}()
	return g.server.Serve(lis)
}

// ListenAndServe listens on the configured port and serves until ctx is cancelled.
func (g *GRPC) ListenAndServe(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", g.port))
	if err != nil {
		return fmt.Errorf("grpc health listen: %w", err)
	}
	slog.Info("grpc health listening", "port", g.port)
	return g.Serve(ctx, lis)
}
