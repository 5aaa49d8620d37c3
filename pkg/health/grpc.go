package health

import (
	"context"
	"errors"
	"net"

	"admin-dashboard/backend/pkg/logger"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCServer exposes the grpc.health.v1 service for orchestrators that probe
// over gRPC.
type GRPCServer struct {
	server *grpc.Server
	addr   string
	log    *logger.Logger
}

// NewGRPCServer registers the checker's health service on a new gRPC server.
func NewGRPCServer(addr string, checker *Checker, log *logger.Logger) *GRPCServer {
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, checker.GRPCServer())
	return &GRPCServer{server: s, addr: addr, log: log}
}

// Serve listens on the configured address and blocks until ctx is done.
func (g *GRPCServer) Serve(ctx context.Context) error {
	lis, err := net.Listen("tcp", g.addr)
	if err != nil {
		return err
	}
	return g.ServeListener(ctx, lis)
}

// ServeListener serves on lis until ctx is done, then stops gracefully.
func (g *GRPCServer) ServeListener(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		g.server.GracefulStop()
	}()

	g.log.Info("gRPC health server listening", "addr", lis.Addr().String())
	if err := g.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
