package handler

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"veritas/internal/service/cas"
)

const (
	ArchiveServiceName = "veritas.Archive"
	StoreServiceName   = "veritas.ContentStore"
)

// NewGRPCServer exposes the standard health service. The content store
// reports NOT_SERVING while it runs degraded.
func NewGRPCServer(mode cas.Mode) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer()
	hs := health.NewServer()

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ArchiveServiceName, healthpb.HealthCheckResponse_SERVING)
	if mode == cas.ModeNetwork {
		hs.SetServingStatus(StoreServiceName, healthpb.HealthCheckResponse_SERVING)
	} else {
		hs.SetServingStatus(StoreServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	}

	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	return srv, hs
}
