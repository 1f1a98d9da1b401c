package grpc

import (
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// MarkServing reports the server ready. Called once the database warm-up
// has settled.
func (s *GRPCServer) MarkServing() {
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
}

func (s *GRPCServer) MarkNotServing() {
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
}

func (s *GRPCServer) setStatus(st healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}
