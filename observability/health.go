package observability

import (
	"log/slog"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// SessionService is the health service name tracking the chat session.
const SessionService = "relay.session"

// HealthReporter publishes the chat session state through the standard
// gRPC health protocol. The overall status ("") follows the session.
type HealthReporter struct {
	log    *slog.Logger
	server *health.Server
}

func NewHealthReporter(log *slog.Logger) *HealthReporter {
	server := health.NewServer()
	server.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	server.SetServingStatus(SessionService, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthReporter{log: log, server: server}
}

// Server exposes the underlying implementation for registration on a gRPC server.
func (h *HealthReporter) Server() *health.Server {
	return h.server
}

func (h *HealthReporter) SetConnected(connected bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if connected {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.log.Debug("Session health changed", "status", status.String())
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(SessionService, status)
}

// Shutdown flips every service to NOT_SERVING and ignores later updates.
func (h *HealthReporter) Shutdown() {
	h.server.Shutdown()
}
