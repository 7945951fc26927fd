package workers

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"
	"wa-relay/observability"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthServerWorker_ReportsSessionState(t *testing.T) {
	req := require.New(t)
	reporter := observability.NewHealthReporter(slog.Default())

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)

	worker := NewHealthServerWorker(slog.Default(), listener.Addr().String(), reporter)
	worker.listen = func(string, string) (net.Listener, error) { return listener, nil }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	conn, err := grpc.NewClient(listener.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	req.NoError(err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	check := func() healthpb.HealthCheckResponse_ServingStatus {
		callCtx, callCancel := context.WithTimeout(context.Background(), time.Second)
		defer callCancel()
		resp, err := client.Check(callCtx, &healthpb.HealthCheckRequest{Service: observability.SessionService})
		if err != nil {
			return healthpb.HealthCheckResponse_UNKNOWN
		}
		return resp.GetStatus()
	}

	// Given a session that is not connected yet
	req.Eventually(func() bool {
		return check() == healthpb.HealthCheckResponse_NOT_SERVING
	}, 2*time.Second, 10*time.Millisecond)

	// When the session connects
	reporter.SetConnected(true)

	// Then the health service reports SERVING
	req.Equal(healthpb.HealthCheckResponse_SERVING, check())

	cancel()
	req.ErrorIs(<-done, context.Canceled)
}

func TestHealthServerWorker_ListenFailure(t *testing.T) {
	worker := NewHealthServerWorker(slog.Default(), "256.0.0.1:bad", observability.NewHealthReporter(slog.Default()))

	err := worker.Run(context.Background())

	require.Error(t, err)
}
