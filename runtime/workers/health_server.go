package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"wa-relay/contract"
	"wa-relay/observability"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var _ contract.Worker = (*HealthServerWorker)(nil)

// HealthServerWorker exposes the standard gRPC health service on address.
// The listener is opened on every Run so a restarted worker binds again.
type HealthServerWorker struct {
	log      *slog.Logger
	address  string
	reporter *observability.HealthReporter
	listen   func(network, address string) (net.Listener, error)
}

func NewHealthServerWorker(log *slog.Logger, address string, reporter *observability.HealthReporter) *HealthServerWorker {
	return &HealthServerWorker{log: log, address: address, reporter: reporter, listen: net.Listen}
}

func (w *HealthServerWorker) Run(ctx context.Context) error {
	listener, err := w.listen("tcp", w.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", w.address, err)
	}
	return w.serve(ctx, listener)
}

func (w *HealthServerWorker) serve(ctx context.Context, listener net.Listener) error {
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, w.reporter.Server())

	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting gRPC health server", "address", listener.Addr().String())
		errChan <- s.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		w.log.Info("Stopping gRPC health server")
		s.GracefulStop()
		<-errChan
		return ctx.Err()
	case err := <-errChan:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC health server error: %w", err)
		}
		return nil
	}
}
