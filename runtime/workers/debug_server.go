package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
	"wa-relay/contract"
)

var _ contract.Worker = (*DebugServerWorker)(nil)

// DebugServerWorker serves the Badger inspector while the relay runs.
type DebugServerWorker struct {
	log     *slog.Logger
	address string
	handler http.Handler
}

func NewDebugServerWorker(log *slog.Logger, address string, handler http.Handler) *DebugServerWorker {
	return &DebugServerWorker{log: log, address: address, handler: handler}
}

func (w *DebugServerWorker) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              w.address,
		Handler:           w.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Debug inspector available", "url", fmt.Sprintf("http://%s/inspect", w.address))
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		<-errChan
		return ctx.Err()
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("debug server error: %w", err)
	}
}
