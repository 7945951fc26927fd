package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"wa-relay/contract"
	"wa-relay/errors"
	"wa-relay/internal"
	"wa-relay/llm"
	"wa-relay/moderation"
	"wa-relay/observability"
	"wa-relay/relay"
	"wa-relay/repositories"
	"wa-relay/runtime"
	"wa-relay/runtime/workers"
	"wa-relay/sink"
	"wa-relay/transport/whatsapp"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the relay lifecycle, and centralizes error reporting.
// Returning instead of exiting lets every deferred Close run before the process ends.
func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.Load()
	if err != nil {
		return exitConfig, err
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitoring := observability.NewMonitoringManager()
	health := observability.NewHealthReporter(log)
	defer health.Shutdown()

	// 2. Record store
	var extraWorkers []contract.Worker
	var repository repositories.IMessageRepository
	switch config.StoreDriver {
	case internal.StoreSQLite:
		sqliteRepository, err := repositories.NewMessageRepository(ctx, config.SQLiteFilepath, log, config.LimitMessages)
		if err != nil {
			return exitRuntime, fmt.Errorf("database opening failed: %w", err)
		}
		repository = sqliteRepository
	case internal.StoreBadger:
		db, err := badger.Open(buildBadgerOpts(ctx, config, log))
		if err != nil {
			return exitRuntime, fmt.Errorf("database opening failed: %w", err)
		}
		defer func() {
			log.Info("Closing BadgerDB...")
			_ = db.Close()
		}()
		repository = repositories.NewBadgerMessageRepository(db, log, config.LimitMessages)

		if log.Enabled(ctx, slog.LevelDebug) {
			inspector := internal.NewInspector(db, "msg:", repositories.InspectMessage, func() map[string]any {
				stats := monitoring.GetLatest()
				return map[string]any{"received": stats.Received, "stored": stats.Stored, "queue": stats.QueueSize}
			})
			address := fmt.Sprintf("%s:%d", config.Host, config.DebugPort)
			extraWorkers = append(extraWorkers, workers.NewDebugServerWorker(log, address, inspector.Handler("/inspect")))
		}
	default:
		return exitConfig, fmt.Errorf("%w: %q", errors.ErrUnknownStore, config.StoreDriver)
	}
	defer func() {
		log.Info("Closing record store...")
		_ = repository.Close()
	}()

	// 3. Sinks & moderation
	var sinks []contract.MessageSink
	if config.BlugeFilepath != "" {
		blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
		if err != nil {
			return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
		}
		defer func() {
			log.Info("Closing Bluge...")
			_ = blugeWriter.Close()
		}()
		sinks = append(sinks, sink.NewSearchSink(blugeWriter, log))
	}

	var moderator *moderation.Moderator
	if config.CensoredDir != "" {
		data, err := runtime.NewCensoredLoader(os.DirFS(config.CensoredDir)).LoadAll(".")
		if err != nil {
			return exitConfig, fmt.Errorf("failed to load censored words: %w", err)
		}
		log.Info("Censored words loaded", "count", len(data.Words), "languages", data.Languages)
		if moderator, err = moderation.NewModerator(data.Words, charReplacement, log); err != nil {
			return exitRuntime, err
		}
	}

	// 4. Completion provider
	completer, err := llm.New(ctx, llm.Config{
		Provider: config.CompletionProvider,
		APIKey:   config.APIKey(),
		BaseURL:  config.OpenAIBaseURL,
		Model:    config.CompletionModel,
	})
	if err != nil {
		return exitConfig, err
	}

	// 5. Chat session, router & orchestration
	session, err := whatsapp.NewSession(ctx, log, config.SessionFilepath, health, os.Stdout)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		log.Info("Closing session store...")
		_ = session.Close()
	}()

	router := relay.NewRouter(log, repository, completer, session, monitoring, config.TriggerPrefix).
		WithSinks(config.SinkTimeout, sinks...).
		WithModerator(moderator).
		AllowGroups(config.AllowGroups)

	sup := workers.NewSupervisor(log, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(log, sup, router, config.NumberOfWorkers, config.BufferSize)
	monitoring.TrackQueue(orchestrator.QueueSize)
	session.Attach(orchestrator)

	orchestrator.Add(
		session,
		workers.NewHeartbeatWorker(log, monitoring, config.MetricInterval),
		workers.NewHealthServerWorker(log, config.Host+":"+strconv.Itoa(config.Port), health),
	)
	orchestrator.Add(extraWorkers...)

	// 6. Start the Engine
	if err := orchestrator.Start(ctx); err != nil {
		return exitRuntime, fmt.Errorf("orchestrator failed to start: %w", err)
	}
	log.Info("Relay started", "store", config.StoreDriver, "provider", config.CompletionProvider, "prefix", config.TriggerPrefix)

	// 7. Wait for Stop
	<-ctx.Done()
	log.Info("Shutting down gracefully...")
	orchestrator.Stop()
	log.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(ctx context.Context, config internal.Config, log *slog.Logger) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if log.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG)
	}
	return options.WithLoggingLevel(badger.WARNING)
}
