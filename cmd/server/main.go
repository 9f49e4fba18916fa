package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"officepulse/auth"
	"officepulse/contract"
	"officepulse/infrastructure/assistant"
	grpcserver "officepulse/infrastructure/grpc/server"
	"officepulse/infrastructure/storage"
	"officepulse/infrastructure/websocket"
	"officepulse/internal"
	"officepulse/moderation"
	"officepulse/observability"
	"officepulse/runtime"
	"officepulse/runtime/workers"
	"officepulse/services"

	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run builds every component, serves until SIGINT/SIGTERM, then tears things down in reverse order.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	config, err := internal.Load()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Chat archive (BadgerDB, in memory when no path is set)
	db, err := storage.OpenBadger(config.BadgerFilepath)
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()
	archive := storage.NewHistoryRepository(db, log)

	// 3. Content policy
	keywords, err := runtime.DefaultKeywords()
	if err != nil {
		return fmt.Errorf("keyword lists: %w", err)
	}
	classifier, err := moderation.NewKeywordClassifier(keywords.Greetings(), keywords.Topics())
	if err != nil {
		return fmt.Errorf("keyword classifier: %w", err)
	}
	filter := moderation.NewContentFilter(classifier, config.MaxMessageLength)

	// 4. Dispatcher & supervised workers
	dispatcher := runtime.NewDispatcher(log, runtime.DispatcherConfig{
		BufferSize:      config.CommandBufferSize,
		CommunityScope:  config.CommunityScope,
		HistoryCapacity: config.HistoryCapacity,
		HistoryOnJoin:   config.HistoryOnJoin,
		TypingTimeout:   config.TypingTimeout,
		IceServers:      config.ICEServerList(),
	}, filter)

	var completer contract.Completer
	if config.AssistantAPIKey != "" {
		completer = assistant.NewClient(assistant.Config{
			URL:    config.AssistantURL,
			APIKey: config.AssistantAPIKey,
			Model:  config.AssistantModel,
		}, &http.Client{})
	} else {
		log.Warn("ASSISTANT_API_KEY is not set, the assistant will answer with its fallback reply")
	}

	sampler, err := observability.NewProcessSampler()
	if err != nil {
		log.Warn("Process metrics unavailable", "error", err)
	}

	sup := workers.NewSupervisor(log, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(log, sup, dispatcher, archive, completer, runtime.OrchestratorConfig{
		TypingSweepInterval:  config.TypingSweepInterval,
		MetricInterval:       config.MetricInterval,
		LowCapacityThreshold: config.LowCapacityThreshold,
		AssistantWorkers:     config.AssistantWorkers,
		AssistantQueueSize:   config.AssistantQueueSize,
		AssistantTimeout:     config.AssistantTimeout,
		ArchiveBufferSize:    config.CommandBufferSize,
		TelemetryInterval:    config.TelemetryInterval,
	})

	if sampler != nil {
		orchestrator.WithSampler(sampler)
	}

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	grpcAddress := fmt.Sprintf("%s:%d", config.Host, config.GrpcPort)
	listener, err := net.Listen("tcp", grpcAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", grpcAddress, err)
	}

	errChan := make(chan error, 3)
	// closed once every worker has returned, the archive is then idle
	orchestratorDone := make(chan struct{})
	go func() {
		defer close(orchestratorDone)
		if err := orchestrator.Start(ctx); err != nil {
			errChan <- fmt.Errorf("orchestrator error: %w", err)
		}
	}()

	// 6. gRPC health
	health := grpcserver.NewHealthServer(log)
	go func() {
		if err := health.Serve(ctx, listener); err != nil {
			errChan <- err
		}
	}()

	// 7. Websocket endpoints
	var verifier *auth.Verifier
	if config.AuthSecret != "" {
		verifier = auth.NewVerifier(config.AuthSecret)
	}
	server := websocket.NewServer(log, websocket.Config{
		Host:                 config.Host,
		Port:                 config.Port,
		AllowedOrigins:       config.Origins(),
		ConnectionBufferSize: config.ConnectionBufferSize,
	}, services.NewSocketService(log, dispatcher), dispatcher, sampler, verifier)
	go func() {
		if err := server.ListenAndServe(ctx); err != nil {
			errChan <- err
		}
	}()

	// 8. Wait for Stop or Error
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case runErr = <-errChan:
		stop()
	}

	// 9. Final Cleanup, workers drain before the deferred database close
	orchestrator.Stop()
	<-orchestratorDone
	if runErr != nil {
		return runErr
	}
	log.Info("Program stopped cleanly")
	return nil
}
