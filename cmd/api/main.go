// Package main is the entry point for the reservation assistant server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/capitalize-ai/reservation-assistant/internal/channel/discord"
	"github.com/capitalize-ai/reservation-assistant/internal/config"
	"github.com/capitalize-ai/reservation-assistant/internal/dispatch"
	"github.com/capitalize-ai/reservation-assistant/internal/handler"
	"github.com/capitalize-ai/reservation-assistant/internal/llm"
	natsclient "github.com/capitalize-ai/reservation-assistant/internal/nats"
	"github.com/capitalize-ai/reservation-assistant/internal/orchestrator"
	"github.com/capitalize-ai/reservation-assistant/internal/service"
	"github.com/capitalize-ai/reservation-assistant/internal/store"
	"github.com/capitalize-ai/reservation-assistant/pkg/logger"
	"github.com/capitalize-ai/reservation-assistant/pkg/tracing"
)

const serviceName = "reservation-assistant"

func main() {
	cfg := config.Load()

	log, err := logger.NewForEnv(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	logger.SetGlobal(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting reservation assistant",
		zap.String("env", cfg.Env),
		zap.String("primary", cfg.Primary.Kind),
		zap.String("secondary", cfg.Secondary.Kind),
		zap.String("db_driver", cfg.DBDriver),
	)

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, serviceName, cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tracing.Shutdown(shutdownCtx, tp)
			}()
		}
	}

	// Reservation store
	st, err := store.Open(cfg.DBDriver, cfg.DBDSN, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	if cfg.SeedRooms {
		if err := st.SeedRooms(ctx, store.DefaultRooms()); err != nil {
			return fmt.Errorf("seed rooms: %w", err)
		}
	}

	// LLM providers
	primary, err := llm.NewClient(cfg.Primary)
	if err != nil {
		return fmt.Errorf("primary LLM: %w", err)
	}
	var secondary llm.Client
	if cfg.Secondary.Enabled() {
		secondary, err = llm.NewClient(cfg.Secondary)
		if err != nil {
			log.Warn("secondary LLM disabled", zap.Error(err))
			secondary = nil
		}
	}

	dispatcher := dispatch.New(st, log, dispatch.Options{StrictBookingFlow: cfg.StrictBookingFlow})
	orch, err := orchestrator.New(primary, secondary, dispatcher, orchestrator.Config{
		Timeout:        cfg.LLMTimeout,
		MaxToolRounds:  cfg.MaxToolRounds,
		HistoryLimit:   cfg.HistoryLimit,
		GroundingGuard: cfg.GroundingGuard,
		Temperature:    cfg.LLMTemperature,
		MaxTokens:      cfg.LLMMaxTokens,
		Hotel:          cfg.Hotel,
	}, log)
	if err != nil {
		return fmt.Errorf("create orchestrator: %w", err)
	}
	log.Info("LLM providers ready", zap.String("chain", orch.String()))

	// Optional transcript sink
	checks := map[string]handler.Pinger{"store": st}
	var (
		sink        service.TranscriptSink
		transcripts handler.TranscriptReader
	)
	if cfg.NATSURL != "" {
		natsClient, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		defer natsClient.Close()

		streamManager := natsclient.NewStreamManager(natsClient)
		if err := streamManager.EnsureStream(ctx); err != nil {
			return fmt.Errorf("ensure stream: %w", err)
		}
		sink, transcripts = streamManager, streamManager
		checks["nats"] = streamManager
	}

	// Services
	conversationSvc := service.NewConversationService(log)
	messageSvc := service.NewMessageService(conversationSvc, orch, dispatcher, sink, log)

	router := handler.NewRouter(handler.RouterConfig{
		Health:            handler.NewHealthHandler(checks),
		Messages:          handler.NewMessageHandler(messageSvc, log),
		Sessions:          handler.NewSessionHandler(conversationSvc, messageSvc, transcripts, log),
		Reservations:      handler.NewReservationHandler(st, log),
		JWTSecret:         cfg.JWTSecret,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		Logger:            log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return messageSvc.RunJanitor(gctx, cfg.SessionSweepInterval, cfg.SessionIdleTTL)
	})

	if cfg.DiscordBotToken != "" {
		listener := discord.NewListener(cfg.DiscordBotToken, messageSvc, log)
		g.Go(func() error {
			return listener.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
