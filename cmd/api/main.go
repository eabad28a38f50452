// Package main is the entry point for the conversation tracker server.
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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/config"
	"github.com/jpisa-a11y/time-and-attention-ai/internal/handler"
	"github.com/jpisa-a11y/time-and-attention-ai/internal/ingest"
	"github.com/jpisa-a11y/time-and-attention-ai/internal/llm"
	"github.com/jpisa-a11y/time-and-attention-ai/internal/middleware"
	natsclient "github.com/jpisa-a11y/time-and-attention-ai/internal/nats"
	"github.com/jpisa-a11y/time-and-attention-ai/internal/service"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/logger"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/tracing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewForEnv(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting conversation tracker", zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "conversation-tracker", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	resetLoc, err := cfg.ResetLocation()
	if err != nil {
		return err
	}

	// Core
	tracker := service.NewConversationTracker(service.TrackerOptions{
		TranscriptRetention: cfg.TranscriptRetention,
	}, log.Named("tracker"))
	normalizer := ingest.NewNormalizer(tracker, nil, log.Named("ingest"))

	llmClient := llm.New(llm.Options{
		AnthropicKey: cfg.AnthropicAPIKey,
		OpenAIKey:    cfg.OpenAIAPIKey,
		Model:        cfg.LLMModel,
	})
	if llmClient == nil {
		log.Info("no LLM configured, using reply templates")
	} else {
		log.Info("LLM configured", zap.String("provider", llmClient.Name()))
	}
	assistant := service.NewAssistantService(llmClient, log.Named("assistant"))

	go tracker.RunDailyRollover(ctx, resetLoc)

	// Optional NATS ingest and event tap
	var natsClient *natsclient.Client
	if cfg.NATSEnabled {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		natsClient, err = natsclient.Connect(connectCtx, natsclient.Config{
			URL:      cfg.NATSURL,
			Token:    cfg.NATSToken,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
		}, log.Named("nats"))
		cancel()
		if err != nil {
			return err
		}
		defer natsClient.Close()

		consumer := natsclient.NewIngestConsumer(natsClient, normalizer, cfg.NATSIngestSubject, log.Named("nats"))
		if err := consumer.Start(ctx); err != nil {
			return err
		}
		defer consumer.Stop()

		if err := tracker.Subscribe(natsclient.NewTapSink(natsClient.Conn(), cfg.NATSEventSubjectPrefix, log.Named("tap"))); err != nil {
			return fmt.Errorf("failed to register event tap: %w", err)
		}
	}

	// Handlers
	var deps []handler.Dependency
	if natsClient != nil {
		deps = append(deps, handler.Dependency{Name: "nats", Healthy: natsClient.IsConnected})
	}
	healthHandler := handler.NewHealthHandler(tracker, deps...)
	assistantHandler := handler.NewAssistantHandler(tracker, normalizer, assistant, log.Named("assistant"))
	webhookHandler := handler.NewWebhookHandler(tracker, normalizer, assistant, handler.WebhookOptions{
		VapiAssistant: ingest.VapiAssistantOptions{
			Name:         cfg.VapiAssistantName,
			FirstMessage: cfg.VapiFirstMessage,
			ServerURL:    publicURL(cfg.PublicBaseURL, "/api/webhooks/vapi"),
			ServerSecret: cfg.VapiServerSecret,
		},
		VapiSIPURI: cfg.VapiSIPURI,
	}, log.Named("webhooks"))
	observerHandler := handler.NewObserverHandler(ctx, tracker, handler.ObserverOptions{
		SendBuffer:     cfg.WSSendBuffer,
		WriteTimeout:   cfg.WSWriteTimeout,
		PingInterval:   cfg.WSPingInterval,
		OriginPatterns: cfg.WSOriginPatterns,
	}, log.Named("observers"))

	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log.Named("http")))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", observerHandler.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)

		r.Route("/assistant", func(r chi.Router) {
			r.Get("/status", assistantHandler.Status)
			r.Get("/conversations", assistantHandler.Conversations)
			r.Get("/conversations/{id}", assistantHandler.Conversation)
			r.Get("/stats", assistantHandler.Stats)

			r.With(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow)).
				Post("/chat", assistantHandler.Chat)
			r.Post("/chat/{id}/end", assistantHandler.EndChat)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWTSecret))
				r.With(middleware.RequireScope(middleware.ScopeStatsReset)).
					Post("/stats/reset", assistantHandler.ResetStats)
			})
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

			r.With(middleware.VapiSecret(cfg.VapiServerSecret)).Post("/vapi", webhookHandler.Vapi)

			r.Route("/twilio", func(r chi.Router) {
				r.Use(middleware.TwilioSignature(cfg.TwilioAuthToken, cfg.PublicBaseURL, cfg.TwilioValidateWebhooks, log.Named("twilio")))
				r.Post("/voice", webhookHandler.TwilioVoice)
				r.Post("/voice/status", webhookHandler.TwilioVoiceStatus)
				r.Post("/sms", webhookHandler.TwilioSMS)
			})
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}

func publicURL(base, path string) string {
	if base == "" {
		return ""
	}
	return base + path
}
