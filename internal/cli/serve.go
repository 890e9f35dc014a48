package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nahidhasan98/review-relay/internal/config"
	"github.com/nahidhasan98/review-relay/internal/github"
	"github.com/nahidhasan98/review-relay/internal/handlers"
	"github.com/nahidhasan98/review-relay/internal/logger"
	"github.com/nahidhasan98/review-relay/internal/notify"
	"github.com/nahidhasan98/review-relay/internal/registry"
	"github.com/nahidhasan98/review-relay/internal/relay"
	"github.com/nahidhasan98/review-relay/internal/review"
	"github.com/nahidhasan98/review-relay/internal/server"
	"github.com/nahidhasan98/review-relay/internal/webhook"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server",
	RunE:  runServe,
}

// service holds everything the server needs for its lifetime
type service struct {
	cfg      *config.Config
	log      *logger.Logger
	registry registry.Registry
	notifier notify.Notifier
	handler  *handlers.Handler
	errChan  chan error
}

func runServe(cmd *cobra.Command, args []string) error {
	// Create a context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	svc, err := initialize(ctx)
	if err != nil {
		return fmt.Errorf("initialization error: %w", err)
	}
	defer svc.close()

	svc.startNotifier(ctx, &wg)
	svc.startWebServer(ctx, &wg)
	svc.waitForShutdown(cancel, &wg)

	return nil
}

func initialize(ctx context.Context) (*service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info("Starting review relay")

	reg, err := registry.Open(cfg.Registry, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}

	notifier, err := notify.New(ctx, cfg, log)
	if err != nil {
		reg.Close()
		return nil, fmt.Errorf("failed to create %s notifier: %w", cfg.Notifier.Backend, err)
	}

	fetcher, err := github.NewFetcher(github.Config{
		Token:       cfg.GitHub.Token,
		BaseURL:     cfg.GitHub.APIURL,
		Timeout:     cfg.GitHub.FetchTimeout,
		Concurrency: cfg.GitHub.FetchConcurrency,
	}, log)
	if err != nil {
		reg.Close()
		return nil, err
	}

	engine := review.NewOpenAIEngine(review.OpenAIConfig{
		BaseURL:     cfg.Review.BaseURL,
		APIKey:      cfg.Review.APIKey,
		Model:       cfg.Review.Model,
		Temperature: cfg.Review.Temperature,
		MaxTokens:   cfg.Review.MaxTokens,
		Timeout:     cfg.Review.Timeout,
	}, log)
	reviewer := review.NewReviewer(engine, cfg.Review.PromptPrefix, cfg.Review.MaxPromptChars, log)

	orchestrator := webhook.NewOrchestrator(cfg.GitHub.WebhookSecret, fetcher, log)
	rel := relay.New(reg, notifier, reviewer, log)

	return &service{
		cfg:      cfg,
		log:      log,
		registry: reg,
		notifier: notifier,
		handler:  handlers.New(orchestrator, rel, reg, notifier, cfg.Server.MaxBodyBytes, log),
		errChan:  make(chan error, 2),
	}, nil
}

// startNotifier connects notifiers that keep a session, i.e. WhatsApp
func (s *service) startNotifier(ctx context.Context, wg *sync.WaitGroup) {
	wa, ok := s.notifier.(*notify.WhatsAppNotifier)
	if !ok {
		s.log.Infof("Using %s notifier", s.notifier.Name())
		return
	}

	wg.Go(func() {
		defer func() {
			wa.Stop()
			s.log.Info("WhatsApp client shutdown complete")
		}()

		s.log.Info("Starting WhatsApp client...")
		if err := wa.Start(ctx); err != nil {
			s.errChan <- fmt.Errorf("failed to connect to WhatsApp: %w", err)
			return
		}

		// Reconnections are handled by the notifier
		<-ctx.Done()
		s.log.Info("WhatsApp client shutting down...")
	})
}

func (s *service) startWebServer(ctx context.Context, wg *sync.WaitGroup) {
	wg.Go(func() {
		s.log.Info("Starting HTTP server...")

		httpServer := server.New(s.cfg, s.handler, s.log)
		if err := httpServer.Start(s.errChan); err != nil {
			s.errChan <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}

		// Keep the server running until shutdown
		<-ctx.Done()
		s.log.Info("HTTP server shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error("Error during HTTP server shutdown", err)
		}
	})
}

func (s *service) waitForShutdown(cancel context.CancelFunc, wg *sync.WaitGroup) {
	// Wait for either service to fail or for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-s.errChan:
		s.log.Error("Service failed", err)
	case <-sigChan:
		s.log.Info("Received shutdown signal")
	}

	// Cancel context to signal goroutines to shutdown
	cancel()

	// Wait for all goroutines to finish
	wg.Wait()

	s.log.Info("Application stopped")
}

func (s *service) close() {
	if err := s.registry.Close(); err != nil {
		s.log.Error("Failed to close registry", err)
	}
}
