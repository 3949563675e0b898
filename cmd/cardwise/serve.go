package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/cardwise/internal/api"
	"github.com/Veraticus/cardwise/internal/certs"
	"github.com/Veraticus/cardwise/internal/payment"
	"github.com/Veraticus/cardwise/internal/rewards"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Start the HTTP API serving SMS parsing, hybrid parser controls,
SMS and payment webhooks and the stored transactions.

The server stops gracefully on SIGINT or SIGTERM.`,
		RunE: runServe,
	}

	cmd.Flags().Int("port", 8080, "port to listen on")
	cmd.Flags().String("environment", "development", "environment name; production hides internal errors")
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed certificate from server.cert_dir")
	_ = viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.environment", cmd.Flags().Lookup("environment"))
	_ = viper.BindPFlag("server.tls", cmd.Flags().Lookup("tls"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Error("failed to close storage", "error", closeErr)
		}
	}()

	p, err := buildParsers(cfg, false)
	if err != nil {
		return err
	}
	if cfg.Parser.UseLLM && !p.hybrid.TestConnection(ctx) {
		logger.Warn("Ollama is not reachable, SMS will be parsed with bank patterns until it is",
			"url", cfg.LLM.OllamaURL,
			"model", cfg.LLM.Model)
	}

	payments, err := payment.NewProcessor(store,
		rewards.NewCalculator(logger),
		rewards.NewLogNotifier(logger),
		logger)
	if err != nil {
		return fmt.Errorf("failed to create payment processor: %w", err)
	}

	server, err := api.New(api.Dependencies{
		Regex:    p.regex,
		Hybrid:   p.hybrid,
		Store:    store,
		Payments: payments,
	}, api.Options{
		Environment: cfg.Server.Environment,
		CORSOrigins: cfg.Server.CORSOrigins,
		BodyLimit:   cfg.Server.BodyLimit,
		Production:  cfg.Server.Production(),
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}

	listen := func() error { return server.Listen(cfg.Server.Address()) }
	if cfg.Server.TLS {
		mgr := certs.NewFileManager(cfg.Server.CertDir)
		cert, err := mgr.GetOrCreateCertificate()
		if err != nil {
			return fmt.Errorf("failed to load TLS certificate: %w", err)
		}
		logger.Info("Serving HTTPS with self-signed certificate", "cert", mgr.CertFile())
		listen = func() error { return server.ListenTLS(cfg.Server.Address(), cert) }
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("HTTP server stopped")
	return nil
}
