// Package api serves the SMS parsing, webhook and transaction endpoints
// over HTTP.
package api

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Veraticus/cardwise/internal/common"
	"github.com/Veraticus/cardwise/internal/hybrid"
	"github.com/Veraticus/cardwise/internal/payment"
	"github.com/Veraticus/cardwise/internal/service"
	"github.com/Veraticus/cardwise/internal/smsparse"
)

// Dependencies are the components the handlers call.
type Dependencies struct {
	Regex    *smsparse.Parser
	Hybrid   *hybrid.Parser
	Store    service.TransactionStore
	Payments *payment.Processor
}

// Options configures the HTTP layer.
type Options struct {
	Environment string
	CORSOrigins string
	BodyLimit   int
	// Production hides internal error messages from callers.
	Production bool
}

// Server is the fiber application with its handlers.
type Server struct {
	app     *fiber.App
	deps    Dependencies
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
	started time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New builds the application and registers every route.
func New(deps Dependencies, opts Options, logger *slog.Logger, options ...Option) (*Server, error) {
	if deps.Regex == nil || deps.Hybrid == nil || deps.Store == nil || deps.Payments == nil {
		return nil, fmt.Errorf("%w: api needs the regex parser, hybrid parser, store and payment processor", common.ErrMissingConfig)
	}

	s := &Server{
		deps:   deps,
		opts:   opts,
		logger: common.LoggerOrDefault(logger),
		now:    time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	s.started = s.now()

	s.app = fiber.New(fiber.Config{
		AppName:               "cardwise",
		Immutable:             true,
		BodyLimit:             opts.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New(recover.Config{
		EnableStackTrace:  true,
		StackTraceHandler: s.logPanic,
	}))
	s.app.Use(requestID())
	s.app.Use(propagateRequestID)
	s.app.Use(accessLog(s.logger))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins(opts.CORSOrigins),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Request-ID",
		ExposeHeaders:    fiber.HeaderXRequestID,
		AllowCredentials: false,
	}))

	s.routes()
	return s, nil
}

func (s *Server) logPanic(c *fiber.Ctx, e any) {
	attrs := []any{"path", c.Path(), "panic", e, "request_id", common.RequestIDFrom(c.UserContext())}
	if !s.opts.Production {
		attrs = append(attrs, "stack", string(debug.Stack()))
	}
	s.logger.Error("panic in handler", attrs...)
}

func corsOrigins(origins string) string {
	if origins == "" {
		return "*"
	}
	return origins
}

func (s *Server) routes() {
	s.app.Get("/health", s.health)

	v1 := s.app.Group("/api/v1")

	sms := v1.Group("/sms")
	sms.Post("/parse", s.parseSMS)
	sms.Post("/validate", s.validateSMS)
	sms.Get("/banks", s.supportedBanks)
	sms.Get("/patterns", s.supportedPatterns)
	sms.Get("/stats", s.parsingStats)
	sms.Post("/test-pattern", s.testPattern)

	h := v1.Group("/hybrid-sms")
	h.Post("/parse", s.hybridParse)
	h.Post("/test", s.hybridTest)
	h.Get("/stats", s.hybridStats)
	h.Get("/stats/detailed", s.hybridDetailedStats)
	h.Get("/config", s.hybridConfig)
	h.Put("/config", s.updateHybridConfig)
	h.Post("/llm/enable", s.enableLLM)
	h.Post("/llm/disable", s.disableLLM)
	h.Post("/confidence-threshold", s.setConfidenceThreshold)
	h.Post("/cache/clear", s.clearCache)
	h.Get("/connection/test", s.testConnection)
	h.Post("/batch", s.hybridBatch)

	hooks := v1.Group("/webhooks")
	hooks.Post("/sms", s.smsWebhook)
	hooks.Post("/payment", s.paymentWebhook)

	txns := v1.Group("/transactions")
	txns.Get("/", s.listTransactions)
	txns.Get("/:id", s.getTransaction)
	txns.Get("/:id/status", s.transactionStatus)
	txns.Put("/:id/status", s.updateTransactionStatus)
	txns.Post("/:id/rewards", s.triggerRewards)

	v1.Get("/payments/stats", s.paymentStats)
}

// App returns the fiber application, for tests and custom listeners.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("HTTP server listening", "addr", addr, "environment", s.opts.Environment)
	if err := s.app.Listen(addr); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// ListenTLS serves HTTPS on addr with cert until Shutdown is called.
func (s *Server) ListenTLS(addr string, cert tls.Certificate) error {
	s.logger.Info("HTTPS server listening", "addr", addr, "environment", s.opts.Environment)
	if err := s.app.ListenTLSWithCertificate(addr, cert); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) health(c *fiber.Ctx) error {
	now := s.now()
	return respond(c, "Service is healthy", fiber.Map{
		"status":      "ok",
		"timestamp":   now.UTC().Format(time.RFC3339),
		"uptime":      now.Sub(s.started).Seconds(),
		"environment": s.opts.Environment,
	})
}
