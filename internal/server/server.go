package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"walletMonitor/internal/model"
	"walletMonitor/internal/monitor"
)

const (
	WebhookPath = "/api/webhook"
	maxBodySize = 4 << 20
)

// Handler is the ingestion side of the monitor.
type Handler interface {
	Handle(ctx context.Context, event model.WebhookEvent) (monitor.Outcome, error)
}

type Config struct {
	Listen        string
	WebhookSecret string
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// Server exposes the webhook endpoint, health and metrics.
type Server struct {
	cfg     Config
	handler Handler
	logger  *zap.Logger
	router  *gin.Engine
	http    *http.Server
}

func New(cfg Config, handler Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		router:  router,
	}
	s.setupRoutes()
	s.http = &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Any(WebhookPath, s.webhook)
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.cfg.Gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{})))
	}
}

// Router returns the HTTP handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe blocks until the server stops. A clean shutdown returns nil.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", zap.String("addr", s.cfg.Listen))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) webhook(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
		return
	}
	if !s.authorized(c.GetHeader("Authorization")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodySize))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"skipped": true, "message": "unreadable body"})
		return
	}
	event, err := model.DecodeWebhookBody(body)
	if err != nil {
		s.logger.Debug("malformed webhook body", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"skipped": true, "message": "malformed body"})
		return
	}
	if event == nil {
		c.JSON(http.StatusOK, gin.H{"skipped": true, "message": "empty body"})
		return
	}

	outcome, err := s.handler.Handle(c.Request.Context(), *event)
	if err != nil {
		s.logger.Error("webhook handling failed", zap.String("signature", event.Signature), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store transaction"})
		return
	}
	if outcome.Skipped {
		c.JSON(http.StatusOK, gin.H{"skipped": true, "reason": outcome.Reason})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) authorized(header string) bool {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || s.cfg.WebhookSecret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.WebhookSecret)) == 1
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
