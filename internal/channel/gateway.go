// Package channel exposes the assistant over HTTP. The upstream transport
// (an SMS/MMS webhook adapter) posts already-normalized messages here.
package channel

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"assistbot/internal/domain"
	"assistbot/internal/metrics"
)

const maxBodySize = 1 << 20

// MessageHandler turns one normalized message into a reply.
type MessageHandler interface {
	Handle(ctx context.Context, msg domain.InboundMessage) domain.Reply
}

// GatewayConfig configures the gateway server.
type GatewayConfig struct {
	Host            string
	Port            int
	Path            string // message endpoint (default: /message)
	Secret          string // HMAC secret for verifying X-Signature-256
	MetricsEnabled  bool
	MetricsEndpoint string
	Logger          *slog.Logger
}

// Gateway serves POST <path> and answers each message synchronously.
type Gateway struct {
	host            string
	port            int
	path            string
	secret          string
	metricsEnabled  bool
	metricsEndpoint string
	handler         MessageHandler
	logger          *slog.Logger
	server          *http.Server
}

func NewGateway(cfg GatewayConfig, handler MessageHandler) *Gateway {
	if cfg.Path == "" {
		cfg.Path = "/message"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.MetricsEndpoint == "" {
		cfg.MetricsEndpoint = "/metrics"
	}
	return &Gateway{
		host:            cfg.Host,
		port:            cfg.Port,
		path:            cfg.Path,
		secret:          cfg.Secret,
		metricsEnabled:  cfg.MetricsEnabled,
		metricsEndpoint: cfg.MetricsEndpoint,
		handler:         handler,
		logger:          cfg.Logger,
	}
}

// Routes returns the gateway's HTTP handler.
func (g *Gateway) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+g.path, g.handleMessage)
	mux.HandleFunc("GET /health", g.handleHealth)
	if g.metricsEnabled {
		mux.HandleFunc("GET "+g.metricsEndpoint, metrics.Collector.Handler())
	}
	return mux
}

// Start runs the HTTP server until ctx is cancelled.
func (g *Gateway) Start(ctx context.Context) error {
	g.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", g.host, g.port),
		Handler:           g.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g.logger.Info("gateway starting", "addr", g.server.Addr, "path", g.path, "metrics", g.metricsEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		g.logger.Info("gateway shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return g.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("gateway server: %w", err)
	}
}

func (g *Gateway) handleMessage(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(rw, "Bad Request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if g.secret != "" {
		sig := r.Header.Get("X-Signature-256")
		if sig == "" {
			http.Error(rw, "Missing signature", http.StatusUnauthorized)
			return
		}
		if !verifyHMAC(body, g.secret, sig) {
			http.Error(rw, "Invalid signature", http.StatusForbidden)
			return
		}
	}

	var msg domain.InboundMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		http.Error(rw, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if msg.SenderID == "" {
		http.Error(rw, "sender_id is required", http.StatusBadRequest)
		return
	}
	if msg.MediaCount < 0 {
		http.Error(rw, "media_count must not be negative", http.StatusBadRequest)
		return
	}
	msg.Timestamp = time.Now()

	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = uuid.New().String()
	}
	g.logger.Debug("message received", "request_id", reqID, "sender", msg.SenderID, "media", msg.MediaCount)

	reply := g.handler.Handle(r.Context(), msg)

	rw.Header().Set("X-Request-ID", reqID)
	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(reply)
}

func (g *Gateway) handleHealth(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(map[string]any{
		"status": "ok",
		"uptime": metrics.Collector.Uptime().Round(time.Second).String(),
		"time":   time.Now().Format(time.RFC3339),
	})
}

// verifyHMAC verifies the HMAC-SHA256 signature of the body.
func verifyHMAC(body []byte, secret, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
