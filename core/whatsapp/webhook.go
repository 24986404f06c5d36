package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/m3rciful/leadbot/core/engine"
	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/router"
)

const (
	maxBodyBytes    = 1 << 20
	signatureHeader = "X-Hub-Signature-256"
)

// EventHandler processes one inbound event. *engine.Engine satisfies it.
type EventHandler interface {
	Handle(ctx context.Context, ev router.Event) (engine.Result, error)
}

// Webhook serves the Cloud API webhook: GET for the subscription handshake, POST for notifications.
type Webhook struct {
	verifyToken string
	appSecret   string
	handler     EventHandler
}

// NewWebhook returns the endpoint. An empty appSecret disables signature checks.
func NewWebhook(verifyToken, appSecret string, h EventHandler) *Webhook {
	return &Webhook{verifyToken: verifyToken, appSecret: appSecret, handler: h}
}

// ServeHTTP implements http.Handler.
func (w *Webhook) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.verify(rw, r)
	case http.MethodPost:
		w.receive(rw, r)
	default:
		rw.Header().Set("Allow", "GET, POST")
		writeJSON(rw, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	}
}

// verify answers the subscription handshake with the challenge when the token matches.
func (w *Webhook) verify(rw http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "subscribe" && VerifyToken(w.verifyToken, token) {
		logger.Info(r.Context(), "whatsapp", "webhook.verify", slog.String("status", "ok"))
		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		rw.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(rw, challenge)
		return
	}
	logger.Warn(r.Context(), "whatsapp", "webhook.verify",
		slog.String("status", "fail"),
		slog.String("mode", mode),
	)
	writeJSON(rw, http.StatusForbidden, map[string]string{"error": "Verification failed"})
}

// VerifyToken reports whether got matches the configured token. An unset token never matches.
func VerifyToken(want, got string) bool {
	if want == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

func (w *Webhook) receive(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if traceID, spanID, ok := logger.ParseTraceparent(r.Header.Get("traceparent")); ok {
		ctx = logger.WithTrace(ctx, traceID, spanID)
	}
	body, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, maxBodyBytes))
	if err != nil {
		logger.Warn(ctx, "whatsapp", "webhook.read", slog.String("err", err.Error()))
		writeJSON(rw, http.StatusRequestEntityTooLarge, map[string]string{"error": "Payload too large"})
		return
	}

	if w.appSecret != "" && !ValidSignature(w.appSecret, body, r.Header.Get(signatureHeader)) {
		logger.Warn(ctx, "whatsapp", "webhook.signature", slog.String("status", "fail"))
		writeJSON(rw, http.StatusUnauthorized, map[string]string{"error": "Invalid signature"})
		return
	}

	p, err := ParsePayload(body)
	if err != nil {
		// Malformed bodies are acknowledged without processing.
		logger.Warn(ctx, "whatsapp", "webhook.parse",
			slog.String("status", "ignored"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 200)),
		)
		writeJSON(rw, http.StatusOK, map[string]bool{"received": true})
		return
	}

	events := p.Events()
	logger.Debug(ctx, "whatsapp", "webhook.receive",
		slog.Int("count", len(events)),
		slog.Int("statuses", p.StatusCount()),
	)
	for _, ev := range events {
		w.dispatch(ctx, ev)
	}
	writeJSON(rw, http.StatusOK, map[string]bool{"received": true})
}

func (w *Webhook) dispatch(ctx context.Context, ev router.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error(ctx, "whatsapp", "webhook.panic",
				slog.Any("err", rec),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	if w.handler == nil {
		return
	}
	// Errors are already logged by the engine summary; the platform still gets its 200.
	_, _ = w.handler.Handle(ctx, ev)
}

// ValidSignature checks an X-Hub-Signature-256 header ("sha256=<hex>") against body.
func ValidSignature(secret string, body []byte, header string) bool {
	header = strings.TrimSpace(header)
	if secret == "" || !strings.HasPrefix(header, "sha256=") {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, "sha256="))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// Sign returns the X-Hub-Signature-256 value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
