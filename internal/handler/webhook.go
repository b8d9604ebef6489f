package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/nardwin/platform/internal/domain"
	"github.com/nardwin/platform/internal/service"
)

// WebhookHandler handles the gateway's push callback and the payer's browser
// redirect, the two externally triggered reconciliation channels.
type WebhookHandler struct {
	reconciler *service.Reconciler
	gateway    service.PaymentGateway
	logger     *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(reconciler *service.Reconciler, gateway service.PaymentGateway, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler, gateway: gateway, logger: logger}
}

// oxapayCallback is the gateway's status report. Status arrives as a number
// on webhooks and as a string on some sandbox payloads, so it decodes loosely.
type oxapayCallback struct {
	OrderID string      `json:"order_id"`
	TrackID interface{} `json:"track_id"`
	Status  interface{} `json:"status"`
}

// HandleOxapayWebhook handles POST /webhooks/oxapay.
// IMPORTANT: This handler must receive the raw request body (no JSON middleware parsing).
func (h *WebhookHandler) HandleOxapayWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		h.logger.Error("read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.gateway.VerifyWebhookSignature(body, r.Header.Get("HMAC")); err != nil {
		h.logger.Warn("webhook signature rejected", "error", err)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var cb oxapayCallback
	if err := json.Unmarshal(body, &cb); err != nil || cb.OrderID == "" {
		h.logger.Warn("malformed webhook payload", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	signal := domain.CanonicalSignal(looseString(cb.Status))
	trackID := looseStringPtr(cb.TrackID)

	if _, err := h.reconciler.Resolve(r.Context(), cb.OrderID, trackID, signal, service.ChannelPush); err != nil {
		h.logger.Error("process gateway webhook", "order_id", cb.OrderID, "error", err)
		RespondError(w, err)
		return
	}

	// The gateway retries anything but 200.
	w.WriteHeader(http.StatusOK)
}

// HandleRedirectCallback handles GET /wallet/payment/callback, the payer
// returning from the hosted payment page. The reported status is untrusted
// client input; it still flows through the same conditional transition, so a
// forged success cannot overwrite a settled outcome and a credit happens at
// most once.
func (h *WebhookHandler) HandleRedirectCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orderID := q.Get("orderId")
	if orderID == "" {
		RespondError(w, domain.ErrValidation("orderId is required"))
		return
	}

	signal := domain.CanonicalSignal(q.Get("status"))
	var trackID *string
	if t := q.Get("trackId"); t != "" {
		trackID = &t
	}

	entry, err := h.reconciler.Resolve(r.Context(), orderID, trackID, signal, service.ChannelRedirect)
	if err != nil {
		h.logger.Error("process redirect callback", "order_id", orderID, "error", err)
		http.Redirect(w, r, "/wallet?payment=error", http.StatusFound)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/wallet?payment=%s", entry.PaymentStatus), http.StatusFound)
}

func looseString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return fmt.Sprintf("%.0f", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func looseStringPtr(v interface{}) *string {
	s := looseString(v)
	if s == "" {
		return nil
	}
	return &s
}
