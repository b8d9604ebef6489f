package handler

import (
	"net/http"

	"github.com/nardwin/platform/internal/domain"
	"github.com/nardwin/platform/internal/service"
)

// PaymentHandler handles deposit intents, server-side verification and the
// public price quote.
type PaymentHandler struct {
	payments   *service.PaymentService
	reconciler *service.Reconciler
	oracle     service.PriceOracle
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService, reconciler *service.Reconciler, oracle service.PriceOracle) *PaymentHandler {
	return &PaymentHandler{payments: payments, reconciler: reconciler, oracle: oracle}
}

type depositRequest struct {
	Amount int64 `json:"amount"`
}

// CreateDeposit handles POST /wallet/deposit.
func (h *PaymentHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req depositRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	intent, err := h.payments.CreateDepositIntent(r.Context(), userID, req.Amount)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, intent)
}

// VerifyPayment handles GET /wallet/payment/verify?orderId=. It drives the
// server-side status lookup until the gateway gives a definite answer or the
// poll attempts run out.
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	if _, err := userIDFromContext(r); err != nil {
		RespondError(w, err)
		return
	}

	orderID := r.URL.Query().Get("orderId")
	if orderID == "" {
		RespondError(w, domain.ErrValidation("orderId is required"))
		return
	}
	var trackID *string
	if t := r.URL.Query().Get("trackId"); t != "" {
		trackID = &t
	}

	entry, err := h.reconciler.VerifyPayment(r.Context(), orderID, trackID)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"payment_id":    entry.PaymentID,
		"status":        entry.PaymentStatus,
		"amount":        entry.Amount,
		"balance_after": entry.BalanceAfter,
	})
}

// GetPrice handles GET /wallet/price.
func (h *PaymentHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	quote, err := h.oracle.Quote(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, quote)
}
