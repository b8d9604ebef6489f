package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/nardwin/platform/internal/auth"
	"github.com/nardwin/platform/internal/domain"
	"github.com/nardwin/platform/internal/service"
)

// WalletHandler handles balance, history, withdrawal and gift endpoints.
type WalletHandler struct {
	payments *service.PaymentService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(payments *service.PaymentService) *WalletHandler {
	return &WalletHandler{payments: payments}
}

// balanceResponse is the shape of GET /wallet/balance.
type balanceResponse struct {
	Balance    int64  `json:"balance"`
	UserName   string `json:"user_name"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
	TotalScore int    `json:"total_score"`
	Rank       int    `json:"rank"`
}

// GetBalance handles GET /wallet/balance.
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	user, err := h.payments.GetBalance(r.Context(), userID)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, balanceResponse{
		Balance:    user.Balance,
		UserName:   user.UserName,
		Wins:       user.Wins,
		Losses:     user.Losses,
		TotalScore: user.TotalScore,
		Rank:       user.Rank,
	})
}

// GetTransactions handles GET /wallet/transactions.
func (h *WalletHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	entries, err := h.payments.ListTransactions(r.Context(), userID, limit)
	if err != nil {
		RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"transactions": entries})
}

type withdrawRequest struct {
	Amount int64 `json:"amount"`
}

// Withdraw handles POST /wallet/withdraw.
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req withdrawRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	result, err := h.payments.Withdraw(r.Context(), userID, req.Amount)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"balance":     result.User.Balance,
		"transaction": result.Entry,
	})
}

type giftRequest struct {
	ToUserID uuid.UUID `json:"to_user_id"`
	Amount   int64     `json:"amount"`
}

// Gift handles POST /wallet/gift.
func (h *WalletHandler) Gift(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req giftRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if req.ToUserID == uuid.Nil {
		RespondError(w, domain.ErrValidation("to_user_id is required"))
		return
	}

	result, err := h.payments.Gift(r.Context(), userID, req.ToUserID, req.Amount)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"balance":     result.Sender.Balance,
		"transaction": result.SentEntry,
	})
}

// userIDFromContext extracts the authenticated user's UUID from the request.
func userIDFromContext(r *http.Request) (uuid.UUID, error) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, domain.ErrUnauthorized("no subject in context")
	}
	return id, nil
}
