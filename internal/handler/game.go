package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nardwin/platform/internal/domain"
	"github.com/nardwin/platform/internal/service"
)

// GameHandler handles bet validation and match settlement endpoints.
type GameHandler struct {
	games *service.GameService
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(games *service.GameService) *GameHandler {
	return &GameHandler{games: games}
}

type validateBetRequest struct {
	Amount int64 `json:"amount"`
}

// ValidateBet handles POST /games/validate-bet.
func (h *GameHandler) ValidateBet(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req validateBetRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	result, err := h.games.ValidateBet(r.Context(), userID, req.Amount)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, result)
}

type payoutRequest struct {
	RoomID   string    `json:"room_id"`
	WinnerID uuid.UUID `json:"winner_id"`
	LoserID  uuid.UUID `json:"loser_id"`
	Wager    int64     `json:"wager"`
	GameKind string    `json:"game_kind"`
}

// ProcessPayout handles POST /games/payout. The caller is the game engine
// authenticating with the service credential, not a player session.
func (h *GameHandler) ProcessPayout(w http.ResponseWriter, r *http.Request) {
	var req payoutRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if req.RoomID == "" || req.WinnerID == uuid.Nil || req.LoserID == uuid.Nil {
		RespondError(w, domain.ErrValidation("room_id, winner_id and loser_id are required"))
		return
	}
	if req.WinnerID == req.LoserID {
		RespondError(w, domain.ErrValidation("winner and loser must differ"))
		return
	}
	if req.Wager < 0 {
		RespondError(w, domain.ErrValidation("wager must not be negative"))
		return
	}

	result, err := h.games.ProcessPayout(r.Context(), domain.PayoutParams{
		RoomID:   req.RoomID,
		WinnerID: req.WinnerID,
		LoserID:  req.LoserID,
		Wager:    req.Wager,
		GameKind: req.GameKind,
	})
	if err != nil {
		RespondError(w, err)
		return
	}

	if result == nil {
		// Free game: nothing settled.
		RespondJSON(w, http.StatusOK, map[string]interface{}{"settled": false})
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"settled": true,
		"winner":  result.Winner,
		"loser":   result.Loser,
	})
}
