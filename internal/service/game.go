package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nardwin/platform/internal/domain"
	"github.com/nardwin/platform/internal/ledger"
	"github.com/nardwin/platform/internal/metrics"
	"github.com/nardwin/platform/internal/repository"
)

// GameService settles finished matches and gates bets against balances.
type GameService struct {
	db      DB
	users   repository.UserRepository
	engine  *ledger.Engine
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewGameService creates a GameService.
func NewGameService(db DB, users repository.UserRepository, engine *ledger.Engine, m *metrics.Metrics, logger *slog.Logger) *GameService {
	return &GameService{db: db, users: users, engine: engine, metrics: m, logger: logger}
}

// ProcessPayout settles a finished match: the winner collects both stakes and
// both players' scores and ranks move. A zero wager is a free game and leaves
// the ledger untouched.
func (s *GameService) ProcessPayout(ctx context.Context, params domain.PayoutParams) (*domain.PayoutResult, error) {
	if params.Wager == 0 {
		s.logger.Info("free game finished, no settlement", "room_id", params.RoomID)
		return nil, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	result, err := s.engine.ExecutePayout(ctx, tx, params)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	s.metrics.PayoutsSettled.Inc()
	s.logger.Info("match settled",
		"room_id", params.RoomID, "winner_id", params.WinnerID, "loser_id", params.LoserID,
		"wager", params.Wager, "winnings", params.Wager*2)
	return result, nil
}

// BetValidation is the answer to a pre-match affordability check.
type BetValidation struct {
	Valid    bool  `json:"valid"`
	Balance  int64 `json:"balance"`
	Shortage int64 `json:"shortage,omitempty"`
}

// ValidateBet checks whether the user can cover the proposed wager. Read
// only: the actual escrow happens when the match starts. A zero wager is a
// free game and is always valid.
func (s *GameService) ValidateBet(ctx context.Context, userID uuid.UUID, amount int64) (*BetValidation, error) {
	if amount < 0 {
		return nil, domain.ErrValidation("wager must not be negative")
	}

	user, err := s.users.FindByID(ctx, s.db, userID)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user", userID.String())
	}

	v := &BetValidation{Valid: user.Balance >= amount, Balance: user.Balance}
	if !v.Valid {
		v.Shortage = amount - user.Balance
	}
	return v, nil
}
