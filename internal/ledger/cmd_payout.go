package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/nardwin/platform/internal/domain"
)

// ExecutePayout settles a finished wagered match: the winner is credited with
// both stakes and both players' records move on the ladder, in one atomic
// unit. Both user updates and both ledger entries commit together or not at
// all — a partial write is a retryable whole-operation failure.
//
// The loser's stored balance is NOT debited here. The wager was taken when
// the match escrow was placed, so this command only records the game_loss
// entry (amount −wager) against the loser's unchanged balance. Collapsing
// that asymmetry is a product decision, not a code fix.
//
// Pattern: Lock pair (ordered) → winner credit+stats → loser stats → entries
func (e *Engine) ExecutePayout(ctx context.Context, tx pgx.Tx, params domain.PayoutParams) (*domain.PayoutResult, error) {
	if err := domain.ValidatePositiveAmount(params.Wager); err != nil {
		return nil, err
	}

	winner, loser, err := e.LockUserPairForUpdate(ctx, tx, params.WinnerID, params.LoserID)
	if err != nil {
		return nil, fmt.Errorf("payout: %w", err)
	}

	winnings := 2 * params.Wager

	winScore := winner.TotalScore + domain.WinScoreDelta
	winEntry, updatedWinner, err := e.PostLedgerEntry(ctx, tx, domain.PostLedgerEntryParams{
		UserID:        params.WinnerID,
		Type:          domain.EntryGameWin,
		Amount:        winnings,
		BalanceDelta:  winnings,
		Description:   fmt.Sprintf("برنده بازی %s: %d تومان", gameLabel(params.GameKind), winnings),
		RelatedUserID: &params.LoserID,
	})
	if err != nil {
		return nil, fmt.Errorf("payout win: %w", err)
	}
	updatedWinner, err = e.users.UpdateGameStats(ctx, tx, params.WinnerID, 1, 0, winScore, domain.RankForScore(winScore))
	if err != nil {
		return nil, fmt.Errorf("payout winner stats: %w", err)
	}

	lossScore := loser.TotalScore - domain.LossScoreDelta
	if lossScore < 0 {
		lossScore = 0
	}
	lossEntry, _, err := e.PostLedgerEntry(ctx, tx, domain.PostLedgerEntryParams{
		UserID:        params.LoserID,
		Type:          domain.EntryGameLoss,
		Amount:        -params.Wager,
		BalanceDelta:  0, // wager already escrowed; see command doc
		Description:   fmt.Sprintf("بازنده بازی %s: %d تومان", gameLabel(params.GameKind), params.Wager),
		RelatedUserID: &params.WinnerID,
	})
	if err != nil {
		return nil, fmt.Errorf("payout loss: %w", err)
	}
	updatedLoser, err := e.users.UpdateGameStats(ctx, tx, params.LoserID, 0, 1, lossScore, domain.RankForScore(lossScore))
	if err != nil {
		return nil, fmt.Errorf("payout loser stats: %w", err)
	}

	if err := e.outbox.Insert(ctx, tx, domain.NewPayoutSettledEvent(params.RoomID, params.WinnerID, params.LoserID, params.Wager)); err != nil {
		return nil, fmt.Errorf("payout event: %w", err)
	}

	return &domain.PayoutResult{
		Winner:    updatedWinner,
		Loser:     updatedLoser,
		WinEntry:  winEntry,
		LossEntry: lossEntry,
	}, nil
}

func gameLabel(kind string) string {
	switch kind {
	case "tictactoe":
		return "دوز"
	case "chess":
		return "شطرنج"
	case "rps":
		return "سنگ کاغذ قیچی"
	default:
		return kind
	}
}
