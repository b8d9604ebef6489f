package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/nardwin/platform/internal/domain"
)

// ExecuteWithdraw debits the user's balance and records a withdraw entry.
// The actual off-platform transfer is a separate batch process; this command
// only records the monetary intent and the debit.
// Pattern: Lock → balance check → PostLedgerEntry
func (e *Engine) ExecuteWithdraw(ctx context.Context, tx pgx.Tx, params domain.WithdrawParams) (*domain.CommandResult, error) {
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, err
	}

	user, err := e.LockUserForUpdate(ctx, tx, params.UserID)
	if err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}

	if user.Balance < params.Amount {
		return nil, domain.ErrInsufficientBalance(params.Amount - user.Balance)
	}

	entry, updated, err := e.PostLedgerEntry(ctx, tx, domain.PostLedgerEntryParams{
		UserID:       params.UserID,
		Type:         domain.EntryWithdraw,
		Amount:       -params.Amount,
		BalanceDelta: -params.Amount,
		Description:  fmt.Sprintf("برداشت موجودی به مبلغ %d تومان", params.Amount),
	})
	if err != nil {
		return nil, fmt.Errorf("withdraw post: %w", err)
	}

	return &domain.CommandResult{Entry: entry, User: updated}, nil
}
