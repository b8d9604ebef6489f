package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/nardwin/platform/internal/domain"
)

// ExecuteGift moves funds between two users as one atomic unit: both balance
// changes and both ledger entries commit together or not at all.
// Pattern: Lock pair (ordered) → balance check → paired PostLedgerEntry
func (e *Engine) ExecuteGift(ctx context.Context, tx pgx.Tx, params domain.GiftParams) (*domain.GiftResult, error) {
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, err
	}
	if params.FromUserID == params.ToUserID {
		return nil, domain.ErrValidation("cannot gift to yourself")
	}

	sender, _, err := e.LockUserPairForUpdate(ctx, tx, params.FromUserID, params.ToUserID)
	if err != nil {
		return nil, fmt.Errorf("gift: %w", err)
	}

	if sender.Balance < params.Amount {
		return nil, domain.ErrInsufficientBalance(params.Amount - sender.Balance)
	}

	sentEntry, updatedSender, err := e.PostLedgerEntry(ctx, tx, domain.PostLedgerEntryParams{
		UserID:        params.FromUserID,
		Type:          domain.EntryGiftSent,
		Amount:        -params.Amount,
		BalanceDelta:  -params.Amount,
		Description:   fmt.Sprintf("ارسال هدیه به مبلغ %d تومان", params.Amount),
		RelatedUserID: &params.ToUserID,
	})
	if err != nil {
		return nil, fmt.Errorf("gift debit: %w", err)
	}

	receivedEntry, updatedReceiver, err := e.PostLedgerEntry(ctx, tx, domain.PostLedgerEntryParams{
		UserID:        params.ToUserID,
		Type:          domain.EntryGiftReceived,
		Amount:        params.Amount,
		BalanceDelta:  params.Amount,
		Description:   fmt.Sprintf("دریافت هدیه به مبلغ %d تومان", params.Amount),
		RelatedUserID: &params.FromUserID,
	})
	if err != nil {
		return nil, fmt.Errorf("gift credit: %w", err)
	}

	return &domain.GiftResult{
		SentEntry:     sentEntry,
		ReceivedEntry: receivedEntry,
		Sender:        updatedSender,
		Receiver:      updatedReceiver,
	}, nil
}
