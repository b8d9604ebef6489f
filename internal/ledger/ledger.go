package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nardwin/platform/internal/domain"
	"github.com/nardwin/platform/internal/repository"
)

// Engine provides the foundational ledger operations:
//  1. LockUserForUpdate / LockUserPairForUpdate — row-level pessimistic locks
//  2. PostLedgerEntry — atomic balance update + append-only insert + outbox event
//
// All commands run inside a transaction owned by the caller, so a failure in
// any step rolls back the whole unit.
type Engine struct {
	users   repository.UserRepository
	entries repository.LedgerRepository
	outbox  repository.OutboxRepository
}

// NewEngine creates a ledger engine with the given repositories.
func NewEngine(users repository.UserRepository, entries repository.LedgerRepository, outbox repository.OutboxRepository) *Engine {
	return &Engine{users: users, entries: entries, outbox: outbox}
}

// LockUserForUpdate acquires a row-level lock and returns the user.
// Must be called within a transaction.
func (e *Engine) LockUserForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.User, error) {
	user, err := e.users.LockForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user", userID.String())
	}
	return user, nil
}

// LockUserPairForUpdate locks two users in ascending id order so that two
// concurrent dual-user operations on the same pair cannot deadlock.
func (e *Engine) LockUserPairForUpdate(ctx context.Context, tx pgx.Tx, a, b uuid.UUID) (*domain.User, *domain.User, error) {
	first, second := a, b
	swapped := false
	if second.String() < first.String() {
		first, second = second, first
		swapped = true
	}

	u1, err := e.LockUserForUpdate(ctx, tx, first)
	if err != nil {
		return nil, nil, err
	}
	u2, err := e.LockUserForUpdate(ctx, tx, second)
	if err != nil {
		return nil, nil, err
	}

	if swapped {
		return u2, u1, nil
	}
	return u1, u2, nil
}

// PostLedgerEntry atomically updates the user's balance and inserts a ledger
// entry carrying the post-update balance snapshot, plus the outbox event, all
// within the caller's transaction.
//
// The balance delta runs as server-side arithmetic; the snapshot therefore
// always equals the committed balance exactly.
func (e *Engine) PostLedgerEntry(ctx context.Context, tx pgx.Tx, params domain.PostLedgerEntryParams) (*domain.LedgerEntry, *domain.User, error) {
	user, err := e.users.ApplyBalanceDelta(ctx, tx, params.UserID, params.BalanceDelta)
	if err != nil {
		return nil, nil, fmt.Errorf("apply balance delta: %w", err)
	}
	if user == nil {
		return nil, nil, domain.ErrNotFound("user", params.UserID.String())
	}

	entry, err := e.entries.Insert(ctx, tx, &domain.LedgerEntry{
		UserID:        params.UserID,
		Type:          params.Type,
		Amount:        params.Amount,
		Description:   params.Description,
		RelatedUserID: params.RelatedUserID,
		BalanceAfter:  user.Balance,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("insert ledger entry: %w", err)
	}

	if err := e.outbox.Insert(ctx, tx, domain.NewTransactionPostedEvent(entry)); err != nil {
		return nil, nil, fmt.Errorf("insert outbox event: %w", err)
	}

	return entry, user, nil
}
