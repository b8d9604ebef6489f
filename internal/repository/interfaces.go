package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nardwin/platform/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// UserRepository provides access to the users table.
type UserRepository interface {
	// FindByID returns a user by ID, or nil if absent.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.User, error)

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE) and returns the user.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.User, error)

	// Create inserts a new user.
	Create(ctx context.Context, db DBTX, user *domain.User) error

	// ApplyBalanceDelta adjusts the balance with server-side arithmetic and
	// returns the updated user. The users.balance CHECK rejects a result below
	// zero, so a lost pre-check race surfaces as an error instead of a negative
	// balance.
	ApplyBalanceDelta(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int64) (*domain.User, error)

	// UpdateGameStats sets the win/loss counters, total score and rank.
	UpdateGameStats(ctx context.Context, tx pgx.Tx, id uuid.UUID, winsDelta, lossesDelta, totalScore, rank int) (*domain.User, error)
}

// LedgerRepository provides access to ledger_entries.
type LedgerRepository interface {
	// Insert creates a ledger entry and returns the stored row.
	Insert(ctx context.Context, db DBTX, entry *domain.LedgerEntry) (*domain.LedgerEntry, error)

	// FindByPaymentID locates a deposit entry by its correlation id, or nil.
	FindByPaymentID(ctx context.Context, db DBTX, paymentID string) (*domain.LedgerEntry, error)

	// TransitionPaymentStatus moves a pending entry to a terminal status with a
	// single conditional UPDATE. Returns the updated entry, or nil when the row
	// was not pending anymore (a concurrent channel won the transition).
	TransitionPaymentStatus(ctx context.Context, db DBTX, paymentID string, to domain.PaymentStatus, description string, trackingID *string) (*domain.LedgerEntry, error)

	// SetBalanceAfter records the post-credit balance snapshot on an entry.
	// Runs in the same transaction as the balance mutation it records.
	SetBalanceAfter(ctx context.Context, tx pgx.Tx, id uuid.UUID, balanceAfter int64) error

	// SetGatewayTrackingID attaches the gateway-issued tracking id once known.
	SetGatewayTrackingID(ctx context.Context, db DBTX, id uuid.UUID, trackingID string) error

	// ListByUser returns the user's entries, newest first.
	ListByUser(ctx context.Context, db DBTX, userID uuid.UUID, limit int) ([]domain.LedgerEntry, error)
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event (within the same transaction as the ledger entry).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error
}
