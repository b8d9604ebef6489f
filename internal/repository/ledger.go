package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nardwin/platform/internal/domain"
)

const entryColumns = `id, user_id, type, amount, description, related_user_id, balance_after,
	payment_id, payment_status, gateway, gateway_transaction_id, created_at`

type ledgerRepo struct{}

// NewLedgerRepository returns a pgx-backed LedgerRepository.
func NewLedgerRepository() LedgerRepository {
	return &ledgerRepo{}
}

func (r *ledgerRepo) Insert(ctx context.Context, db DBTX, entry *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	status := entry.PaymentStatus
	if status == "" && entry.PaymentID != nil {
		status = domain.PaymentPending
	}
	row := db.QueryRow(ctx, `
		INSERT INTO ledger_entries
		  (user_id, type, amount, description, related_user_id, balance_after,
		   payment_id, payment_status, gateway, gateway_transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+entryColumns,
		entry.UserID, string(entry.Type), entry.Amount, entry.Description,
		entry.RelatedUserID, entry.BalanceAfter,
		entry.PaymentID, nullStatus(status), entry.Gateway, entry.GatewayTransactionID)
	return scanEntry(row)
}

func (r *ledgerRepo) FindByPaymentID(ctx context.Context, db DBTX, paymentID string) (*domain.LedgerEntry, error) {
	row := db.QueryRow(ctx, `
		SELECT `+entryColumns+` FROM ledger_entries WHERE payment_id = $1`, paymentID)
	return scanEntry(row)
}

// TransitionPaymentStatus is the single write path for pending → terminal.
// The WHERE clause on payment_status makes the transition a compare-and-swap:
// concurrent channels racing on the same row serialize on the row lock, and
// every loser matches zero rows and gets nil back.
func (r *ledgerRepo) TransitionPaymentStatus(ctx context.Context, db DBTX, paymentID string, to domain.PaymentStatus, description string, trackingID *string) (*domain.LedgerEntry, error) {
	row := db.QueryRow(ctx, `
		UPDATE ledger_entries SET
		  payment_status = $1,
		  description = $2,
		  gateway_transaction_id = COALESCE($3, gateway_transaction_id)
		WHERE payment_id = $4 AND payment_status = 'pending'
		RETURNING `+entryColumns,
		string(to), description, trackingID, paymentID)
	return scanEntry(row)
}

func (r *ledgerRepo) SetBalanceAfter(ctx context.Context, tx pgx.Tx, id uuid.UUID, balanceAfter int64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE ledger_entries SET balance_after = $1 WHERE id = $2`, balanceAfter, id)
	if err != nil {
		return fmt.Errorf("set balance_after: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set balance_after: entry %s not found", id)
	}
	return nil
}

func (r *ledgerRepo) SetGatewayTrackingID(ctx context.Context, db DBTX, id uuid.UUID, trackingID string) error {
	_, err := db.Exec(ctx, `
		UPDATE ledger_entries SET gateway_transaction_id = $1 WHERE id = $2`, trackingID, id)
	if err != nil {
		return fmt.Errorf("set gateway_transaction_id: %w", err)
	}
	return nil
}

func (r *ledgerRepo) ListByUser(ctx context.Context, db DBTX, userID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := db.Query(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanEntryValues(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func nullStatus(s domain.PaymentStatus) *string {
	if s == "" {
		return nil
	}
	v := string(s)
	return &v
}

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	e, err := scanEntryValues(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func scanEntryValues(row pgx.Row) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var status *string
	err := row.Scan(&e.ID, &e.UserID, &e.Type, &e.Amount, &e.Description,
		&e.RelatedUserID, &e.BalanceAfter,
		&e.PaymentID, &status, &e.Gateway, &e.GatewayTransactionID, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if status != nil {
		e.PaymentStatus = domain.PaymentStatus(*status)
	}
	return &e, nil
}
