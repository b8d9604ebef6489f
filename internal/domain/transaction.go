package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// EntryType enumerates all ledger entry types.
//
// Amounts follow one signed convention across all types: credits are positive,
// debits are negative. deposit, game_win and gift_received carry positive
// amounts; withdraw, game_loss, game_bet and gift_sent carry negative amounts.
type EntryType string

const (
	EntryDeposit      EntryType = "deposit"
	EntryWithdraw     EntryType = "withdraw"
	EntryGiftSent     EntryType = "gift_sent"
	EntryGiftReceived EntryType = "gift_received"
	EntryGameBet      EntryType = "game_bet"
	EntryGameWin      EntryType = "game_win"
	EntryGameLoss     EntryType = "game_loss"
)

// PaymentStatus tracks the gateway payment lifecycle on deposit entries.
// The only legal transitions are pending → completed | failed | cancelled;
// all three targets are terminal.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// IsTerminal reports whether no further status transition is allowed.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentCompleted || s == PaymentFailed || s == PaymentCancelled
}

// LedgerEntry represents a ledger_entries row (append-mostly: the payment
// status of a pending deposit may transition, rows are never deleted).
type LedgerEntry struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	Type          EntryType  `json:"type"`
	Amount        int64      `json:"amount"`
	Description   string     `json:"description"`
	RelatedUserID *uuid.UUID `json:"related_user_id,omitempty"`
	BalanceAfter  int64      `json:"balance_after"`

	// Gateway fields, set on deposit entries only.
	PaymentID            *string       `json:"payment_id,omitempty"`
	PaymentStatus        PaymentStatus `json:"payment_status,omitempty"`
	Gateway              *string       `json:"gateway,omitempty"`
	GatewayTransactionID *string       `json:"gateway_transaction_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// PaymentSignal is the canonical form of a raw gateway status, shared by the
// push, redirect and verify reconciliation channels.
type PaymentSignal string

const (
	SignalSuccessful    PaymentSignal = "successful"
	SignalCancelled     PaymentSignal = "cancelled"
	SignalFailed        PaymentSignal = "failed"
	SignalIndeterminate PaymentSignal = "indeterminate"
)

// CanonicalSignal maps a raw gateway status to a PaymentSignal.
// Numeric 1 and 2 and the strings "paid"/"success" mean the invoice settled;
// numeric 3 and "cancelled"/"expired" mean the payer backed out or the invoice
// lapsed; an empty status is indeterminate; anything else definite is a failure.
func CanonicalSignal(raw string) PaymentSignal {
	if raw == "" {
		return SignalIndeterminate
	}
	if n, err := strconv.Atoi(raw); err == nil {
		switch n {
		case 1, 2:
			return SignalSuccessful
		case 3:
			return SignalCancelled
		default:
			return SignalFailed
		}
	}
	switch raw {
	case "paid", "success":
		return SignalSuccessful
	case "cancelled", "expired":
		return SignalCancelled
	default:
		return SignalFailed
	}
}

// SignalFromGatewayInfo maps a status returned by the gateway's payment-info
// lookup. Unlike push/redirect signals, an unrecognized info status means the
// invoice is still in flight (waiting, confirming), so it stays indeterminate
// rather than failing the payment.
func SignalFromGatewayInfo(status string) PaymentSignal {
	switch status {
	case "paid", "success":
		return SignalSuccessful
	case "cancelled", "expired":
		return SignalCancelled
	case "failed":
		return SignalFailed
	default:
		return SignalIndeterminate
	}
}

// TerminalStatus returns the payment status a definite signal resolves to.
// Must not be called with SignalIndeterminate.
func (s PaymentSignal) TerminalStatus() PaymentStatus {
	switch s {
	case SignalSuccessful:
		return PaymentCompleted
	case SignalCancelled:
		return PaymentCancelled
	default:
		return PaymentFailed
	}
}
