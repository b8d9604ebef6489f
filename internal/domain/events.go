package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types.
type EventType string

const (
	EventTransactionPosted EventType = "wallet.transaction.posted"
	EventDepositCompleted  EventType = "wallet.deposit.completed"
	EventPayoutSettled     EventType = "wallet.payout.settled"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateWallet AggregateType = "wallet"
	AggregateMatch  AggregateType = "match"
)

// OutboxDraft is the payload written to the event_outbox table.
type OutboxDraft struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateType AggregateType   `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     EventType       `json:"event_type"`
	PartitionKey  string          `json:"partition_key"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewTransactionPostedEvent creates the standard wallet event for a ledger entry.
func NewTransactionPostedEvent(e *LedgerEntry) OutboxDraft {
	payload, _ := json.Marshal(e)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateWallet,
		AggregateID:   e.UserID.String(),
		EventType:     EventTransactionPosted,
		PartitionKey:  e.UserID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewDepositCompletedEvent marks a reconciled deposit.
func NewDepositCompletedEvent(e *LedgerEntry, channel string) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"user_id":    e.UserID.String(),
		"payment_id": e.PaymentID,
		"amount":     e.Amount,
		"channel":    channel,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateWallet,
		AggregateID:   e.UserID.String(),
		EventType:     EventDepositCompleted,
		PartitionKey:  e.UserID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewPayoutSettledEvent records a finished match settlement keyed by room.
func NewPayoutSettledEvent(roomID string, winnerID, loserID uuid.UUID, wager int64) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"room_id":   roomID,
		"winner_id": winnerID.String(),
		"loser_id":  loserID.String(),
		"wager":     wager,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateMatch,
		AggregateID:   roomID,
		EventType:     EventPayoutSettled,
		PartitionKey:  roomID,
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}
