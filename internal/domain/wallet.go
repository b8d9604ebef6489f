package domain

import "github.com/google/uuid"

// PostLedgerEntryParams is the input to the atomic PostLedgerEntry operation.
// BalanceDelta is applied to the user's balance with server-side arithmetic;
// the resulting balance is snapshotted into the entry's balance_after.
type PostLedgerEntryParams struct {
	UserID        uuid.UUID
	Type          EntryType
	Amount        int64
	BalanceDelta  int64
	Description   string
	RelatedUserID *uuid.UUID
}

// CommandResult is the return value from the ledger commands.
type CommandResult struct {
	Entry *LedgerEntry
	User  *User
}

// WithdrawParams holds the input for ExecuteWithdraw.
type WithdrawParams struct {
	UserID uuid.UUID
	Amount int64 // positive toman amount to debit
}

// GiftParams holds the input for ExecuteGift.
type GiftParams struct {
	FromUserID uuid.UUID
	ToUserID   uuid.UUID
	Amount     int64
}

// GiftResult pairs the two sides of a completed gift transfer.
type GiftResult struct {
	SentEntry     *LedgerEntry
	ReceivedEntry *LedgerEntry
	Sender        *User
	Receiver      *User
}

// PayoutParams holds the input for ExecutePayout.
type PayoutParams struct {
	RoomID   string
	WinnerID uuid.UUID
	LoserID  uuid.UUID
	Wager    int64
	GameKind string
}

// PayoutResult reports the applied match settlement.
type PayoutResult struct {
	Winner    *User
	Loser     *User
	WinEntry  *LedgerEntry
	LossEntry *LedgerEntry
}

// Match settlement constants: the winner takes both stakes and climbs the
// ladder, the loser slides back but never below zero score.
const (
	WinScoreDelta  = 20
	LossScoreDelta = 5
)
