package wallet

import "time"

// EntryType classifies a ledger entry. The set is closed: repository code
// only ever writes these values.
type EntryType string

const (
	EntryTopUp             EntryType = "topup"
	EntryTopUpPending      EntryType = "topup_pending"
	EntryBookingPayment    EntryType = "booking_payment"
	EntryBookingRefund     EntryType = "booking_refund"
	EntryBookingAdjustment EntryType = "booking_adjustment"
	EntryEscrowHold        EntryType = "escrow_hold"
	EntryEscrowRelease     EntryType = "escrow_release"
	EntryEscrowRefund      EntryType = "escrow_refund"
)

type EntryStatus string

const (
	StatusPending   EntryStatus = "pending"
	StatusCompleted EntryStatus = "completed"
	StatusFailed    EntryStatus = "failed"
)

type Wallet struct {
	ID        int       `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Balance   int64     `db:"balance" json:"balance"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// LedgerEntry is an immutable record of a balance-affecting (or
// pending-to-affect) event. Once Status is completed the row is never
// touched again.
type LedgerEntry struct {
	ID              int         `db:"id" json:"id"`
	WalletID        int         `db:"wallet_id" json:"wallet_id"`
	UserID          int         `db:"user_id" json:"user_id"`
	TransactionCode string      `db:"transaction_code" json:"transaction_code"`
	Type            EntryType   `db:"type" json:"type"`
	Amount          int64       `db:"amount" json:"amount"`
	Description     string      `db:"description" json:"description"`
	ReferenceID     string      `db:"reference_id" json:"reference_id"`
	Status          EntryStatus `db:"status" json:"status"`
	BalanceAfter    int64       `db:"balance_after" json:"balance_after"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
}
