package escrow

import "time"

type Status string

const (
	StatusHeld     Status = "held"
	StatusReleased Status = "released"
	StatusRefunded Status = "refunded"
)

// Transaction is the escrow record bridging a booking to wallet movements.
// Exactly one per booking, terminal once released or refunded.
type Transaction struct {
	ID              int        `db:"id" json:"id"`
	BookingID       int        `db:"booking_id" json:"booking_id"`
	PayerID         int        `db:"payer_id" json:"payer_id"`
	PayeeID         int        `db:"payee_id" json:"payee_id"`
	Amount          int64      `db:"amount" json:"amount"`
	Status          Status     `db:"status" json:"status"`
	TransactionCode string     `db:"transaction_code" json:"transaction_code"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	ReleasedAt      *time.Time `db:"released_at" json:"released_at,omitempty"`
	RefundedAt      *time.Time `db:"refunded_at" json:"refunded_at,omitempty"`
}
