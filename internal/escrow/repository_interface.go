package escrow

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, bookingID, payerID, payeeID int, amount int64, transactionCode string) (*Transaction, error)
	GetHeldByBookingTx(ctx context.Context, tx *sqlx.Tx, bookingID int) (*Transaction, error)
	GetHeldByIDTx(ctx context.Context, tx *sqlx.Tx, id int) (*Transaction, error)
	UpdateAmountTx(ctx context.Context, tx *sqlx.Tx, id int, amount int64) (bool, error)
	MarkReleasedTx(ctx context.Context, tx *sqlx.Tx, id int) (bool, error)
	MarkRefundedTx(ctx context.Context, tx *sqlx.Tx, id int) (bool, error)
	GetByBookingID(ctx context.Context, bookingID int) (*Transaction, error)
	GetByID(ctx context.Context, id int) (*Transaction, error)
}

// BookingStore is the slice of the booking repository the escrow manager
// needs to finalize a booking in the same transaction as the wallet credit.
type BookingStore interface {
	MarkCompletedTx(ctx context.Context, tx *sqlx.Tx, bookingID int) error
	MarkCancelledTx(ctx context.Context, tx *sqlx.Tx, bookingID int, reason string) error
}
