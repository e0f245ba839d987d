package booking

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, b *Booking) (*Booking, error)
	GetByID(ctx context.Context, id int) (*Booking, error)
	GetByIDForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int) (*Booking, error)
	UpdateScheduleTx(ctx context.Context, tx *sqlx.Tx, id int, date, start, end time.Time, durationMinutes int, totalPrice int64, location, notes string) (*Booking, error)
	Confirm(ctx context.Context, id int) (bool, error)
	MarkCompletedTx(ctx context.Context, tx *sqlx.Tx, id int) error
	MarkCancelledTx(ctx context.Context, tx *sqlx.Tx, id int, reason string) error
	GetCustomerBookings(ctx context.Context, customerID int) ([]BookingWithDetails, error)
	GetCosplayerBookings(ctx context.Context, cosplayerID int) ([]BookingWithDetails, error)

	CountOverlapping(ctx context.Context, cosplayerID int, date time.Time, start, end time.Time, excludeBookingID int) (int, error)
	CountActiveForCustomerOnDate(ctx context.Context, customerID int, date time.Time) (int, error)
	CountPendingForCustomer(ctx context.Context, customerID int) (int, error)
	SumCommittedMinutes(ctx context.Context, cosplayerID int, date time.Time, excludeBookingID int) (int, error)
}
