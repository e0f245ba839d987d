package booking

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrBookingNotFound     = errors.New("booking not found")
	ErrInvalidTransition   = errors.New("booking is not in a state that allows this transition")
)

const bookingColumns = `id, code, customer_id, cosplayer_id, date, start_time, end_time,
	duration_minutes, total_price, status, payment_status, location, notes,
	cancellation_reason, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateTx(ctx context.Context, tx *sqlx.Tx, b *Booking) (*Booking, error) {
	query := `
		INSERT INTO bookings
			(code, customer_id, cosplayer_id, date, start_time, end_time,
			 duration_minutes, total_price, status, payment_status, location, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', 'held', $9, $10)
		RETURNING ` + bookingColumns

	var created Booking
	err := tx.QueryRowxContext(ctx, query,
		b.Code, b.CustomerID, b.CosplayerID, b.Date, b.StartTime, b.EndTime,
		b.DurationMinutes, b.TotalPrice, b.Location, b.Notes,
	).StructScan(&created)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

// GetByIDForUpdateTx locks the booking row so state transitions per booking
// are linearizable.
func (r *repository) GetByIDForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int) (*Booking, error) {
	var b Booking
	err := tx.QueryRowxContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id,
	).StructScan(&b)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

func (r *repository) UpdateScheduleTx(ctx context.Context, tx *sqlx.Tx, id int, date, start, end time.Time, durationMinutes int, totalPrice int64, location, notes string) (*Booking, error) {
	query := `
		UPDATE bookings
		SET date = $1, start_time = $2, end_time = $3, duration_minutes = $4,
		    total_price = $5, location = $6, notes = $7, updated_at = NOW()
		WHERE id = $8 AND status = 'pending'
		RETURNING ` + bookingColumns

	var b Booking
	err := tx.QueryRowxContext(ctx, query,
		date, start, end, durationMinutes, totalPrice, location, notes, id,
	).StructScan(&b)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

// Confirm moves a pending booking to confirmed. The status guard makes the
// transition single-shot.
func (r *repository) Confirm(ctx context.Context, id int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE bookings
		 SET status = 'confirmed', updated_at = NOW()
		 WHERE id = $1 AND status = 'pending'`,
		id,
	)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected == 1, nil
}

func (r *repository) MarkCompletedTx(ctx context.Context, tx *sqlx.Tx, id int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE bookings
		 SET status = 'completed', payment_status = 'released', updated_at = NOW()
		 WHERE id = $1 AND status IN ('pending', 'confirmed')`,
		id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrInvalidTransition
	}

	return nil
}

func (r *repository) MarkCancelledTx(ctx context.Context, tx *sqlx.Tx, id int, reason string) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE bookings
		 SET status = 'cancelled', payment_status = 'refunded',
		     cancellation_reason = $1, updated_at = NOW()
		 WHERE id = $2 AND status IN ('pending', 'confirmed')`,
		reason, id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrInvalidTransition
	}

	return nil
}

func (r *repository) GetCustomerBookings(ctx context.Context, customerID int) ([]BookingWithDetails, error) {
	query := `
		SELECT
			b.id, b.code, b.customer_id, b.cosplayer_id, b.date, b.start_time, b.end_time,
			b.duration_minutes, b.total_price, b.status, b.payment_status, b.location, b.notes,
			b.cancellation_reason, b.created_at, b.updated_at,
			cu.name AS customer_name,
			co.name AS cosplayer_name
		FROM bookings b
		JOIN users cu ON b.customer_id = cu.id
		JOIN users co ON b.cosplayer_id = co.id
		WHERE b.customer_id = $1
		ORDER BY b.start_time DESC
	`

	var bookings []BookingWithDetails
	err := r.db.SelectContext(ctx, &bookings, query, customerID)
	if err != nil {
		return nil, err
	}

	return bookings, nil
}

func (r *repository) GetCosplayerBookings(ctx context.Context, cosplayerID int) ([]BookingWithDetails, error) {
	query := `
		SELECT
			b.id, b.code, b.customer_id, b.cosplayer_id, b.date, b.start_time, b.end_time,
			b.duration_minutes, b.total_price, b.status, b.payment_status, b.location, b.notes,
			b.cancellation_reason, b.created_at, b.updated_at,
			cu.name AS customer_name,
			co.name AS cosplayer_name
		FROM bookings b
		JOIN users cu ON b.customer_id = cu.id
		JOIN users co ON b.cosplayer_id = co.id
		WHERE b.cosplayer_id = $1
		ORDER BY b.start_time DESC
	`

	var bookings []BookingWithDetails
	err := r.db.SelectContext(ctx, &bookings, query, cosplayerID)
	if err != nil {
		return nil, err
	}

	return bookings, nil
}

func (r *repository) CountOverlapping(ctx context.Context, cosplayerID int, date time.Time, start, end time.Time, excludeBookingID int) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM bookings
		WHERE cosplayer_id = $1
		  AND date = $2
		  AND status != 'cancelled'
		  AND start_time < $3
		  AND end_time > $4
		  AND id != $5
	`

	var count int
	err := r.db.GetContext(ctx, &count, query, cosplayerID, date, end, start, excludeBookingID)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *repository) CountActiveForCustomerOnDate(ctx context.Context, customerID int, date time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM bookings
		WHERE customer_id = $1 AND date = $2 AND status != 'cancelled'
	`

	var count int
	err := r.db.GetContext(ctx, &count, query, customerID, date)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *repository) CountPendingForCustomer(ctx context.Context, customerID int) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM bookings
		WHERE customer_id = $1 AND status = 'pending'
	`

	var count int
	err := r.db.GetContext(ctx, &count, query, customerID)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *repository) SumCommittedMinutes(ctx context.Context, cosplayerID int, date time.Time, excludeBookingID int) (int, error) {
	query := `
		SELECT COALESCE(SUM(duration_minutes), 0)
		FROM bookings
		WHERE cosplayer_id = $1 AND date = $2 AND status != 'cancelled' AND id != $3
	`

	var minutes int
	err := r.db.GetContext(ctx, &minutes, query, cosplayerID, date, excludeBookingID)
	if err != nil {
		return 0, err
	}

	return minutes, nil
}
