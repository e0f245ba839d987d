package escrow

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

const escrowColumns = `id, booking_id, payer_id, payee_id, amount, status,
	transaction_code, created_at, released_at, refunded_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateTx(ctx context.Context, tx *sqlx.Tx, bookingID, payerID, payeeID int, amount int64, transactionCode string) (*Transaction, error) {
	var e Transaction
	err := tx.QueryRowxContext(ctx,
		`INSERT INTO escrow_transactions (booking_id, payer_id, payee_id, amount, status, transaction_code)
		 VALUES ($1, $2, $3, $4, 'held', $5)
		 RETURNING `+escrowColumns,
		bookingID, payerID, payeeID, amount, transactionCode,
	).StructScan(&e)
	if err != nil {
		return nil, err
	}

	return &e, nil
}

// GetHeldByBookingTx locks the held escrow row for the booking. Returns nil
// without error when no held escrow exists, so callers can treat duplicate
// release/refund attempts as benign.
func (r *repository) GetHeldByBookingTx(ctx context.Context, tx *sqlx.Tx, bookingID int) (*Transaction, error) {
	var e Transaction
	err := tx.QueryRowxContext(ctx,
		`SELECT `+escrowColumns+`
		 FROM escrow_transactions
		 WHERE booking_id = $1 AND status = 'held'
		 FOR UPDATE`,
		bookingID,
	).StructScan(&e)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repository) GetHeldByIDTx(ctx context.Context, tx *sqlx.Tx, id int) (*Transaction, error) {
	var e Transaction
	err := tx.QueryRowxContext(ctx,
		`SELECT `+escrowColumns+`
		 FROM escrow_transactions
		 WHERE id = $1 AND status = 'held'
		 FOR UPDATE`,
		id,
	).StructScan(&e)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateAmountTx changes the held amount after a price adjustment. Only a
// held escrow can be resized.
func (r *repository) UpdateAmountTx(ctx context.Context, tx *sqlx.Tx, id int, amount int64) (bool, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE escrow_transactions
		 SET amount = $1
		 WHERE id = $2 AND status = 'held'`,
		amount, id,
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

// MarkReleasedTx flips a held escrow to released. The status guard in the
// WHERE clause makes the transition single-shot.
func (r *repository) MarkReleasedTx(ctx context.Context, tx *sqlx.Tx, id int) (bool, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE escrow_transactions
		 SET status = 'released', released_at = NOW()
		 WHERE id = $1 AND status = 'held'`,
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

func (r *repository) MarkRefundedTx(ctx context.Context, tx *sqlx.Tx, id int) (bool, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE escrow_transactions
		 SET status = 'refunded', refunded_at = NOW()
		 WHERE id = $1 AND status = 'held'`,
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

func (r *repository) GetByBookingID(ctx context.Context, bookingID int) (*Transaction, error) {
	var e Transaction
	err := r.db.GetContext(ctx, &e,
		`SELECT `+escrowColumns+`
		 FROM escrow_transactions
		 WHERE booking_id = $1`,
		bookingID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Transaction, error) {
	var e Transaction
	err := r.db.GetContext(ctx, &e,
		`SELECT `+escrowColumns+`
		 FROM escrow_transactions
		 WHERE id = $1`,
		id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
