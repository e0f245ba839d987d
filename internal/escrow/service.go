package escrow

import (
	"context"
	"errors"
	"fmt"

	"github.com/LocDang637/CosplayDate-sub001/internal/logger"
	"github.com/LocDang637/CosplayDate-sub001/internal/metrics"
	"github.com/LocDang637/CosplayDate-sub001/internal/wallet"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrRefundExceedsHold = errors.New("refund amount exceeds held amount")
)

type Service interface {
	// CreateTx holds the booking's funds: escrow row plus payer debit, inside
	// the caller's transaction so booking creation is all-or-nothing.
	CreateTx(ctx context.Context, tx *sqlx.Tx, bookingID, payerID, payeeID int, amount int64) (*Transaction, error)
	// Release credits the payee and completes the booking. Returns false when
	// no held escrow exists for the booking (already processed, or never paid).
	Release(ctx context.Context, bookingID int) (bool, error)
	// AdjustHoldTx resizes the held amount after a booking price change, in
	// the caller's transaction. The settling debit/credit is the caller's
	// responsibility.
	AdjustHoldTx(ctx context.Context, tx *sqlx.Tx, bookingID int, newAmount int64) (*Transaction, error)
	// Refund credits refundAmount back to the payer and cancels the booking
	// with the given reason. A zero refundAmount still resolves the escrow.
	// Returns false when the escrow is not held anymore.
	Refund(ctx context.Context, escrowID int, refundAmount int64, reason string) (bool, error)
	GetByBookingID(ctx context.Context, bookingID int) (*Transaction, error)
	GetByID(ctx context.Context, escrowID int) (*Transaction, error)
}

type service struct {
	db       *sqlx.DB
	repo     Repository
	ledger   wallet.Ledger
	bookings BookingStore
}

func NewService(db *sqlx.DB, repo Repository, ledger wallet.Ledger, bookings BookingStore) Service {
	return &service{
		db:       db,
		repo:     repo,
		ledger:   ledger,
		bookings: bookings,
	}
}

func newEscrowCode() string {
	return "ESC-" + uuid.NewString()
}

func (s *service) CreateTx(ctx context.Context, tx *sqlx.Tx, bookingID, payerID, payeeID int, amount int64) (*Transaction, error) {
	e, err := s.repo.CreateTx(ctx, tx, bookingID, payerID, payeeID, amount, newEscrowCode())
	if err != nil {
		return nil, fmt.Errorf("failed to create escrow: %w", err)
	}

	// The debit shares the transaction: if the payer cannot afford the hold,
	// the escrow row rolls back with everything else.
	_, err = s.ledger.DebitTx(ctx, tx, payerID, amount, wallet.EntryEscrowHold,
		fmt.Sprintf("Escrow hold for booking #%d", bookingID), e.TransactionCode)
	if err != nil {
		return nil, err
	}

	return e, nil
}

func (s *service) AdjustHoldTx(ctx context.Context, tx *sqlx.Tx, bookingID int, newAmount int64) (*Transaction, error) {
	held, err := s.repo.GetHeldByBookingTx(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if held == nil {
		return nil, fmt.Errorf("no held escrow for booking %d", bookingID)
	}

	ok, err := s.repo.UpdateAmountTx(ctx, tx, held.ID, newAmount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("escrow %d changed state while locked", held.ID)
	}

	held.Amount = newAmount
	return held, nil
}

func (s *service) Release(ctx context.Context, bookingID int) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	held, err := s.repo.GetHeldByBookingTx(ctx, tx, bookingID)
	if err != nil {
		return false, err
	}
	if held == nil {
		logger.Info("release skipped, no held escrow", "booking_id", bookingID)
		return false, nil
	}

	_, err = s.ledger.CreditTx(ctx, tx, held.PayeeID, held.Amount, wallet.EntryEscrowRelease,
		fmt.Sprintf("Escrow release for booking #%d", bookingID), held.TransactionCode)
	if err != nil {
		return false, err
	}

	released, err := s.repo.MarkReleasedTx(ctx, tx, held.ID)
	if err != nil {
		return false, err
	}
	if !released {
		// Row was locked above, so this only happens on a logic bug.
		return false, fmt.Errorf("escrow %d changed state while locked", held.ID)
	}

	if err := s.bookings.MarkCompletedTx(ctx, tx, bookingID); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	metrics.RecordEscrowResolution("released")
	logger.Info("escrow released", "booking_id", bookingID, "payee_id", held.PayeeID, "amount", held.Amount)
	return true, nil
}

func (s *service) Refund(ctx context.Context, escrowID int, refundAmount int64, reason string) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	held, err := s.repo.GetHeldByIDTx(ctx, tx, escrowID)
	if err != nil {
		return false, err
	}
	if held == nil {
		logger.Info("refund skipped, escrow not held", "escrow_id", escrowID)
		return false, nil
	}

	if refundAmount < 0 || refundAmount > held.Amount {
		return false, ErrRefundExceedsHold
	}

	if refundAmount > 0 {
		_, err = s.ledger.CreditTx(ctx, tx, held.PayerID, refundAmount, wallet.EntryEscrowRefund,
			fmt.Sprintf("Escrow refund for booking #%d: %s", held.BookingID, reason), held.TransactionCode)
		if err != nil {
			return false, err
		}
	}

	refunded, err := s.repo.MarkRefundedTx(ctx, tx, held.ID)
	if err != nil {
		return false, err
	}
	if !refunded {
		return false, fmt.Errorf("escrow %d changed state while locked", held.ID)
	}

	if err := s.bookings.MarkCancelledTx(ctx, tx, held.BookingID, reason); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	metrics.RecordEscrowResolution("refunded")
	logger.Info("escrow refunded", "escrow_id", escrowID, "booking_id", held.BookingID,
		"refund_amount", refundAmount, "held_amount", held.Amount)
	return true, nil
}

func (s *service) GetByBookingID(ctx context.Context, bookingID int) (*Transaction, error) {
	return s.repo.GetByBookingID(ctx, bookingID)
}

func (s *service) GetByID(ctx context.Context, escrowID int) (*Transaction, error) {
	return s.repo.GetByID(ctx, escrowID)
}
