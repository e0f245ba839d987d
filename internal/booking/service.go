package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LocDang637/CosplayDate-sub001/internal/escrow"
	"github.com/LocDang637/CosplayDate-sub001/internal/logger"
	"github.com/LocDang637/CosplayDate-sub001/internal/metrics"
	"github.com/LocDang637/CosplayDate-sub001/internal/user"
	"github.com/LocDang637/CosplayDate-sub001/internal/wallet"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
	ErrNotBookingOwner   = errors.New("only the requesting customer can modify this booking")
	ErrNotParticipant    = errors.New("only the customer or cosplayer on this booking can do this")
	ErrNotCosplayer      = errors.New("only the booked cosplayer can confirm")
	ErrNotYetEnded       = errors.New("booking cannot be completed before its scheduled end time")
	ErrAlreadyResolved   = errors.New("booking payment was already released or refunded")
)

// ValidationError carries a reason meant to be shown to the end user
// verbatim.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Notifier is the outbound notification sink. Failures to notify never fail
// the money movement that triggered them.
type Notifier interface {
	NotifyPaymentEvent(ctx context.Context, userID int, kind string, amount int64, bookingCode string, success bool)
}

type Service interface {
	Create(ctx context.Context, customerID int, req CreateBookingRequest) (*Booking, error)
	Update(ctx context.Context, customerID, bookingID int, req UpdateBookingRequest) (*Booking, error)
	Confirm(ctx context.Context, cosplayerID, bookingID int) (*Booking, error)
	Complete(ctx context.Context, userID, bookingID int) (*Booking, error)
	Cancel(ctx context.Context, userID, bookingID int, reason string) (*Booking, int64, error)
	GetByID(ctx context.Context, id int) (*Booking, error)
	GetCustomerBookings(ctx context.Context, customerID int) ([]BookingWithDetails, error)
	GetCosplayerBookings(ctx context.Context, cosplayerID int) ([]BookingWithDetails, error)
}

type service struct {
	db        *sqlx.DB
	repo      Repository
	users     user.Repository
	validator *Validator
	escrow    escrow.Service
	ledger    wallet.Ledger
	notifier  Notifier
}

func NewService(
	db *sqlx.DB,
	repo Repository,
	users user.Repository,
	validator *Validator,
	escrowSvc escrow.Service,
	ledger wallet.Ledger,
	notifier Notifier,
) Service {
	return &service{
		db:        db,
		repo:      repo,
		users:     users,
		validator: validator,
		escrow:    escrowSvc,
		ledger:    ledger,
		notifier:  notifier,
	}
}

func newBookingCode() string {
	return "BK-" + strings.ToUpper(uuid.NewString()[:8])
}

// parseSchedule turns the wire format (date + clock times) into concrete
// timestamps. The end landing exactly at midnight is rejected earlier by the
// operating-hours check, so start and end always share the date.
func parseSchedule(dateStr, startStr, endStr string) (date, start, end time.Time, err error) {
	date, err = time.Parse("2006-01-02", dateStr)
	if err != nil {
		return date, start, end, fmt.Errorf("invalid date, expected YYYY-MM-DD")
	}

	startClock, err := time.Parse("15:04", startStr)
	if err != nil {
		return date, start, end, fmt.Errorf("invalid start_time, expected HH:MM")
	}

	endClock, err := time.Parse("15:04", endStr)
	if err != nil {
		return date, start, end, fmt.Errorf("invalid end_time, expected HH:MM")
	}

	start = time.Date(date.Year(), date.Month(), date.Day(), startClock.Hour(), startClock.Minute(), 0, 0, time.UTC)
	end = time.Date(date.Year(), date.Month(), date.Day(), endClock.Hour(), endClock.Minute(), 0, 0, time.UTC)
	return date, start, end, nil
}

func (s *service) Create(ctx context.Context, customerID int, req CreateBookingRequest) (*Booking, error) {
	date, start, end, err := parseSchedule(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	customer, err := s.users.FindByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	cosplayer, err := s.users.FindByID(ctx, req.CosplayerID)
	if err != nil {
		return nil, &ValidationError{Reason: "cosplayer not found"}
	}

	ok, reason, err := s.validator.ValidateCreate(ctx, customer, cosplayer, date, start, end, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ValidationError{Reason: reason}
	}

	durationMinutes := int(end.Sub(start).Minutes())
	totalPrice := CalculatePrice(cosplayer.HourlyRate, durationMinutes)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	created, err := s.repo.CreateTx(ctx, tx, &Booking{
		Code:            newBookingCode(),
		CustomerID:      customerID,
		CosplayerID:     cosplayer.ID,
		Date:            date,
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: durationMinutes,
		TotalPrice:      totalPrice,
		Location:        req.Location,
		Notes:           req.Notes,
	})
	if err != nil {
		return nil, err
	}

	// The hold shares the transaction: a failed debit rolls the booking row
	// back with it.
	_, err = s.escrow.CreateTx(ctx, tx, created.ID, customerID, cosplayer.ID, totalPrice)
	if err != nil {
		if errors.Is(err, wallet.ErrInsufficientBalance) {
			return nil, ErrInsufficientFunds
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	metrics.RecordBooking("created")
	logger.Info("booking created", "booking_id", created.ID, "code", created.Code,
		"customer_id", customerID, "cosplayer_id", cosplayer.ID, "total_price", totalPrice)

	s.notifier.NotifyPaymentEvent(ctx, customerID, "booking_payment", totalPrice, created.Code, true)

	return created, nil
}

func (s *service) Update(ctx context.Context, customerID, bookingID int, req UpdateBookingRequest) (*Booking, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	b, err := s.repo.GetByIDForUpdateTx(ctx, tx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	if b.CustomerID != customerID {
		return nil, ErrNotBookingOwner
	}
	if b.Status != StatusPending {
		return nil, ErrInvalidTransition
	}

	date, start, end := b.Date, b.StartTime, b.EndTime
	timeChanged := req.Date != nil || req.StartTime != nil || req.EndTime != nil
	if timeChanged {
		dateStr := b.Date.Format("2006-01-02")
		startStr := b.StartTime.Format("15:04")
		endStr := b.EndTime.Format("15:04")
		if req.Date != nil {
			dateStr = *req.Date
		}
		if req.StartTime != nil {
			startStr = *req.StartTime
		}
		if req.EndTime != nil {
			endStr = *req.EndTime
		}

		date, start, end, err = parseSchedule(dateStr, startStr, endStr)
		if err != nil {
			return nil, &ValidationError{Reason: err.Error()}
		}
	}

	location := b.Location
	if req.Location != nil {
		location = *req.Location
	}
	notes := b.Notes
	if req.Notes != nil {
		notes = *req.Notes
	}

	durationMinutes := b.DurationMinutes
	totalPrice := b.TotalPrice

	if timeChanged {
		ok, reason, err := s.validator.ValidateReschedule(ctx, b.CosplayerID, date, start, end, time.Now().UTC(), b.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &ValidationError{Reason: reason}
		}

		cosplayer, err := s.users.FindByID(ctx, b.CosplayerID)
		if err != nil {
			return nil, fmt.Errorf("failed to load cosplayer: %w", err)
		}

		durationMinutes = int(end.Sub(start).Minutes())
		totalPrice = CalculatePrice(cosplayer.HourlyRate, durationMinutes)

		// Settle the price delta immediately. An increase the customer
		// cannot afford rejects the whole update; the deferred rollback
		// leaves everything untouched.
		delta := totalPrice - b.TotalPrice
		if delta > 0 {
			_, err = s.ledger.DebitTx(ctx, tx, customerID, delta, wallet.EntryBookingAdjustment,
				fmt.Sprintf("Price increase for booking %s", b.Code), "ADJ-"+uuid.NewString())
			if err != nil {
				if errors.Is(err, wallet.ErrInsufficientBalance) {
					return nil, ErrInsufficientFunds
				}
				return nil, err
			}
		} else if delta < 0 {
			_, err = s.ledger.CreditTx(ctx, tx, customerID, -delta, wallet.EntryBookingRefund,
				fmt.Sprintf("Price decrease for booking %s", b.Code), "ADJ-"+uuid.NewString())
			if err != nil {
				return nil, err
			}
		}

		if delta != 0 {
			if _, err := s.escrow.AdjustHoldTx(ctx, tx, b.ID, totalPrice); err != nil {
				return nil, err
			}
		}
	}

	updated, err := s.repo.UpdateScheduleTx(ctx, tx, b.ID, date, start, end, durationMinutes, totalPrice, location, notes)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	logger.Info("booking updated", "booking_id", b.ID, "total_price", totalPrice)
	return updated, nil
}

func (s *service) Confirm(ctx context.Context, cosplayerID, bookingID int) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, ErrBookingNotFound
	}

	if b.CosplayerID != cosplayerID {
		return nil, ErrNotCosplayer
	}

	// Funds are already held; confirmation moves no money.
	ok, err := s.repo.Confirm(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	metrics.RecordBooking("confirmed")
	return s.repo.GetByID(ctx, bookingID)
}

func (s *service) Complete(ctx context.Context, userID, bookingID int) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, ErrBookingNotFound
	}

	if userID != b.CustomerID && userID != b.CosplayerID {
		return nil, ErrNotParticipant
	}
	if b.Status != StatusConfirmed {
		return nil, ErrInvalidTransition
	}
	if time.Now().UTC().Before(b.EndTime) {
		return nil, ErrNotYetEnded
	}

	released, err := s.escrow.Release(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !released {
		return nil, ErrAlreadyResolved
	}

	metrics.RecordBooking("completed")
	s.notifier.NotifyPaymentEvent(ctx, b.CosplayerID, "booking_release", b.TotalPrice, b.Code, true)

	return s.repo.GetByID(ctx, bookingID)
}

func (s *service) Cancel(ctx context.Context, userID, bookingID int, reason string) (*Booking, int64, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, 0, ErrBookingNotFound
	}

	if userID != b.CustomerID && userID != b.CosplayerID {
		return nil, 0, ErrNotParticipant
	}
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return nil, 0, ErrInvalidTransition
	}

	esc, err := s.escrow.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, 0, err
	}
	if esc == nil {
		return nil, 0, ErrAlreadyResolved
	}

	// The unrefunded remainder is deliberately never credited to the
	// cosplayer; it stays unreleased.
	refund := RefundAmount(esc.Amount, b.StartTime, time.Now().UTC())

	refunded, err := s.escrow.Refund(ctx, esc.ID, refund, reason)
	if err != nil {
		return nil, 0, err
	}
	if !refunded {
		return nil, 0, ErrAlreadyResolved
	}

	metrics.RecordBooking("cancelled")
	logger.Info("booking cancelled", "booking_id", bookingID, "refund", refund, "reason", reason)
	s.notifier.NotifyPaymentEvent(ctx, b.CustomerID, "booking_refund", refund, b.Code, true)

	updated, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, 0, err
	}
	return updated, refund, nil
}

func (s *service) GetByID(ctx context.Context, id int) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

func (s *service) GetCustomerBookings(ctx context.Context, customerID int) ([]BookingWithDetails, error) {
	return s.repo.GetCustomerBookings(ctx, customerID)
}

func (s *service) GetCosplayerBookings(ctx context.Context, cosplayerID int) ([]BookingWithDetails, error) {
	return s.repo.GetCosplayerBookings(ctx, cosplayerID)
}
