package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/LocDang637/CosplayDate-sub001/internal/config"
	"github.com/LocDang637/CosplayDate-sub001/internal/user"
)

// Validator runs every precondition check before a booking may reserve a
// slot and hold funds. It only reads; all outcomes are reported as an
// (ok, reason) pair, with err reserved for storage failures.
type Validator struct {
	policy config.BookingPolicy
	repo   ConflictReader
}

// ConflictReader is the read-only slice of the booking repository the
// validator needs for capacity checks.
type ConflictReader interface {
	CountOverlapping(ctx context.Context, cosplayerID int, date time.Time, start, end time.Time, excludeBookingID int) (int, error)
	CountActiveForCustomerOnDate(ctx context.Context, customerID int, date time.Time) (int, error)
	CountPendingForCustomer(ctx context.Context, customerID int) (int, error)
	SumCommittedMinutes(ctx context.Context, cosplayerID int, date time.Time, excludeBookingID int) (int, error)
}

func NewValidator(policy config.BookingPolicy, repo ConflictReader) *Validator {
	return &Validator{policy: policy, repo: repo}
}

// ValidateCreate checks eligibility, the time window, rate limits, and
// cosplayer capacity for a brand-new booking.
func (v *Validator) ValidateCreate(ctx context.Context, customer, cosplayer *user.User, date, start, end time.Time, now time.Time) (bool, string, error) {
	if ok, reason := v.checkEligibility(customer, cosplayer); !ok {
		return false, reason, nil
	}

	if ok, reason := v.checkTimeWindow(date, start, end, now); !ok {
		return false, reason, nil
	}

	activeToday, err := v.repo.CountActiveForCustomerOnDate(ctx, customer.ID, date)
	if err != nil {
		return false, "", err
	}
	if activeToday >= v.policy.MaxBookingsPerDay {
		return false, fmt.Sprintf("you already have %d bookings on this date", activeToday), nil
	}

	pending, err := v.repo.CountPendingForCustomer(ctx, customer.ID)
	if err != nil {
		return false, "", err
	}
	if pending >= v.policy.MaxPendingBookings {
		return false, fmt.Sprintf("you have %d pending bookings awaiting confirmation", pending), nil
	}

	return v.validateCapacity(ctx, cosplayer.ID, date, start, end, 0)
}

// ValidateReschedule re-checks the time window and cosplayer capacity for an
// updated interval, ignoring the booking being moved.
func (v *Validator) ValidateReschedule(ctx context.Context, cosplayerID int, date, start, end time.Time, now time.Time, excludeBookingID int) (bool, string, error) {
	if ok, reason := v.checkTimeWindow(date, start, end, now); !ok {
		return false, reason, nil
	}

	return v.validateCapacity(ctx, cosplayerID, date, start, end, excludeBookingID)
}

func (v *Validator) checkEligibility(customer, cosplayer *user.User) (bool, string) {
	if customer == nil || customer.Role != user.RoleCustomer {
		return false, "only customers can request bookings"
	}
	if !customer.IsVerified {
		return false, "your account must be verified before booking"
	}
	if cosplayer == nil || cosplayer.Role != user.RoleCosplayer {
		return false, "the selected user is not a cosplayer"
	}
	if !cosplayer.IsVerified {
		return false, "this cosplayer is not verified"
	}
	if !cosplayer.IsAvailable {
		return false, "this cosplayer is not currently accepting bookings"
	}
	if cosplayer.HourlyRate <= 0 {
		return false, "this cosplayer has not set an hourly rate"
	}
	return true, ""
}

func (v *Validator) checkTimeWindow(date, start, end time.Time, now time.Time) (bool, string) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if !date.After(today) {
		return false, "booking date must be in the future"
	}

	horizon := today.AddDate(0, 0, v.policy.HorizonDays)
	if date.After(horizon) {
		return false, fmt.Sprintf("booking date cannot be more than %d days ahead", v.policy.HorizonDays)
	}

	if !end.After(start) {
		return false, "end time must be after start time"
	}

	duration := int(end.Sub(start).Minutes())
	if duration < v.policy.MinDurationMinutes {
		return false, fmt.Sprintf("booking must be at least %d minutes", v.policy.MinDurationMinutes)
	}
	if duration > v.policy.MaxDurationMinutes {
		return false, fmt.Sprintf("booking cannot exceed %d minutes", v.policy.MaxDurationMinutes)
	}

	if start.Hour() < v.policy.OpeningHour {
		return false, fmt.Sprintf("bookings cannot start before %02d:00", v.policy.OpeningHour)
	}
	if end.Hour() > v.policy.ClosingHour || (end.Hour() == v.policy.ClosingHour && end.Minute() > 0) {
		return false, fmt.Sprintf("bookings must end by %02d:00", v.policy.ClosingHour)
	}

	return true, ""
}

func (v *Validator) validateCapacity(ctx context.Context, cosplayerID int, date, start, end time.Time, excludeBookingID int) (bool, string, error) {
	// Interval overlap: start < otherEnd && end > otherStart. Bookings that
	// only touch at a boundary do not conflict.
	overlapping, err := v.repo.CountOverlapping(ctx, cosplayerID, date, start, end, excludeBookingID)
	if err != nil {
		return false, "", err
	}
	if overlapping > 0 {
		return false, "the cosplayer already has a booking in this time slot", nil
	}

	committed, err := v.repo.SumCommittedMinutes(ctx, cosplayerID, date, excludeBookingID)
	if err != nil {
		return false, "", err
	}
	duration := int(end.Sub(start).Minutes())
	if committed+duration > v.policy.DailyCapacityMinute {
		return false, "the cosplayer has reached the daily booking capacity for this date", nil
	}

	return true, "", nil
}
