package booking

import "time"

// CalculatePrice computes hourlyRate * duration rounded half-up to whole
// currency units. 14:00-16:30 at 100/hour prices to 250.
func CalculatePrice(hourlyRate int64, durationMinutes int) int64 {
	return (hourlyRate*int64(durationMinutes) + 30) / 60
}

// RefundPercent maps the time remaining before the scheduled start to the
// refundable share of the held amount. Cancellations inside two hours forfeit
// the full hold.
func RefundPercent(hoursUntilStart float64) int64 {
	switch {
	case hoursUntilStart > 48:
		return 100
	case hoursUntilStart >= 24:
		return 75
	case hoursUntilStart >= 12:
		return 50
	case hoursUntilStart >= 2:
		return 25
	default:
		return 0
	}
}

// RefundAmount applies the banding policy to a held amount. The remainder is
// never credited to the cosplayer; it simply stays unreleased.
func RefundAmount(totalPrice int64, startTime, now time.Time) int64 {
	hours := startTime.Sub(now).Hours()
	return totalPrice * RefundPercent(hours) / 100
}
