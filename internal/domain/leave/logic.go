package leave

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/koshtony/beezy-beta/internal/errors"
)

var halfDay = decimal.NewFromFloat(0.5)

// CalculateDays returns the inclusive number of calendar days between start
// and end. Times of day are ignored.
func CalculateDays(start, end time.Time) (int, error) {
	start, end = dateOnly(start), dateOnly(end)
	if end.Before(start) {
		return 0, ierr.NewError("end date before start date").
			WithHint("end date must not be before start date").
			Mark(ierr.ErrValidation)
	}
	return int(end.Sub(start).Hours()/24) + 1, nil
}

// CalculateRequestDays is CalculateDays less half a day for half-day requests.
func CalculateRequestDays(start, end time.Time, dayType string) (decimal.Decimal, error) {
	days, err := CalculateDays(start, end)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.NewFromInt(int64(days))
	switch dayType {
	case DayTypeFull, "":
		return total, nil
	case DayTypeHalf:
		return total.Sub(halfDay), nil
	}
	return decimal.Zero, ierr.NewError("invalid day type").
		WithHintf("day type must be %q or %q", DayTypeFull, DayTypeHalf).
		Mark(ierr.ErrValidation)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
