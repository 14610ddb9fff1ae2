package attendance

import (
	"time"

	ierr "github.com/koshtony/beezy-beta/internal/errors"
	"github.com/koshtony/beezy-beta/internal/platform/config"
)

// Schedule is the office day attendance is measured against.
type Schedule struct {
	start    time.Duration
	end      time.Duration
	grace    time.Duration
	location *time.Location
}

func NewSchedule(c config.AttendanceConfig) (Schedule, error) {
	start, err := clock(c.OfficeStart)
	if err != nil {
		return Schedule{}, err
	}
	end, err := clock(c.OfficeEnd)
	if err != nil {
		return Schedule{}, err
	}
	if end <= start {
		return Schedule{}, ierr.NewError("office end before start").
			WithHint("office end must be after office start").
			Mark(ierr.ErrValidation)
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return Schedule{}, ierr.WithError(err).
			WithHintf("unknown office timezone %q", c.Timezone).
			Mark(ierr.ErrValidation)
	}
	return Schedule{start: start, end: end, grace: c.Grace, location: loc}, nil
}

func clock(v string) (time.Duration, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, ierr.WithError(err).
			WithHintf("office hours must use HH:MM, got %q", v).
			Mark(ierr.ErrValidation)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// WorkDate is the office-local calendar day of t, at UTC midnight.
func (s Schedule) WorkDate(t time.Time) time.Time {
	local := t.In(s.location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

func (s Schedule) sinceMidnight(t time.Time) time.Duration {
	local := t.In(s.location)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
	return local.Sub(midnight)
}

// IsLate reports a check-in after office start plus grace.
func (s Schedule) IsLate(t time.Time) bool {
	return s.sinceMidnight(t) > s.start+s.grace
}

// IsEarly reports a check-out before office end minus grace.
func (s Schedule) IsEarly(t time.Time) bool {
	return s.sinceMidnight(t) < s.end-s.grace
}
