package attendance

import (
	"context"
	"log/slog"
	"time"

	ierr "github.com/koshtony/beezy-beta/internal/errors"
)

type Service struct {
	store    StoreAPI
	schedule Schedule
	now      func() time.Time
}

func NewService(store StoreAPI, schedule Schedule) *Service {
	return &Service{store: store, schedule: schedule, now: time.Now}
}

func (s *Service) CheckIn(ctx context.Context, employeeID, deviceIP string) (Record, error) {
	at := s.now().UTC()
	rec, err := s.store.CheckIn(ctx, Record{
		EmployeeID:    employeeID,
		WorkDate:      s.schedule.WorkDate(at),
		CheckInAt:     at,
		IsLateCheckIn: s.schedule.IsLate(at),
		DeviceIP:      deviceIP,
	})
	if err != nil {
		return Record{}, err
	}
	if rec.IsLateCheckIn {
		slog.Info("late check-in", "employee_id", employeeID, "check_in_at", at)
	}
	return rec, nil
}

func (s *Service) CheckOut(ctx context.Context, employeeID string) (Record, error) {
	at := s.now().UTC()
	rec, err := s.store.GetForDay(ctx, employeeID, s.schedule.WorkDate(at))
	if ierr.IsNotFound(err) {
		return Record{}, ierr.NewError("no check-in for the day").
			WithHint("check in before checking out").
			Mark(ierr.ErrInvalidState)
	}
	if err != nil {
		return Record{}, err
	}
	if rec.CheckOutAt != nil {
		return Record{}, ierr.NewError("already checked out").
			WithHint("already checked out today").
			Mark(ierr.ErrInvalidState)
	}
	return s.store.CheckOut(ctx, rec.ID, at, s.schedule.IsEarly(at))
}

// History lists an employee's records between two office-local dates,
// inclusive. A zero range covers the last 30 days.
func (s *Service) History(ctx context.Context, employeeID string, from, to time.Time, limit, offset int) ([]Record, int, error) {
	if to.IsZero() {
		to = s.schedule.WorkDate(s.now())
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if to.Before(from) {
		return nil, 0, ierr.NewError("invalid date range").
			WithHint("from must not be after to").
			Mark(ierr.ErrValidation)
	}
	return s.store.List(ctx, employeeID, from, to, limit, offset)
}
