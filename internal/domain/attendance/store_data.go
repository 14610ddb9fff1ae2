package attendance

import (
	"context"
	"time"

	ierr "github.com/koshtony/beezy-beta/internal/errors"
	"github.com/koshtony/beezy-beta/internal/platform/querier"
)

const recordColumns = `id, employee_id, work_date, check_in_at, check_out_at, is_late_check_in,
    is_early_check_out, device_ip, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.EmployeeID, &r.WorkDate, &r.CheckInAt, &r.CheckOutAt, &r.IsLateCheckIn,
		&r.IsEarlyCheckOut, &r.DeviceIP, &r.CreatedAt, &r.UpdatedAt)
	if querier.IsNoRows(err) {
		return Record{}, ierr.WithError(err).
			WithHint("no attendance record for this day").
			Mark(ierr.ErrNotFound)
	}
	return r, err
}

func (s *Store) CheckIn(ctx context.Context, r Record) (Record, error) {
	out, err := scanRecord(s.DB.QueryRow(ctx, `
    INSERT INTO attendance (employee_id, work_date, check_in_at, is_late_check_in, device_ip)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING `+recordColumns,
		r.EmployeeID, r.WorkDate, r.CheckInAt, r.IsLateCheckIn, r.DeviceIP))
	switch {
	case querier.IsUniqueViolation(err):
		return Record{}, ierr.WithError(err).
			WithHint("already checked in today").
			Mark(ierr.ErrInvalidState)
	case querier.IsForeignKeyViolation(err):
		return Record{}, ierr.WithError(err).
			WithHint("employee does not exist").
			Mark(ierr.ErrValidation)
	}
	return out, err
}

func (s *Store) GetForDay(ctx context.Context, employeeID string, workDate time.Time) (Record, error) {
	return scanRecord(s.DB.QueryRow(ctx, `
    SELECT `+recordColumns+`
    FROM attendance
    WHERE employee_id::text = $1 AND work_date = $2
  `, employeeID, workDate))
}

// CheckOut only updates a record that has not been checked out yet.
func (s *Store) CheckOut(ctx context.Context, recordID string, at time.Time, early bool) (Record, error) {
	out, err := scanRecord(s.DB.QueryRow(ctx, `
    UPDATE attendance
    SET check_out_at = $2, is_early_check_out = $3, updated_at = now()
    WHERE id::text = $1 AND check_out_at IS NULL
    RETURNING `+recordColumns,
		recordID, at, early))
	if ierr.IsNotFound(err) {
		return Record{}, ierr.NewError("already checked out").
			WithHint("already checked out today").
			Mark(ierr.ErrInvalidState)
	}
	return out, err
}

func (s *Store) List(ctx context.Context, employeeID string, from, to time.Time, limit, offset int) ([]Record, int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(*)
    FROM attendance
    WHERE employee_id::text = $1 AND work_date BETWEEN $2 AND $3
  `, employeeID, from, to).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.Query(ctx, `
    SELECT `+recordColumns+`
    FROM attendance
    WHERE employee_id::text = $1 AND work_date BETWEEN $2 AND $3
    ORDER BY work_date DESC
    LIMIT $4 OFFSET $5
  `, employeeID, from, to, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}
