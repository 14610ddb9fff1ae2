package leave

import (
	"context"

	"github.com/shopspring/decimal"

	ierr "github.com/koshtony/beezy-beta/internal/errors"
	"github.com/koshtony/beezy-beta/internal/platform/querier"
)

const requestColumns = `id, employee_id, leave_type_id, start_date, end_date, day_type, total_days, reason, status,
    created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (Request, error) {
	var r Request
	err := row.Scan(&r.ID, &r.EmployeeID, &r.LeaveTypeID, &r.StartDate, &r.EndDate, &r.DayType, &r.TotalDays,
		&r.Reason, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if querier.IsNoRows(err) {
		return Request{}, ierr.WithError(err).
			WithHint("leave request not found").
			Mark(ierr.ErrNotFound)
	}
	return r, err
}

func (s *Store) ListTypes(ctx context.Context) ([]LeaveType, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, description, days_per_year, created_at
    FROM leave_types
    ORDER BY name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := []LeaveType{}
	for rows.Next() {
		var t LeaveType
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.DaysPerYear, &t.CreatedAt); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (s *Store) GetType(ctx context.Context, leaveTypeID string) (LeaveType, error) {
	var t LeaveType
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, description, days_per_year, created_at
    FROM leave_types
    WHERE id::text = $1
  `, leaveTypeID).Scan(&t.ID, &t.Name, &t.Description, &t.DaysPerYear, &t.CreatedAt)
	if querier.IsNoRows(err) {
		return LeaveType{}, ierr.WithError(err).
			WithHint("leave type not found").
			Mark(ierr.ErrNotFound)
	}
	return t, err
}

func (s *Store) CreateType(ctx context.Context, t LeaveType) (LeaveType, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_types (name, description, days_per_year)
    VALUES ($1,$2,$3)
    RETURNING id, created_at
  `, t.Name, t.Description, t.DaysPerYear).Scan(&t.ID, &t.CreatedAt)
	if querier.IsUniqueViolation(err) {
		return LeaveType{}, ierr.WithError(err).
			WithHintf("leave type %q already exists", t.Name).
			Mark(ierr.ErrConflict)
	}
	return t, err
}

func (s *Store) ListBalances(ctx context.Context, employeeID string, year int) ([]Balance, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT b.id, b.employee_id, b.leave_type_id, t.name, b.year, b.allocated_days, b.used_days, b.remaining_days
    FROM leave_balances b
    JOIN leave_types t ON t.id = b.leave_type_id
    WHERE b.employee_id::text = $1 AND b.year = $2
    ORDER BY t.name
  `, employeeID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Balance{}
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.ID, &b.EmployeeID, &b.LeaveTypeID, &b.LeaveTypeName, &b.Year, &b.AllocatedDays,
			&b.UsedDays, &b.RemainingDays); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) ConsumeBalance(ctx context.Context, employeeID, leaveTypeID string, year int, allocation, days decimal.Decimal) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO leave_balances (employee_id, leave_type_id, year, allocated_days, used_days, remaining_days)
    VALUES ($1, $2, $3, $4, $5, $4 - $5)
    ON CONFLICT (employee_id, leave_type_id, year) DO UPDATE
    SET used_days = leave_balances.used_days + EXCLUDED.used_days,
        remaining_days = leave_balances.remaining_days - EXCLUDED.used_days
  `, employeeID, leaveTypeID, year, allocation, days)
	return err
}

func (s *Store) CreateRequest(ctx context.Context, r Request) (Request, error) {
	out, err := scanRequest(s.DB.QueryRow(ctx, `
    INSERT INTO leave_requests (employee_id, leave_type_id, start_date, end_date, day_type, total_days, reason, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING `+requestColumns,
		r.EmployeeID, r.LeaveTypeID, r.StartDate, r.EndDate, r.DayType, r.TotalDays, r.Reason, r.Status))
	if querier.IsForeignKeyViolation(err) {
		return Request{}, ierr.WithError(err).
			WithHint("employee or leave type does not exist").
			Mark(ierr.ErrValidation)
	}
	return out, err
}

func (s *Store) GetRequest(ctx context.Context, requestID string) (Request, error) {
	return scanRequest(s.DB.QueryRow(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE id::text = $1
  `, requestID))
}

func (s *Store) GetRequestForUpdate(ctx context.Context, requestID string) (Request, error) {
	return scanRequest(s.DB.QueryRow(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE id::text = $1
    FOR UPDATE
  `, requestID))
}

func (s *Store) ListRequests(ctx context.Context, employeeID string, limit, offset int) ([]Request, int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(*) FROM leave_requests WHERE ($1 = '' OR employee_id::text = $1)
  `, employeeID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.Query(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE ($1 = '' OR employee_id::text = $1)
    ORDER BY created_at DESC
    LIMIT $2 OFFSET $3
  `, employeeID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

func (s *Store) SetRequestStatus(ctx context.Context, requestID, status string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_requests SET status = $2, updated_at = now() WHERE id::text = $1
  `, requestID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ierr.NewError("leave request not found").
			WithHint("leave request not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}
