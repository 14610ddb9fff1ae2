package payroll

import (
	"context"

	"github.com/shopspring/decimal"

	ierr "github.com/koshtony/beezy-beta/internal/errors"
	"github.com/koshtony/beezy-beta/internal/platform/querier"
)

const payrollColumns = `p.id, p.employee_id, e.full_name, p.period_id, p.basic_salary, p.total_allowances, p.total_deductions,
    p.overtime_pay, p.gross_pay, p.paye, p.shif, p.nssf, p.housing_levy, p.net_pay, p.status, p.processed_at`

const overtimeColumns = `id, employee_id, period_id, hours_worked, hourly_rate, status, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func notFound(err error, what string) error {
	if querier.IsNoRows(err) {
		return ierr.WithError(err).
			WithHintf("%s not found", what).
			Mark(ierr.ErrNotFound)
	}
	return err
}

func scanPayroll(row rowScanner) (Payroll, error) {
	var p Payroll
	err := row.Scan(&p.ID, &p.EmployeeID, &p.EmployeeName, &p.PeriodID, &p.BasicSalary, &p.TotalAllowances,
		&p.TotalDeductions, &p.OvertimePay, &p.GrossPay, &p.PAYE, &p.SHIF, &p.NSSF, &p.HousingLevy, &p.NetPay,
		&p.Status, &p.ProcessedAt)
	return p, notFound(err, "payroll")
}

func scanOvertime(row rowScanner) (Overtime, error) {
	var o Overtime
	err := row.Scan(&o.ID, &o.EmployeeID, &o.PeriodID, &o.HoursWorked, &o.HourlyRate, &o.Status, &o.CreatedAt)
	return o, notFound(err, "overtime record")
}

func (s *Store) ListPeriods(ctx context.Context) ([]Period, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, month, year, is_locked, created_at
    FROM payroll_periods
    ORDER BY year DESC, month DESC
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Period{}
	for rows.Next() {
		var p Period
		if err := rows.Scan(&p.ID, &p.Month, &p.Year, &p.IsLocked, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) CreatePeriod(ctx context.Context, month, year int) (Period, error) {
	p := Period{Month: month, Year: year}
	err := s.DB.QueryRow(ctx, `
    INSERT INTO payroll_periods (month, year)
    VALUES ($1,$2)
    RETURNING id, is_locked, created_at
  `, month, year).Scan(&p.ID, &p.IsLocked, &p.CreatedAt)
	if querier.IsUniqueViolation(err) {
		return Period{}, ierr.WithError(err).
			WithHintf("payroll period %s already exists", p.Label()).
			Mark(ierr.ErrConflict)
	}
	return p, err
}

func (s *Store) GetPeriod(ctx context.Context, periodID string) (Period, error) {
	var p Period
	err := s.DB.QueryRow(ctx, `
    SELECT id, month, year, is_locked, created_at
    FROM payroll_periods
    WHERE id::text = $1
  `, periodID).Scan(&p.ID, &p.Month, &p.Year, &p.IsLocked, &p.CreatedAt)
	return p, notFound(err, "payroll period")
}

func (s *Store) LockPeriod(ctx context.Context, periodID string) (Period, error) {
	var p Period
	err := s.DB.QueryRow(ctx, `
    UPDATE payroll_periods SET is_locked = true
    WHERE id::text = $1
    RETURNING id, month, year, is_locked, created_at
  `, periodID).Scan(&p.ID, &p.Month, &p.Year, &p.IsLocked, &p.CreatedAt)
	return p, notFound(err, "payroll period")
}

func (s *Store) SavePayroll(ctx context.Context, p Payroll) (Payroll, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employee_payrolls (employee_id, period_id, basic_salary, total_allowances, total_deductions,
      overtime_pay, gross_pay, paye, shif, nssf, housing_levy, net_pay, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,'draft')
    ON CONFLICT (employee_id, period_id) DO UPDATE
    SET basic_salary = EXCLUDED.basic_salary, total_allowances = EXCLUDED.total_allowances,
        total_deductions = EXCLUDED.total_deductions, overtime_pay = EXCLUDED.overtime_pay,
        gross_pay = EXCLUDED.gross_pay, paye = EXCLUDED.paye, shif = EXCLUDED.shif, nssf = EXCLUDED.nssf,
        housing_levy = EXCLUDED.housing_levy, net_pay = EXCLUDED.net_pay, processed_at = now()
    WHERE employee_payrolls.status = 'draft'
    RETURNING id
  `, p.EmployeeID, p.PeriodID, p.BasicSalary, p.TotalAllowances, p.TotalDeductions, p.OvertimePay, p.GrossPay,
		p.PAYE, p.SHIF, p.NSSF, p.HousingLevy, p.NetPay).Scan(&id)
	switch {
	case querier.IsNoRows(err):
		return Payroll{}, ierr.WithError(err).
			WithHint("payroll has already been submitted and cannot be recomputed").
			Mark(ierr.ErrInvalidState)
	case querier.IsForeignKeyViolation(err):
		return Payroll{}, ierr.WithError(err).
			WithHint("employee or payroll period does not exist").
			Mark(ierr.ErrValidation)
	case err != nil:
		return Payroll{}, err
	}
	return s.GetPayroll(ctx, id)
}

func (s *Store) GetPayroll(ctx context.Context, payrollID string) (Payroll, error) {
	return scanPayroll(s.DB.QueryRow(ctx, `
    SELECT `+payrollColumns+`
    FROM employee_payrolls p
    JOIN employees e ON e.id = p.employee_id
    WHERE p.id::text = $1
  `, payrollID))
}

func (s *Store) GetPayrollForUpdate(ctx context.Context, payrollID string) (Payroll, error) {
	return scanPayroll(s.DB.QueryRow(ctx, `
    SELECT `+payrollColumns+`
    FROM employee_payrolls p
    JOIN employees e ON e.id = p.employee_id
    WHERE p.id::text = $1
    FOR UPDATE OF p
  `, payrollID))
}

func (s *Store) ListPayrolls(ctx context.Context, periodID string) ([]Payroll, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+payrollColumns+`
    FROM employee_payrolls p
    JOIN employees e ON e.id = p.employee_id
    WHERE p.period_id::text = $1
    ORDER BY e.full_name
  `, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Payroll{}
	for rows.Next() {
		p, err := scanPayroll(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) SetPayrollStatus(ctx context.Context, payrollID, status string) error {
	tag, err := s.DB.Exec(ctx, `UPDATE employee_payrolls SET status = $2 WHERE id::text = $1`, payrollID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ierr.NewError("payroll not found").WithHint("payroll not found").Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *Store) ApprovedOvertimeTotal(ctx context.Context, employeeID, periodID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(SUM(hours_worked * hourly_rate), 0)
    FROM overtime_records
    WHERE employee_id::text = $1 AND period_id::text = $2 AND status = 'approved'
  `, employeeID, periodID).Scan(&total)
	return total, err
}

func (s *Store) CreateOvertime(ctx context.Context, o Overtime) (Overtime, error) {
	out, err := scanOvertime(s.DB.QueryRow(ctx, `
    INSERT INTO overtime_records (employee_id, period_id, hours_worked, hourly_rate, status)
    VALUES ($1,$2,$3,$4,'draft')
    RETURNING `+overtimeColumns,
		o.EmployeeID, o.PeriodID, o.HoursWorked, o.HourlyRate))
	switch {
	case querier.IsUniqueViolation(err):
		return Overtime{}, ierr.WithError(err).
			WithHint("overtime is already recorded for this employee and period").
			Mark(ierr.ErrConflict)
	case querier.IsForeignKeyViolation(err):
		return Overtime{}, ierr.WithError(err).
			WithHint("employee or payroll period does not exist").
			Mark(ierr.ErrValidation)
	}
	return out, err
}

func (s *Store) GetOvertime(ctx context.Context, overtimeID string) (Overtime, error) {
	return scanOvertime(s.DB.QueryRow(ctx, `
    SELECT `+overtimeColumns+` FROM overtime_records WHERE id::text = $1
  `, overtimeID))
}

func (s *Store) GetOvertimeForUpdate(ctx context.Context, overtimeID string) (Overtime, error) {
	return scanOvertime(s.DB.QueryRow(ctx, `
    SELECT `+overtimeColumns+` FROM overtime_records WHERE id::text = $1 FOR UPDATE
  `, overtimeID))
}

func (s *Store) ListOvertime(ctx context.Context, periodID, employeeID string) ([]Overtime, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+overtimeColumns+`
    FROM overtime_records
    WHERE ($1 = '' OR period_id::text = $1) AND ($2 = '' OR employee_id::text = $2)
    ORDER BY created_at DESC
  `, periodID, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Overtime{}
	for rows.Next() {
		o, err := scanOvertime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) SetOvertimeStatus(ctx context.Context, overtimeID, status string) error {
	tag, err := s.DB.Exec(ctx, `UPDATE overtime_records SET status = $2 WHERE id::text = $1`, overtimeID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ierr.NewError("overtime record not found").WithHint("overtime record not found").Mark(ierr.ErrNotFound)
	}
	return nil
}
