package payroll

import (
	"context"

	"github.com/shopspring/decimal"
)

type StoreAPI interface {
	ListPeriods(ctx context.Context) ([]Period, error)
	CreatePeriod(ctx context.Context, month, year int) (Period, error)
	GetPeriod(ctx context.Context, periodID string) (Period, error)
	LockPeriod(ctx context.Context, periodID string) (Period, error)

	// SavePayroll inserts or replaces the draft payroll of an employee for a period.
	SavePayroll(ctx context.Context, p Payroll) (Payroll, error)
	GetPayroll(ctx context.Context, payrollID string) (Payroll, error)
	GetPayrollForUpdate(ctx context.Context, payrollID string) (Payroll, error)
	ListPayrolls(ctx context.Context, periodID string) ([]Payroll, error)
	SetPayrollStatus(ctx context.Context, payrollID, status string) error
	ApprovedOvertimeTotal(ctx context.Context, employeeID, periodID string) (decimal.Decimal, error)

	CreateOvertime(ctx context.Context, o Overtime) (Overtime, error)
	GetOvertime(ctx context.Context, overtimeID string) (Overtime, error)
	GetOvertimeForUpdate(ctx context.Context, overtimeID string) (Overtime, error)
	ListOvertime(ctx context.Context, periodID, employeeID string) ([]Overtime, error)
	SetOvertimeStatus(ctx context.Context, overtimeID, status string) error
}
