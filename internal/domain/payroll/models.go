package payroll

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusDraft           = "draft"
	StatusPendingApproval = "pending_approval"
	StatusApproved        = "approved"
	StatusRejected        = "rejected"
)

// Approval types and target kinds owned by payroll.
const (
	PayrollApprovalType  = "Payroll"
	OvertimeApprovalType = "Overtime"
	PayrollTargetKind    = "employee_payroll"
	OvertimeTargetKind   = "overtime_record"
)

type Period struct {
	ID        string    `json:"id"`
	Month     int       `json:"month"`
	Year      int       `json:"year"`
	IsLocked  bool      `json:"isLocked"`
	CreatedAt time.Time `json:"createdAt"`
}

func (p Period) Label() string {
	return time.Month(p.Month).String() + " " + strconv.Itoa(p.Year)
}

type Payroll struct {
	ID              string          `json:"id"`
	EmployeeID      string          `json:"employeeId"`
	EmployeeName    string          `json:"employeeName,omitempty"`
	PeriodID        string          `json:"periodId"`
	BasicSalary     decimal.Decimal `json:"basicSalary"`
	TotalAllowances decimal.Decimal `json:"totalAllowances"`
	TotalDeductions decimal.Decimal `json:"totalDeductions"`
	Breakdown
	Status      string    `json:"status"`
	ProcessedAt time.Time `json:"processedAt"`
}

type Overtime struct {
	ID          string          `json:"id"`
	EmployeeID  string          `json:"employeeId"`
	PeriodID    string          `json:"periodId"`
	HoursWorked decimal.Decimal `json:"hoursWorked"`
	HourlyRate  decimal.Decimal `json:"hourlyRate"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (o Overtime) Amount() decimal.Decimal {
	return o.HoursWorked.Mul(o.HourlyRate).Round(2)
}

type ComputeInput struct {
	EmployeeID      string
	BasicSalary     decimal.Decimal
	TotalAllowances decimal.Decimal
	TotalDeductions decimal.Decimal
}

type OvertimeInput struct {
	EmployeeID  string
	PeriodID    string
	HoursWorked decimal.Decimal
}
