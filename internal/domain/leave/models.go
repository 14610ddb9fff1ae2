package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"

	DayTypeFull = "full"
	DayTypeHalf = "half"
)

// ApprovalTypeName is the approval type that governs leave requests.
const (
	ApprovalTypeName = "Leave"
	TargetKind       = "leave_request"
)

type LeaveType struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	DaysPerYear decimal.Decimal `json:"daysPerYear"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type Balance struct {
	ID            string          `json:"id"`
	EmployeeID    string          `json:"employeeId"`
	LeaveTypeID   string          `json:"leaveTypeId"`
	LeaveTypeName string          `json:"leaveTypeName"`
	Year          int             `json:"year"`
	AllocatedDays decimal.Decimal `json:"allocatedDays"`
	UsedDays      decimal.Decimal `json:"usedDays"`
	RemainingDays decimal.Decimal `json:"remainingDays"`
}

type Request struct {
	ID          string          `json:"id"`
	EmployeeID  string          `json:"employeeId"`
	LeaveTypeID string          `json:"leaveTypeId"`
	StartDate   time.Time       `json:"startDate"`
	EndDate     time.Time       `json:"endDate"`
	DayType     string          `json:"dayType"`
	TotalDays   decimal.Decimal `json:"totalDays"`
	Reason      string          `json:"reason"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type SubmitInput struct {
	LeaveTypeID string
	StartDate   time.Time
	EndDate     time.Time
	DayType     string
	Reason      string
}
