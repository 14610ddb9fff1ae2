package leave

import (
	"context"

	"github.com/shopspring/decimal"
)

type StoreAPI interface {
	ListTypes(ctx context.Context) ([]LeaveType, error)
	GetType(ctx context.Context, leaveTypeID string) (LeaveType, error)
	CreateType(ctx context.Context, t LeaveType) (LeaveType, error)

	ListBalances(ctx context.Context, employeeID string, year int) ([]Balance, error)
	// ConsumeBalance adds days to used and removes them from remaining,
	// creating the balance with allocation when it does not exist yet.
	ConsumeBalance(ctx context.Context, employeeID, leaveTypeID string, year int, allocation, days decimal.Decimal) error

	CreateRequest(ctx context.Context, r Request) (Request, error)
	GetRequest(ctx context.Context, requestID string) (Request, error)
	GetRequestForUpdate(ctx context.Context, requestID string) (Request, error)
	ListRequests(ctx context.Context, employeeID string, limit, offset int) ([]Request, int, error)
	SetRequestStatus(ctx context.Context, requestID, status string) error
}
