package approvals

import (
	"context"
	"time"

	"github.com/koshtony/beezy-beta/internal/domain/audit"
	"github.com/koshtony/beezy-beta/internal/domain/notifications"
	"github.com/koshtony/beezy-beta/internal/platform/querier"
)

// StoreAPI is the read side plus the configuration registry. Transitions go
// through TxStore.
type StoreAPI interface {
	// InTx runs fn in a new transaction.
	InTx(ctx context.Context, fn func(tx TxStore) error) error
	// Join binds a TxStore to a transaction owned by the caller.
	Join(q querier.Querier) TxStore

	ListTypes(ctx context.Context) ([]ApprovalType, error)
	GetType(ctx context.Context, typeID string) (ApprovalType, error)
	CreateType(ctx context.Context, t ApprovalType) (ApprovalType, error)
	UpdateType(ctx context.Context, t ApprovalType) (ApprovalType, error)
	DeleteType(ctx context.Context, typeID string) error
	TypeInUse(ctx context.Context, typeID string) (bool, error)

	ListFlows(ctx context.Context, typeID string) ([]Flow, error)
	GetFlow(ctx context.Context, flowID string) (Flow, error)
	CreateFlow(ctx context.Context, f Flow) (Flow, error)
	UpdateFlow(ctx context.Context, f Flow) (Flow, error)

	GetRecord(ctx context.Context, recordID string) (Record, error)
	ListTargetRecords(ctx context.Context, target Target) ([]Record, error)
	ListAssigned(ctx context.Context, approverID string, filter ListFilter) ([]Record, int, error)
	ListCreated(ctx context.Context, creatorID string, filter ListFilter) ([]Record, int, error)

	CreateAttachment(ctx context.Context, a Attachment) (Attachment, error)
	ListAttachments(ctx context.Context, recordID string) ([]Attachment, error)
}

// TxStore performs the reads and writes of one workflow transition. Every
// call runs in the same transaction.
type TxStore interface {
	Querier() querier.Querier

	// LockWorkflow serialises transitions of one (type, target) workflow until
	// the transaction ends.
	LockWorkflow(ctx context.Context, typeID string, target Target) error
	GetTypeByName(ctx context.Context, name string) (ApprovalType, error)
	GetType(ctx context.Context, typeID string) (ApprovalType, error)
	// GetTypeForUpdate locks the type row until the transaction ends.
	GetTypeForUpdate(ctx context.Context, typeID string) (ApprovalType, error)
	TypeInUse(ctx context.Context, typeID string) (bool, error)
	CreateType(ctx context.Context, t ApprovalType) (ApprovalType, error)
	UpdateType(ctx context.Context, t ApprovalType) (ApprovalType, error)
	DeleteType(ctx context.Context, typeID string) error
	GetFlow(ctx context.Context, flowID string) (Flow, error)
	CreateFlow(ctx context.Context, f Flow) (Flow, error)
	UpdateFlow(ctx context.Context, f Flow) (Flow, error)
	GetRecord(ctx context.Context, recordID string) (Record, error)
	GetRecordForUpdate(ctx context.Context, recordID string) (Record, error)

	ActiveFlowsAtLevel(ctx context.Context, typeID string, level int) ([]Flow, error)
	// NextActiveLevel returns the lowest active level above after.
	NextActiveLevel(ctx context.Context, typeID string, after int) (int, bool, error)

	// TargetTypeIDs lists the approval types that hold records for target.
	TargetTypeIDs(ctx context.Context, target Target) ([]string, error)
	CountRecords(ctx context.Context, typeID string, target Target) (int, error)
	HasRejection(ctx context.Context, typeID string, target Target) (bool, error)
	CountPendingAtLevel(ctx context.Context, typeID string, target Target, level int) (int, error)

	// InsertRecord inserts unless a record exists for the same type, target,
	// approver and level. The bool reports whether a row was written.
	InsertRecord(ctx context.Context, rec Record) (Record, bool, error)
	SetDecision(ctx context.Context, recordID, status, comment string, at time.Time) (Record, error)
	CancelPendingAbove(ctx context.Context, typeID string, target Target, level int, comment string, at time.Time) ([]Record, error)
	CancelPendingSiblings(ctx context.Context, typeID string, target Target, level int, exceptID, comment string, at time.Time) ([]Record, error)
	CancelPendingForTarget(ctx context.Context, target Target, comment string, at time.Time) ([]Record, error)
	DeleteTargetRecords(ctx context.Context, target Target) (int, error)

	CreateNotification(ctx context.Context, n notifications.Notification) (notifications.Notification, error)
	RecordAudit(ctx context.Context, entry audit.Entry) error
}

// Directory resolves approvers and display names.
type Directory interface {
	ResolveApprovers(ctx context.Context, departmentID, subDepartmentID, roleID string) ([]string, error)
	EmployeeName(ctx context.Context, employeeID string) (string, error)
}

// Recorder receives workflow metrics.
type Recorder interface {
	RecordsCreated(approvalType string, count int)
	Decision(approvalType, status string)
	WorkflowCompleted(approvalType, outcome string)
	NotificationsCreated(count int)
}

// Deliverer sends committed notifications by e-mail.
type Deliverer interface {
	Deliver(ctx context.Context, outbound []notifications.Outbound)
}

type noopRecorder struct{}

func (noopRecorder) RecordsCreated(string, int) {}

func (noopRecorder) Decision(string, string) {}

func (noopRecorder) WorkflowCompleted(string, string) {}

func (noopRecorder) NotificationsCreated(int) {}
