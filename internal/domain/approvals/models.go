package approvals

import (
	"context"
	"time"

	"github.com/koshtony/beezy-beta/internal/platform/querier"
)

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusNotified  = "notified"
	StatusCancelled = "cancelled"
)

// Workflow outcomes reported to completion handlers.
const (
	OutcomeApproved = "approved"
	OutcomeRejected = "rejected"
)

// Progress classifications.
const (
	ProgressRejected      = "rejected"
	ProgressFullyApproved = "fully_approved"
	ProgressInProgress    = "in_progress"
)

// Stage states in a timeline. StageUpcoming marks a configured level with no
// records yet.
const (
	StageApproved  = "approved"
	StagePending   = "pending"
	StageNotified  = "notified"
	StageRejected  = "rejected"
	StageCancelled = "cancelled"
	StageUpcoming  = "upcoming"
)

const (
	CommentSuperseded    = "superseded: level cleared by another approver"
	CommentAutoCancelled = "auto-cancelled after rejection"
	CommentTargetRemoved = "target removed"
)

// Target identifies the business object a workflow runs for.
type Target struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (t Target) String() string {
	return t.Kind + ":" + t.ID
}

type ApprovalType struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Flow is one configured level of an approval type. Approvers come from
// ApproverID when set, otherwise from the department/sub-department/role
// match where empty fields are wildcards.
type Flow struct {
	ID               string    `json:"id"`
	ApprovalTypeID   string    `json:"approvalTypeId"`
	Level            int       `json:"level"`
	ApproverID       string    `json:"approverId,omitempty"`
	DepartmentID     string    `json:"departmentId,omitempty"`
	SubDepartmentID  string    `json:"subDepartmentId,omitempty"`
	RoleID           string    `json:"roleId,omitempty"`
	IsProperApprover bool      `json:"isProperApprover"`
	NotifyApprover   bool      `json:"notifyApprover"`
	IsActive         bool      `json:"isActive"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (f Flow) HasRule() bool {
	return f.ApproverID != "" || f.DepartmentID != "" || f.SubDepartmentID != "" || f.RoleID != ""
}

type Record struct {
	ID               string     `json:"id"`
	ApprovalTypeID   string     `json:"approvalTypeId"`
	CreatorID        string     `json:"creatorId"`
	ApproverID       string     `json:"approverId"`
	Target           Target     `json:"target"`
	Level            int        `json:"level"`
	Status           string     `json:"status"`
	Comment          string     `json:"comment"`
	ApprovedAt       *time.Time `json:"approvedAt,omitempty"`
	IsProperApprover bool       `json:"isProperApprover"`
	WasNotified      bool       `json:"wasNotified"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

type Attachment struct {
	ID          string    `json:"id"`
	RecordID    string    `json:"recordId"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	UploadedBy  string    `json:"uploadedBy"`
	UploadedAt  time.Time `json:"uploadedAt"`
	Data        []byte    `json:"-"`
}

type Progress struct {
	ApprovalType string   `json:"approvalType"`
	Target       Target   `json:"target"`
	TotalLevels  int      `json:"totalLevels"`
	Approved     int      `json:"approved"`
	HasRejection bool     `json:"hasRejection"`
	Percent      float64  `json:"percent"`
	Status       string   `json:"status"`
	Records      []Record `json:"records"`
	Timeline     []Stage  `json:"timeline"`
}

type Stage struct {
	Level     int             `json:"level"`
	Status    string          `json:"status"`
	Approvers []StageApprover `json:"approvers"`
}

type StageApprover struct {
	RecordID   string     `json:"recordId"`
	ApproverID string     `json:"approverId"`
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	Comment    string     `json:"comment,omitempty"`
	DecidedAt  *time.Time `json:"decidedAt,omitempty"`
}

// Event is delivered to completion handlers inside the deciding transaction.
// Tx is nil when the engine runs on a store without SQL transactions.
type Event struct {
	ApprovalType string
	Outcome      string
	Target       Target
	CreatorID    string
	DecidedBy    string
	Comment      string
	Tx           querier.Querier
}

type CompletionHandler func(ctx context.Context, evt Event) error

// TargetResolver reports whether the object behind a target id exists. It
// must return an error marked NotFound when it does not.
type TargetResolver func(ctx context.Context, q querier.Querier, id string) error

type ListFilter struct {
	Status string
	Limit  int
	Offset int
}
