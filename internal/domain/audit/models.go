package audit

import (
	"encoding/json"
	"time"
)

const (
	ActionApprovalApprove   = "approval.approve"
	ActionApprovalReject    = "approval.reject"
	ActionApprovalCancel    = "approval.cancel"
	ActionApprovalPurge     = "approval.purge"
	ActionApprovalComplete  = "approval.complete"
	ActionApprovalTypeWrite = "approval.type.write"
	ActionApprovalFlowWrite = "approval.flow.write"
)

// Entry is an audit event to write. Before and After are marshalled to JSON.
type Entry struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	RequestID  string
	Before     any
	After      any
}

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	ActorID    string
}
