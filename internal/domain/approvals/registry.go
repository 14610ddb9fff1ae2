package approvals

import (
	"context"
	"strings"

	"github.com/koshtony/beezy-beta/internal/domain/audit"
	ierr "github.com/koshtony/beezy-beta/internal/errors"
	"github.com/koshtony/beezy-beta/internal/requestctx"
)

// Registry manages approval types and their level flows. Each write runs
// with its checks and audit entry in one transaction.
type Registry struct {
	store StoreAPI
}

func NewRegistry(store StoreAPI) *Registry {
	return &Registry{store: store}
}

func (r *Registry) ListTypes(ctx context.Context) ([]ApprovalType, error) {
	return r.store.ListTypes(ctx)
}

func (r *Registry) GetType(ctx context.Context, typeID string) (ApprovalType, error) {
	return r.store.GetType(ctx, typeID)
}

func (r *Registry) CreateType(ctx context.Context, actorID, name, description string) (ApprovalType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ApprovalType{}, ierr.NewError("approval type name required").
			WithHint("name is required").
			Mark(ierr.ErrValidation)
	}
	var created ApprovalType
	err := r.store.InTx(ctx, func(tx TxStore) error {
		var err error
		created, err = tx.CreateType(ctx, ApprovalType{Name: name, Description: strings.TrimSpace(description)})
		if err != nil {
			return err
		}
		return record(ctx, tx, actorID, audit.ActionApprovalTypeWrite, "approval_type", created.ID, nil, created)
	})
	if err != nil {
		return ApprovalType{}, err
	}
	return created, nil
}

// UpdateType renames or re-describes a type nothing references yet.
func (r *Registry) UpdateType(ctx context.Context, actorID string, t ApprovalType) (ApprovalType, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return ApprovalType{}, ierr.NewError("approval type name required").
			WithHint("name is required").
			Mark(ierr.ErrValidation)
	}
	var updated ApprovalType
	err := r.store.InTx(ctx, func(tx TxStore) error {
		before, err := tx.GetTypeForUpdate(ctx, t.ID)
		if err != nil {
			return err
		}
		if err := ensureUnreferenced(ctx, tx, t.ID); err != nil {
			return err
		}
		updated, err = tx.UpdateType(ctx, t)
		if err != nil {
			return err
		}
		return record(ctx, tx, actorID, audit.ActionApprovalTypeWrite, "approval_type", updated.ID, before, updated)
	})
	if err != nil {
		return ApprovalType{}, err
	}
	return updated, nil
}

func (r *Registry) DeleteType(ctx context.Context, actorID, typeID string) error {
	return r.store.InTx(ctx, func(tx TxStore) error {
		before, err := tx.GetTypeForUpdate(ctx, typeID)
		if err != nil {
			return err
		}
		if err := ensureUnreferenced(ctx, tx, typeID); err != nil {
			return err
		}
		if err := tx.DeleteType(ctx, typeID); err != nil {
			return err
		}
		return record(ctx, tx, actorID, audit.ActionApprovalTypeWrite, "approval_type", typeID, before, nil)
	})
}

func ensureUnreferenced(ctx context.Context, tx TxStore, typeID string) error {
	inUse, err := tx.TypeInUse(ctx, typeID)
	if err != nil {
		return err
	}
	if inUse {
		return ierr.NewError("approval type in use").
			WithHint("approval type is referenced by flows or records and cannot change").
			Mark(ierr.ErrInvalidState)
	}
	return nil
}

func (r *Registry) ListFlows(ctx context.Context, typeID string) ([]Flow, error) {
	if _, err := r.store.GetType(ctx, typeID); err != nil {
		return nil, err
	}
	return r.store.ListFlows(ctx, typeID)
}

// CreateFlow adds a level to a type. Each (type, level) pair holds one flow.
// The type row is locked so a concurrent update or delete sees the flow.
func (r *Registry) CreateFlow(ctx context.Context, actorID string, f Flow) (Flow, error) {
	if err := validateFlow(f); err != nil {
		return Flow{}, err
	}
	var created Flow
	err := r.store.InTx(ctx, func(tx TxStore) error {
		if _, err := tx.GetTypeForUpdate(ctx, f.ApprovalTypeID); err != nil {
			return err
		}
		var err error
		created, err = tx.CreateFlow(ctx, f)
		if err != nil {
			return err
		}
		return record(ctx, tx, actorID, audit.ActionApprovalFlowWrite, "approval_flow", created.ID, nil, created)
	})
	if err != nil {
		return Flow{}, err
	}
	return created, nil
}

// UpdateFlow changes a flow in place. Records already created keep the
// approvers they were created for.
func (r *Registry) UpdateFlow(ctx context.Context, actorID string, f Flow) (Flow, error) {
	var updated Flow
	err := r.store.InTx(ctx, func(tx TxStore) error {
		before, err := tx.GetFlow(ctx, f.ID)
		if err != nil {
			return err
		}
		f.ApprovalTypeID = before.ApprovalTypeID
		if err := validateFlow(f); err != nil {
			return err
		}
		updated, err = tx.UpdateFlow(ctx, f)
		if err != nil {
			return err
		}
		return record(ctx, tx, actorID, audit.ActionApprovalFlowWrite, "approval_flow", updated.ID, before, updated)
	})
	if err != nil {
		return Flow{}, err
	}
	return updated, nil
}

func validateFlow(f Flow) error {
	if f.Level <= 0 {
		return ierr.NewError("invalid flow level").
			WithHint("level must be a positive integer").
			Mark(ierr.ErrValidation)
	}
	if !f.HasRule() {
		return ierr.NewError("flow without approver rule").
			WithHint("set an approver or at least one of department, sub-department and role").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func record(ctx context.Context, tx TxStore, actorID, action, entityType, entityID string, before, after any) error {
	return tx.RecordAudit(ctx, audit.Entry{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  requestctx.RequestID(ctx),
		Before:     before,
		After:      after,
	})
}
