package approvals

import (
	"context"
	"sort"
	"strings"

	"github.com/koshtony/beezy-beta/internal/domain/audit"
	ierr "github.com/koshtony/beezy-beta/internal/errors"
	"github.com/koshtony/beezy-beta/internal/platform/querier"
	"github.com/koshtony/beezy-beta/internal/requestctx"
)

// RegisterTarget declares a target kind. Workflows can only start for
// registered kinds, and only when resolve finds the object.
func (e *Engine) RegisterTarget(kind string, resolve TargetResolver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.targets[kind] = resolve
}

func (e *Engine) resolveTarget(ctx context.Context, q querier.Querier, target Target) error {
	e.mu.RLock()
	resolve, ok := e.targets[target.Kind]
	e.mu.RUnlock()
	if !ok {
		return ierr.NewError("unknown target kind").
			WithHintf("unknown target kind %q", target.Kind).
			Mark(ierr.ErrValidation)
	}
	if resolve == nil {
		return nil
	}
	return resolve(ctx, q, target.ID)
}

func validateTarget(target Target) error {
	if strings.TrimSpace(target.Kind) == "" || strings.TrimSpace(target.ID) == "" {
		return ierr.NewError("invalid target").
			WithHint("target kind and id are required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// LockWorkflowIn takes the workflow lock for (typeName, target) in the
// caller's transaction. Domains call it before locking their own row for the
// target, matching the order decisions acquire the two.
func (e *Engine) LockWorkflowIn(ctx context.Context, q querier.Querier, typeName string, target Target) error {
	if err := validateTarget(target); err != nil {
		return err
	}
	tx := e.store.Join(q)
	typ, err := tx.GetTypeByName(ctx, typeName)
	if err != nil {
		return err
	}
	return tx.LockWorkflow(ctx, typ.ID, target)
}

// RemoveTarget applies the retention policy to every workflow of a target
// whose business object is being deleted.
func (e *Engine) RemoveTarget(ctx context.Context, target Target, actorID string) (*Result, error) {
	var res *Result
	err := e.store.InTx(ctx, func(tx TxStore) error {
		var err error
		res, err = e.removeTarget(ctx, tx, target, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RemoveTargetIn is RemoveTarget inside the caller's transaction, typically
// the one deleting the business object.
func (e *Engine) RemoveTargetIn(ctx context.Context, q querier.Querier, target Target, actorID string) (*Result, error) {
	return e.removeTarget(ctx, e.store.Join(q), target, actorID)
}

func (e *Engine) removeTarget(ctx context.Context, tx TxStore, target Target, actorID string) (*Result, error) {
	if err := validateTarget(target); err != nil {
		return nil, err
	}
	typeIDs, err := tx.TargetTypeIDs(ctx, target)
	if err != nil {
		return nil, err
	}
	// Fixed lock order keeps two removals of the same target from deadlocking.
	sort.Strings(typeIDs)
	for _, typeID := range typeIDs {
		if err := tx.LockWorkflow(ctx, typeID, target); err != nil {
			return nil, err
		}
	}

	res := &Result{}
	if e.policy.purgesOnRemoval() {
		n, err := tx.DeleteTargetRecords(ctx, target)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			if err := tx.RecordAudit(ctx, audit.Entry{
				ActorID:    actorID,
				Action:     audit.ActionApprovalPurge,
				EntityType: "approval_workflow",
				EntityID:   target.String(),
				RequestID:  requestctx.RequestID(ctx),
				Before:     map[string]int{"records": n},
			}); err != nil {
				return nil, err
			}
		}
		return res, nil
	}

	cancelled, err := tx.CancelPendingForTarget(ctx, target, CommentTargetRemoved, e.now().UTC())
	if err != nil {
		return nil, err
	}
	r := &run{tx: tx, target: target, actor: actorID, result: res}
	if err := e.recordCancelled(ctx, r, cancelled); err != nil {
		return nil, err
	}
	return res, nil
}
