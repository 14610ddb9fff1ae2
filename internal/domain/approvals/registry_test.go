package approvals_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koshtony/beezy-beta/internal/domain/approvals"
	ierr "github.com/koshtony/beezy-beta/internal/errors"
	"github.com/koshtony/beezy-beta/internal/testutil"
)

func TestRegistryFlows(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewInMemoryApprovalStore()
	registry := approvals.NewRegistry(store)

	typ, err := registry.CreateType(ctx, "hr-1", " Overtime ", "extra hours")
	require.NoError(t, err)
	assert.Equal(t, "Overtime", typ.Name)

	_, err = registry.CreateType(ctx, "hr-1", "Overtime", "")
	assert.True(t, ierr.Is(err, ierr.ErrConflict))

	_, err = registry.CreateFlow(ctx, "hr-1", approvals.Flow{ApprovalTypeID: typ.ID, Level: 1, IsActive: true})
	assert.True(t, ierr.IsValidation(err), "a flow needs an approver rule")

	_, err = registry.CreateFlow(ctx, "hr-1", approvals.Flow{ApprovalTypeID: typ.ID, Level: 0, ApproverID: "a1"})
	assert.True(t, ierr.IsValidation(err))

	_, err = registry.CreateFlow(ctx, "hr-1", approvals.Flow{ApprovalTypeID: "missing", Level: 1, ApproverID: "a1"})
	assert.True(t, ierr.IsNotFound(err))

	flow, err := registry.CreateFlow(ctx, "hr-1", approvals.Flow{ApprovalTypeID: typ.ID, Level: 1, ApproverID: "a1", IsActive: true})
	require.NoError(t, err)

	_, err = registry.CreateFlow(ctx, "hr-1", approvals.Flow{ApprovalTypeID: typ.ID, Level: 1, RoleID: "r1"})
	assert.True(t, ierr.Is(err, ierr.ErrConflict))

	flow.IsActive = false
	updated, err := registry.UpdateFlow(ctx, "hr-1", flow)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, typ.ID, updated.ApprovalTypeID)

	flows, err := registry.ListFlows(ctx, typ.ID)
	require.NoError(t, err)
	assert.Len(t, flows, 1)

	assert.Len(t, store.Audits(), 3)
}

func TestRegistryTypeImmutableOnceReferenced(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewInMemoryApprovalStore()
	registry := approvals.NewRegistry(store)

	free, err := registry.CreateType(ctx, "hr-1", "Travel", "")
	require.NoError(t, err)
	free.Description = "trips"
	_, err = registry.UpdateType(ctx, "hr-1", free)
	require.NoError(t, err)
	require.NoError(t, registry.DeleteType(ctx, "hr-1", free.ID))

	used, err := registry.CreateType(ctx, "hr-1", "Leave", "")
	require.NoError(t, err)
	_, err = registry.CreateFlow(ctx, "hr-1", approvals.Flow{ApprovalTypeID: used.ID, Level: 1, ApproverID: "a1"})
	require.NoError(t, err)

	used.Name = "Holiday"
	_, err = registry.UpdateType(ctx, "hr-1", used)
	assert.True(t, ierr.IsInvalidState(err))
	assert.True(t, ierr.IsInvalidState(registry.DeleteType(ctx, "hr-1", used.ID)))
	assert.True(t, ierr.IsNotFound(registry.DeleteType(ctx, "hr-1", "missing")))
}

func TestRegistryWriteRollsBackWhenAuditFails(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewInMemoryApprovalStore()
	registry := approvals.NewRegistry(store)

	typ, err := registry.CreateType(ctx, "hr-1", "Expense", "")
	require.NoError(t, err)

	store.FailAudits = true
	_, err = registry.CreateType(ctx, "hr-1", "Travel", "")
	require.Error(t, err)
	_, err = registry.CreateFlow(ctx, "hr-1", approvals.Flow{ApprovalTypeID: typ.ID, Level: 1, ApproverID: "a1"})
	require.Error(t, err)
	require.Error(t, registry.DeleteType(ctx, "hr-1", typ.ID))

	types, err := registry.ListTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "Expense", types[0].Name)
	flows, err := registry.ListFlows(ctx, typ.ID)
	require.NoError(t, err)
	assert.Empty(t, flows)
	assert.Len(t, store.Audits(), 1)
}
