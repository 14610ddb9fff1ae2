package approvals_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koshtony/beezy-beta/internal/domain/approvals"
	ierr "github.com/koshtony/beezy-beta/internal/errors"
	"github.com/koshtony/beezy-beta/internal/platform/config"
	"github.com/koshtony/beezy-beta/internal/platform/querier"
	"github.com/koshtony/beezy-beta/internal/testutil"
)

const (
	creator = "emp-creator"
	kind    = "leave_request"
)

type fixture struct {
	store     *testutil.InMemoryApprovalStore
	directory *testutil.StaticDirectory
	outbox    *testutil.OutboxRecorder
	engine    *approvals.Engine
	typ       approvals.ApprovalType
	events    []approvals.Event
}

func newFixture(t *testing.T, policy approvals.Policy, flows ...approvals.Flow) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		store:     testutil.NewInMemoryApprovalStore(),
		directory: testutil.NewStaticDirectory().AddEmployee(creator, "Grace Wanjiku"),
		outbox:    &testutil.OutboxRecorder{},
	}
	typ, err := f.store.CreateType(ctx, approvals.ApprovalType{Name: "Leave"})
	require.NoError(t, err)
	f.typ = typ

	for _, flow := range flows {
		flow.ApprovalTypeID = typ.ID
		_, err := f.store.CreateFlow(ctx, flow)
		require.NoError(t, err)
	}

	f.engine = approvals.NewEngine(f.store, f.directory,
		approvals.WithPolicy(policy),
		approvals.WithDeliverer(f.outbox),
	)
	f.engine.RegisterTarget(kind, nil)
	f.engine.Subscribe("Leave", func(ctx context.Context, evt approvals.Event) error {
		f.events = append(f.events, evt)
		return nil
	})
	return f
}

func direct(level int, approverID string) approvals.Flow {
	return approvals.Flow{Level: level, ApproverID: approverID, IsProperApprover: true, NotifyApprover: true, IsActive: true}
}

func target(id string) approvals.Target {
	return approvals.Target{Kind: kind, ID: id}
}

func policy(level, notify, retention string) approvals.Policy {
	return approvals.Policy{LevelClearing: level, CreatorNotify: notify, Retention: retention}
}

func (f *fixture) pendingFor(t *testing.T, approverID string) approvals.Record {
	t.Helper()
	for _, rec := range f.store.Records() {
		if rec.ApproverID == approverID && rec.Status == approvals.StatusPending {
			return rec
		}
	}
	t.Fatalf("no pending record for %s", approverID)
	return approvals.Record{}
}

func countStatus(records []approvals.Record, status string) int {
	n := 0
	for _, rec := range records {
		if rec.Status == status {
			n++
		}
	}
	return n
}

func notificationsFor(f *fixture, recipient string) int {
	n := 0
	for _, notif := range f.store.Notifications() {
		if notif.RecipientID == recipient {
			n++
		}
	}
	return n
}

func TestSequentialApprovalCompletes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, approvals.DefaultPolicy(), direct(1, "a1"), direct(2, "a2"), direct(3, "a3"))

	res, err := f.engine.Initialize(ctx, "Leave", creator, target("L-1"))
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	assert.Equal(t, approvals.StatusPending, res.Created[0].Status)

	for _, approver := range []string{"a1", "a2", "a3"} {
		_, err := f.engine.Approve(ctx, f.pendingFor(t, approver).ID, approver, "ok")
		require.NoError(t, err)
	}

	records := f.store.Records()
	assert.Len(t, records, 3)
	assert.Equal(t, 3, countStatus(records, approvals.StatusApproved))
	assert.Zero(t, countStatus(records, approvals.StatusPending))
	assert.Zero(t, countStatus(records, approvals.StatusCancelled))

	progress, err := f.engine.Progress(ctx, target("L-1"))
	require.NoError(t, err)
	assert.Equal(t, approvals.ProgressFullyApproved, progress.Status)
	assert.Equal(t, 100.0, progress.Percent)
	assert.Equal(t, "Leave", progress.ApprovalType)

	require.Len(t, f.events, 1)
	assert.Equal(t, approvals.OutcomeApproved, f.events[0].Outcome)
	assert.Equal(t, "a3", f.events[0].DecidedBy)

	// Two step notices plus the final one.
	assert.Equal(t, 3, notificationsFor(f, creator))
	for _, approver := range []string{"a1", "a2", "a3"} {
		assert.Equal(t, 1, notificationsFor(f, approver))
	}
}

func TestTerminalPolicyNotifiesCreatorOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, policy(config.LevelPolicyAny, config.CreatorNotifyTerminal, config.RetentionRetain),
		direct(1, "a1"), direct(2, "a2"))

	_, err := f.engine.Initialize(ctx, "Leave", creator, target("L-1"))
	require.NoError(t, err)
	_, err = f.engine.Approve(ctx, f.pendingFor(t, "a1").ID, "a1", "")
	require.NoError(t, err)
	assert.Zero(t, notificationsFor(f, creator))

	res, err := f.engine.Approve(ctx, f.pendingFor(t, "a2").ID, "a2", "")
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, 1, notificationsFor(f, creator))
}

func TestInitializeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, approvals.DefaultPolicy(), direct(1, "a1"), direct(2, "a2"))

	_, err := f.engine.Initialize(ctx, "Leave", creator, target("L-1"))
	require.NoError(t, err)
	res, err := f.engine.Initialize(ctx, "Leave", creator, target("L-1"))
	require.NoError(t, err)

	assert.Empty(t, res.Created)
	assert.Len(t, f.store.Records(), 1)
	assert.Equal(t, 1, notificationsFor(f, "a1"))
}

func TestRejectEndsWorkflow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, approvals.DefaultPolicy(), direct(1, "a1"), direct(2, "a2"), direct(3, "a3"))

	_, err := f.engine.Initialize(ctx, "Leave", creator, target("L-1"))
	require.NoError(t, err)
	_, err = f.engine.Approve(ctx, f.pendingFor(t, "a1").ID, "a1", "")
	require.NoError(t, err)

	res, err := f.engine.Reject(ctx, f.pendingFor(t, "a2").ID, "a2", "dates clash")
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, approvals.OutcomeRejected, res.Outcome)

	records := f.store.Records()
	assert.Len(t, records, 2, "no record is created after a rejection")
	assert.Zero(t, countStatus(records, approvals.StatusPending))

	progress, err := f.engine.Progress(ctx, target("L-1"))
	require.NoError(t, err)
	assert.Equal(t, approvals.ProgressRejected, progress.Status)
	assert.True(t, progress.HasRejection)

	require.Len(t, f.events, 1)
	assert.Equal(t, approvals.OutcomeRejected, f.events[0].Outcome)
	assert.Equal(t, "dates clash", f.events[0].Comment)

	_, err = f.engine.Initialize(ctx, "Leave", creator, target("L-1"))
	assert.True(t, ierr.IsInvalidState(err))
}

func TestRejectCancelsSiblings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, policy(config.LevelPolicyAll, config.CreatorNotifyEachStep, config.RetentionRetain),
		approvals.Flow{Level: 1, RoleID: "role-hr", IsProperApprover: true, NotifyApprover: true, IsActive: true},
		direct(2, "a2"))
	f.directory.AddRule("", "", "role-hr", "h1", "h2")

	res, err := f.engine.Initialize(ctx, "Leave", creator, target("L-2"))
	require.NoError(t, err)
	require.Len(t, res.Created, 2)

	res, err = f.engine.Reject(ctx, f.pendingFor(t, "h1").ID, "h1", "")
	require.NoError(t, err)
	require.Len(t, res.Cancelled, 1)
	assert.Equal(t, "h2", res.Cancelled[0].ApproverID)
	assert.Equal(t, approvals.CommentAutoCancelled, res.Cancelled[0].Comment)
	assert.Len(t, f.store.Records(), 2)
}

func TestRejectCancelsPendingAboveLevel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, approvals.DefaultPolicy(), direct(1, "a1"), direct(2, "a2"), direct(3, "a3"))

	_, err := f.engine.Initialize(ctx, "Leave", creator, target("L-3"))
	require.NoError(t, err)
	require.NoError(t, f.store.InTx(ctx, func(tx approvals.TxStore) error {
		base := approvals.Record{ApprovalTypeID: f.typ.ID, CreatorID: creator, Target: target("L-3")}
		pending := base
		pending.ApproverID, pending.Level, pending.Status, pending.IsProperApprover = "a3", 3, approvals.StatusPending, true
		if _, _, err := tx.InsertRecord(ctx, pending); err != nil {
			return err
		}
		notified := base
		notified.ApproverID, notified.Level, notified.Status = "watcher", 2, approvals.StatusNotified
		_, _, err := tx.InsertRecord(ctx, notified)
		return err
	}))

	res, err := f.engine.Reject(ctx, f.pendingFor(t, "a1").ID, "a1", "not this month")
	require.NoError(t, err)
	require.Len(t, res.Cancelled, 1)
	assert.Equal(t, "a3", res.Cancelled[0].ApproverID)

	for _, rec := range f.store.Records() {
		switch rec.ApproverID {
		case "a3":
			assert.Equal(t, approvals.StatusCancelled, rec.Status)
			assert.Equal(t, approvals.CommentAutoCancelled, rec.Comment)
		case "watcher":
			assert.Equal(t, approvals.StatusNotified, rec.Status)
		case "a1":
			assert.Equal(t, approvals.StatusRejected, rec.Status)
		}
	}
	assert.Zero(t, countStatus(f.store.Records(), approvals.StatusPending))
}

func TestLockWorkflowIn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, approvals.DefaultPolicy(), direct(1, "a1"))

	require.NoError(t, f.engine.LockWorkflowIn(ctx, nil, "Leave", target("L-9")))
	assert.Equal(t, []string{f.typ.ID + "|" + target("L-9").String()}, f.store.Locks())

	err := f.engine.LockWorkflowIn(ctx, nil, "Missing", target("L-9"))
	assert.True(t, ierr.IsNotFound(err))
	err = f.engine.LockWorkflowIn(ctx, nil, "Leave", approvals.Target{Kind: kind})
	assert.True(t, ierr.IsValidation(err))
}

func TestDecidingTwiceFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, approvals.DefaultPolicy(), direct(1, "a1"), direct(2, "a2"))

	_, err := f.engine.Initialize(ctx, "Leave", creator, target("L-1"))
	require.NoError(t, err)
	rec := f.pendingFor(t, "a1")
	_, err = f.engine.Approve(ctx, rec.ID, "a1", "")
	require.NoError(t, err)

	before := f.store.Records()
	_, err = f.engine.Approve(ctx, rec.ID, "a1", "")
	assert.True(t, ierr.IsInvalidState(err))
	_, err = f.engine.Reject(ctx, rec.ID, "a1", "")
	assert.True(t, ierr.IsInvalidState(err))
	assert.Equal(t, before, f.store.Records())
}

func TestDecisionByOtherEmployeeFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, approvals.DefaultPolicy(), direct(1, "a1"))

	_, err := f.engine.Initialize(ctx, "Leave", creator, target("L-1"))
	require.NoError(t, err)

	_, err = f.engine.Approve(ctx, f.pendingFor(t, "a1").ID, "intruder", "")
	assert.True(t, ierr.IsInvalidState(err))

	_, err = f.engine.Approve(ctx, "missing", "a1", "")
	assert.True(t, ierr.IsNotFound(err))
}

func TestAnyPolicySupersedesSiblings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, approvals.DefaultPolicy(),
		approvals.Flow{Level: 1, RoleID: "role-mgr", IsProperApprover: true, NotifyApprover: true, IsActive: true},
		direct(2, "a2"))
	f.directory.AddRule("", "", "role-mgr", "m1", "m2")

	_, err := f.engine.Initialize(ctx, "Leave", creator, target("L-1"))
	require.NoError(t, err)

	res, err := f.engine.Approve(ctx, f.pendingFor(t, "m1").ID, "m1", "")
	require.NoError(t, err)
	require.Len(t, res.Cancelled, 1)
	assert.Equal(t, approvals.CommentSuperseded, res.Cancelled[0].Comment)
	require.Len(t, res.Created, 1)
	assert.Equal(t, "a2", res.Created[0].ApproverID)
}

func TestAllPolicyWaitsForEveryApprover(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, policy(config.LevelPolicyAll, config.CreatorNotifyEachStep, config.RetentionRetain),
		approvals.Flow{Level: 1, RoleID: "role-mgr", IsProperApprover: true, NotifyApprover: true, IsActive: true},
		direct(2, "a2"))
	f.directory.AddRule("", "", "role-mgr", "m1", "m2")

	_, err := f.engine.Initialize(ctx, "Leave", creator, target("L-1"))
	require.NoError(t, err)

	res, err := f.engine.Approve(ctx, f.pendingFor(t, "m1").ID, "m1", "")
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Empty(t, res.Cancelled)

	progress, err := f.engine.Progress(ctx, target("L-1"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, progress.Percent)

	res, err = f.engine.Approve(ctx, f.pendingFor(t, "m2").ID, "m2", "")
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	assert.Equal(t, "a2", res.Created[0].ApproverID)
}

func TestNotifyOnlyLevelAdvancesImmediately(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, approvals.DefaultPolicy(),
		approvals.Flow{Level: 1, ApproverID: "watcher", IsProperApprover: false, NotifyApprover: false, IsActive: true},
		direct(2, "a2"))

	res, err := f.engine.Initialize(ctx, "Leave", creator, target("L-1"))
	require.NoError(t, err)
	require.Len(t, res.Created, 2)
	assert.Equal(t, approvals.StatusNotified, res.Created[0].Status)
	assert.Equal(t, approvals.StatusPending, res.Created[1].Status)

	// Both get an in-app notice; only the approver with notify_approver gets mail.
	assert.Equal(t, 1, notificationsFor(f, "watcher"))
	delivered := f.outbox.Delivered()
	require.Len(t, delivered, 2)
	assert.False(t, delivered[0].Email)
	assert.True(t, delivered[1].Email)
}

func TestNotifyOnlyChainCompletesOnInitialize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, approvals.DefaultPolicy(),
		approvals.Flow{Level: 1, ApproverID: "watcher", NotifyApprover: true, IsActive: true})

	res, err := f.engine.Initialize(ctx, "Leave", creator, target("L-1"))
	require.NoError(t, err)
	assert.True(t, res.Completed)
	require.Len(t, f.events, 1)
	assert.Equal(t, approvals.OutcomeApproved, f.events[0].Outcome)

	progress, err := f.engine.Progress(ctx, target("L-1"))
	require.NoError(t, err)
	assert.Equal(t, approvals.ProgressFullyApproved, progress.Status)
}

func TestMissingLevelOneIsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, approvals.DefaultPolicy(), direct(2, "a2"))

	res, err := f.engine.Initialize(ctx, "Leave", creator, target("L-1"))
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Empty(t, f.store.Records())
	assert.Empty(t, f.store.Notifications())
}

func TestUnresolvedLevelHaltsWorkflow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, approvals.DefaultPolicy(),
		direct(1, "a1"),
		approvals.Flow{Level: 2, RoleID: "role-nobody", IsProperApprover: true, IsActive: true})

	_, err := f.engine.Initialize(ctx, "Leave", creator, target("L-1"))
	require.NoError(t, err)

	res, err := f.engine.Approve(ctx, f.pendingFor(t, "a1").ID, "a1", "")
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Empty(t, res.Created)
	assert.Empty(t, f.events)

	progress, err := f.engine.Progress(ctx, target("L-1"))
	require.NoError(t, err)
	assert.Equal(t, approvals.ProgressFullyApproved, progress.Status, "only observed levels count")
	require.Len(t, progress.Timeline, 2)
	assert.Equal(t, approvals.StageUpcoming, progress.Timeline[1].Status)
}

func TestInactiveLevelIsSkipped(t *testing.T) {
	ctx := context.Background()
	inactive := direct(2, "a2")
	inactive.IsActive = false
	f := newFixture(t, approvals.DefaultPolicy(), direct(1, "a1"), inactive, direct(3, "a3"))

	_, err := f.engine.Initialize(ctx, "Leave", creator, target("L-1"))
	require.NoError(t, err)
	res, err := f.engine.Approve(ctx, f.pendingFor(t, "a1").ID, "a1", "")
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	assert.Equal(t, 3, res.Created[0].Level)
}

func TestHandlerFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, approvals.DefaultPolicy(), direct(1, "a1"))
	f.engine.Subscribe("Leave", func(ctx context.Context, evt approvals.Event) error {
		return errors.New("balance update failed")
	})

	_, err := f.engine.Initialize(ctx, "Leave", creator, target("L-1"))
	require.NoError(t, err)
	rec := f.pendingFor(t, "a1")
	notificationsBefore := len(f.store.Notifications())

	_, err = f.engine.Approve(ctx, rec.ID, "a1", "")
	require.Error(t, err)

	assert.Equal(t, approvals.StatusPending, f.pendingFor(t, "a1").Status)
	assert.Len(t, f.store.Notifications(), notificationsBefore)
}

func TestNotificationFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, approvals.DefaultPolicy(), direct(1, "a1"))
	f.store.FailNotifications = true

	_, err := f.engine.Initialize(ctx, "Leave", creator, target("L-1"))
	require.Error(t, err)
	assert.Empty(t, f.store.Records())
	assert.Empty(t, f.outbox.Delivered())
}

func TestInitializeValidatesInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, approvals.DefaultPolicy(), direct(1, "a1"))

	_, err := f.engine.Initialize(ctx, "Leave", creator, approvals.Target{Kind: "invoice", ID: "1"})
	assert.True(t, ierr.IsValidation(err))

	_, err = f.engine.Initialize(ctx, "Leave", creator, approvals.Target{Kind: kind})
	assert.True(t, ierr.IsValidation(err))

	_, err = f.engine.Initialize(ctx, "Travel", creator, target("L-1"))
	assert.True(t, ierr.IsNotFound(err))

	f.engine.RegisterTarget("payroll", func(ctx context.Context, q querier.Querier, id string) error {
		return ierr.NewError("payroll not found").Mark(ierr.ErrNotFound)
	})
	_, err = f.engine.Initialize(ctx, "Leave", creator, approvals.Target{Kind: "payroll", ID: "P-9"})
	assert.True(t, ierr.IsNotFound(err))
	assert.Empty(t, f.store.Records())
}

func TestRemoveTargetRetainsHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, approvals.DefaultPolicy(), direct(1, "a1"), direct(2, "a2"))

	_, err := f.engine.Initialize(ctx, "Leave", creator, target("L-1"))
	require.NoError(t, err)
	_, err = f.engine.Approve(ctx, f.pendingFor(t, "a1").ID, "a1", "")
	require.NoError(t, err)

	res, err := f.engine.RemoveTarget(ctx, target("L-1"), creator)
	require.NoError(t, err)
	require.Len(t, res.Cancelled, 1)
	assert.Equal(t, approvals.CommentTargetRemoved, res.Cancelled[0].Comment)

	records := f.store.Records()
	assert.Len(t, records, 2)
	assert.Equal(t, 1, countStatus(records, approvals.StatusApproved))
	assert.Equal(t, 1, countStatus(records, approvals.StatusCancelled))
}

func TestRemoveTargetPurges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, policy(config.LevelPolicyAny, config.CreatorNotifyEachStep, config.RetentionPurge), direct(1, "a1"))

	_, err := f.engine.Initialize(ctx, "Leave", creator, target("L-1"))
	require.NoError(t, err)
	_, err = f.engine.RemoveTarget(ctx, target("L-1"), creator)
	require.NoError(t, err)

	assert.Empty(t, f.store.Records())
	_, err = f.engine.Progress(ctx, target("L-1"))
	assert.True(t, ierr.IsNotFound(err))
}

func TestDecisionsAreAudited(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, approvals.DefaultPolicy(), direct(1, "a1"))

	_, err := f.engine.Initialize(ctx, "Leave", creator, target("L-1"))
	require.NoError(t, err)
	_, err = f.engine.Approve(ctx, f.pendingFor(t, "a1").ID, "a1", "fine")
	require.NoError(t, err)

	actions := []string{}
	for _, entry := range f.store.Audits() {
		actions = append(actions, entry.Action)
	}
	assert.Equal(t, []string{"approval.approve", "approval.complete"}, actions)
}
