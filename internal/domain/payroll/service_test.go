package payroll

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koshtony/beezy-beta/internal/domain/approvals"
	ierr "github.com/koshtony/beezy-beta/internal/errors"
	"github.com/koshtony/beezy-beta/internal/platform/querier"
)

type memStore struct {
	periods  map[string]Period
	payrolls map[string]Payroll
	overtime map[string]Overtime
}

func newMemStore() *memStore {
	return &memStore{periods: map[string]Period{}, payrolls: map[string]Payroll{}, overtime: map[string]Overtime{}}
}

func (m *memStore) ListPeriods(ctx context.Context) ([]Period, error) { return nil, nil }

func (m *memStore) CreatePeriod(ctx context.Context, month, year int) (Period, error) {
	p := Period{ID: "p1", Month: month, Year: year}
	m.periods[p.ID] = p
	return p, nil
}

func (m *memStore) GetPeriod(ctx context.Context, id string) (Period, error) {
	p, ok := m.periods[id]
	if !ok {
		return Period{}, ierr.NewError("payroll period not found").Mark(ierr.ErrNotFound)
	}
	return p, nil
}

func (m *memStore) LockPeriod(ctx context.Context, id string) (Period, error) {
	p, err := m.GetPeriod(ctx, id)
	p.IsLocked = true
	m.periods[id] = p
	return p, err
}

func (m *memStore) SavePayroll(ctx context.Context, p Payroll) (Payroll, error) {
	m.payrolls[p.ID] = p
	return p, nil
}

func (m *memStore) GetPayroll(ctx context.Context, id string) (Payroll, error) {
	p, ok := m.payrolls[id]
	if !ok {
		return Payroll{}, ierr.NewError("payroll not found").Mark(ierr.ErrNotFound)
	}
	return p, nil
}

func (m *memStore) GetPayrollForUpdate(ctx context.Context, id string) (Payroll, error) {
	return m.GetPayroll(ctx, id)
}

func (m *memStore) ListPayrolls(ctx context.Context, periodID string) ([]Payroll, error) {
	return nil, nil
}

func (m *memStore) SetPayrollStatus(ctx context.Context, id, status string) error {
	p, err := m.GetPayroll(ctx, id)
	if err != nil {
		return err
	}
	p.Status = status
	m.payrolls[id] = p
	return nil
}

func (m *memStore) ApprovedOvertimeTotal(ctx context.Context, employeeID, periodID string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (m *memStore) CreateOvertime(ctx context.Context, o Overtime) (Overtime, error) {
	o.ID = "o1"
	o.Status = StatusDraft
	m.overtime[o.ID] = o
	return o, nil
}

func (m *memStore) GetOvertime(ctx context.Context, id string) (Overtime, error) {
	o, ok := m.overtime[id]
	if !ok {
		return Overtime{}, ierr.NewError("overtime record not found").Mark(ierr.ErrNotFound)
	}
	return o, nil
}

func (m *memStore) GetOvertimeForUpdate(ctx context.Context, id string) (Overtime, error) {
	return m.GetOvertime(ctx, id)
}

func (m *memStore) ListOvertime(ctx context.Context, periodID, employeeID string) ([]Overtime, error) {
	return nil, nil
}

func (m *memStore) SetOvertimeStatus(ctx context.Context, id, status string) error {
	o, err := m.GetOvertime(ctx, id)
	if err != nil {
		return err
	}
	o.Status = status
	m.overtime[id] = o
	return nil
}

func serviceWith(store *memStore) *Service {
	return &Service{
		store:    store,
		bind:     func(querier.Querier) StoreAPI { return store },
		settings: defaultSettings(),
	}
}

func TestPayrollCompletionMirrorsOutcome(t *testing.T) {
	for _, tc := range []struct {
		outcome string
		want    string
	}{
		{approvals.OutcomeApproved, StatusApproved},
		{approvals.OutcomeRejected, StatusRejected},
	} {
		store := newMemStore()
		store.payrolls["pr1"] = Payroll{ID: "pr1", Status: StatusPendingApproval}
		svc := serviceWith(store)

		err := svc.HandlePayrollCompletion(context.Background(), approvals.Event{Outcome: tc.outcome, Target: PayrollTarget("pr1")})
		require.NoError(t, err)
		assert.Equal(t, tc.want, store.payrolls["pr1"].Status)
	}
}

func TestPayrollCompletionIgnoresDraft(t *testing.T) {
	store := newMemStore()
	store.payrolls["pr1"] = Payroll{ID: "pr1", Status: StatusDraft}
	svc := serviceWith(store)

	err := svc.HandlePayrollCompletion(context.Background(), approvals.Event{Outcome: approvals.OutcomeApproved, Target: PayrollTarget("pr1")})
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, store.payrolls["pr1"].Status)
}

func TestOvertimeCompletionMirrorsOutcome(t *testing.T) {
	store := newMemStore()
	store.overtime["o1"] = Overtime{ID: "o1", Status: StatusPendingApproval}
	svc := serviceWith(store)

	err := svc.HandleOvertimeCompletion(context.Background(), approvals.Event{Outcome: approvals.OutcomeRejected, Target: OvertimeTarget("o1")})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, store.overtime["o1"].Status)

	err = svc.HandleOvertimeCompletion(context.Background(), approvals.Event{Outcome: approvals.OutcomeApproved, Target: OvertimeTarget("missing")})
	assert.True(t, ierr.IsNotFound(err))
}

func TestCompletionIgnoresOtherKinds(t *testing.T) {
	svc := serviceWith(newMemStore())
	err := svc.HandlePayrollCompletion(context.Background(), approvals.Event{Target: OvertimeTarget("o1")})
	require.NoError(t, err)
}

func TestRecordOvertimeUsesConfiguredRate(t *testing.T) {
	store := newMemStore()
	store.periods["p1"] = Period{ID: "p1", Month: 5, Year: 2025}
	svc := serviceWith(store)

	o, err := svc.RecordOvertime(context.Background(), OvertimeInput{
		EmployeeID:  "e1",
		PeriodID:    "p1",
		HoursWorked: decimal.RequireFromString("12.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, "150", o.HourlyRate.String())
	assert.Equal(t, "1875", o.Amount().String())
	assert.Equal(t, StatusDraft, o.Status)
}

func TestRecordOvertimeRejectsBadInput(t *testing.T) {
	store := newMemStore()
	store.periods["p1"] = Period{ID: "p1", Month: 5, Year: 2025, IsLocked: true}
	svc := serviceWith(store)

	_, err := svc.RecordOvertime(context.Background(), OvertimeInput{EmployeeID: "e1", PeriodID: "p1", HoursWorked: decimal.Zero})
	assert.True(t, ierr.IsValidation(err))

	_, err = svc.RecordOvertime(context.Background(), OvertimeInput{EmployeeID: "e1", PeriodID: "p1", HoursWorked: decimal.NewFromInt(2)})
	assert.True(t, ierr.IsInvalidState(err))
}

func TestCreatePeriodValidatesMonth(t *testing.T) {
	svc := serviceWith(newMemStore())
	_, err := svc.CreatePeriod(context.Background(), 13, 2025)
	assert.True(t, ierr.IsValidation(err))

	p, err := svc.CreatePeriod(context.Background(), 3, 2025)
	require.NoError(t, err)
	assert.Equal(t, "March 2025", p.Label())
}

func TestPayslipRequiresApproval(t *testing.T) {
	store := newMemStore()
	store.periods["p1"] = Period{ID: "p1", Month: 1, Year: 2025}
	store.payrolls["pr1"] = Payroll{
		ID:           "pr1",
		EmployeeName: "Jane Wanjiku",
		PeriodID:     "p1",
		BasicSalary:  decimal.NewFromInt(20000),
		Breakdown:    Compute(defaultSettings(), decimal.NewFromInt(20000), decimal.Zero, decimal.Zero, decimal.Zero),
		Status:       StatusPendingApproval,
		ProcessedAt:  time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	svc := serviceWith(store)

	_, _, err := svc.Payslip(context.Background(), "pr1")
	assert.True(t, ierr.IsInvalidState(err))

	require.NoError(t, store.SetPayrollStatus(context.Background(), "pr1", StatusApproved))
	p, out, err := svc.Payslip(context.Background(), "pr1")
	require.NoError(t, err)
	assert.Equal(t, "pr1", p.ID)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

type txDB struct{ querier.Querier }

func (txDB) Begin(ctx context.Context) (pgx.Tx, error) { return nopTx{}, nil }

type nopTx struct{ pgx.Tx }

func (nopTx) Commit(ctx context.Context) error   { return nil }
func (nopTx) Rollback(ctx context.Context) error { return nil }

type orderLog struct{ calls []string }

type loggingStore struct {
	*memStore
	log *orderLog
}

func (s loggingStore) GetPayrollForUpdate(ctx context.Context, id string) (Payroll, error) {
	s.log.calls = append(s.log.calls, "row "+id)
	return s.memStore.GetPayrollForUpdate(ctx, id)
}

func (s loggingStore) GetOvertimeForUpdate(ctx context.Context, id string) (Overtime, error) {
	s.log.calls = append(s.log.calls, "row "+id)
	return s.memStore.GetOvertimeForUpdate(ctx, id)
}

type loggingWorkflow struct{ log *orderLog }

func (w loggingWorkflow) InitializeIn(ctx context.Context, q querier.Querier, typeName, creatorID string, target approvals.Target) (*approvals.Result, error) {
	w.log.calls = append(w.log.calls, "initialize "+typeName+" "+target.String())
	return &approvals.Result{}, nil
}

func (w loggingWorkflow) LockWorkflowIn(ctx context.Context, q querier.Querier, typeName string, target approvals.Target) error {
	w.log.calls = append(w.log.calls, "workflow "+typeName+" "+target.String())
	return nil
}

func (w loggingWorkflow) Deliver(ctx context.Context, res *approvals.Result) {}

func lockingService(mem *memStore) (*Service, *orderLog) {
	log := &orderLog{}
	store := loggingStore{memStore: mem, log: log}
	return &Service{
		db:       txDB{},
		store:    store,
		bind:     func(querier.Querier) StoreAPI { return store },
		workflow: loggingWorkflow{log: log},
		settings: defaultSettings(),
	}, log
}

func TestSubmitLocksWorkflowBeforePayrollRow(t *testing.T) {
	mem := newMemStore()
	mem.payrolls["pay-1"] = Payroll{ID: "pay-1", EmployeeID: "e1", Status: StatusDraft}
	svc, log := lockingService(mem)

	p, err := svc.Submit(context.Background(), "hr-1", "pay-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPendingApproval, p.Status)
	assert.Equal(t, []string{
		"workflow Payroll " + PayrollTarget("pay-1").String(),
		"row pay-1",
		"initialize Payroll " + PayrollTarget("pay-1").String(),
	}, log.calls)
}

func TestSubmitOvertimeLocksWorkflowBeforeRow(t *testing.T) {
	mem := newMemStore()
	mem.overtime["ot-1"] = Overtime{ID: "ot-1", EmployeeID: "e1", Status: StatusDraft}
	svc, log := lockingService(mem)

	o, err := svc.SubmitOvertime(context.Background(), "e1", "ot-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPendingApproval, o.Status)
	assert.Equal(t, []string{
		"workflow Overtime " + OvertimeTarget("ot-1").String(),
		"row ot-1",
		"initialize Overtime " + OvertimeTarget("ot-1").String(),
	}, log.calls)
}

func TestSubmitRejectsNonDraftPayroll(t *testing.T) {
	mem := newMemStore()
	mem.payrolls["pay-1"] = Payroll{ID: "pay-1", Status: StatusApproved}
	svc, _ := lockingService(mem)

	_, err := svc.Submit(context.Background(), "hr-1", "pay-1")
	assert.True(t, ierr.IsInvalidState(err))
}
