package payroll

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/koshtony/beezy-beta/internal/domain/approvals"
	ierr "github.com/koshtony/beezy-beta/internal/errors"
	"github.com/koshtony/beezy-beta/internal/platform/pdf"
	"github.com/koshtony/beezy-beta/internal/platform/querier"
)

// Workflow is the part of the approval engine payroll needs.
type Workflow interface {
	InitializeIn(ctx context.Context, q querier.Querier, typeName, creatorID string, target approvals.Target) (*approvals.Result, error)
	LockWorkflowIn(ctx context.Context, q querier.Querier, typeName string, target approvals.Target) error
	Deliver(ctx context.Context, res *approvals.Result)
}

type Service struct {
	db       querier.Querier
	store    StoreAPI
	bind     func(q querier.Querier) StoreAPI
	workflow Workflow
	settings Settings
}

func NewService(db querier.Querier, workflow Workflow, settings Settings) *Service {
	bind := func(q querier.Querier) StoreAPI { return NewStore(q) }
	return &Service{db: db, store: bind(db), bind: bind, workflow: workflow, settings: settings}
}

// Register declares payrolls and overtime records as approval targets and
// subscribes to the outcome of both workflows.
func (s *Service) Register(engine *approvals.Engine) {
	engine.RegisterTarget(PayrollTargetKind, func(ctx context.Context, q querier.Querier, id string) error {
		_, err := s.bind(q).GetPayroll(ctx, id)
		return err
	})
	engine.RegisterTarget(OvertimeTargetKind, func(ctx context.Context, q querier.Querier, id string) error {
		_, err := s.bind(q).GetOvertime(ctx, id)
		return err
	})
	engine.Subscribe(PayrollApprovalType, s.HandlePayrollCompletion)
	engine.Subscribe(OvertimeApprovalType, s.HandleOvertimeCompletion)
}

func PayrollTarget(payrollID string) approvals.Target {
	return approvals.Target{Kind: PayrollTargetKind, ID: payrollID}
}

func OvertimeTarget(overtimeID string) approvals.Target {
	return approvals.Target{Kind: OvertimeTargetKind, ID: overtimeID}
}

func (s *Service) ListPeriods(ctx context.Context) ([]Period, error) {
	return s.store.ListPeriods(ctx)
}

func (s *Service) CreatePeriod(ctx context.Context, month, year int) (Period, error) {
	if month < 1 || month > 12 || year < 2000 {
		return Period{}, ierr.NewError("invalid payroll period").
			WithHint("month must be between 1 and 12 and year must be 2000 or later").
			Mark(ierr.ErrValidation)
	}
	return s.store.CreatePeriod(ctx, month, year)
}

func (s *Service) LockPeriod(ctx context.Context, periodID string) (Period, error) {
	return s.store.LockPeriod(ctx, periodID)
}

func (s *Service) ListPayrolls(ctx context.Context, periodID string) ([]Payroll, error) {
	if _, err := s.store.GetPeriod(ctx, periodID); err != nil {
		return nil, err
	}
	return s.store.ListPayrolls(ctx, periodID)
}

func (s *Service) GetPayroll(ctx context.Context, payrollID string) (Payroll, error) {
	return s.store.GetPayroll(ctx, payrollID)
}

// Compute calculates an employee's payroll for an open period. Approved
// overtime for the period is folded into gross pay. A payroll can be
// recomputed until it is submitted.
func (s *Service) Compute(ctx context.Context, periodID string, in ComputeInput) (Payroll, error) {
	if in.EmployeeID == "" || in.BasicSalary.IsNegative() || in.TotalAllowances.IsNegative() || in.TotalDeductions.IsNegative() {
		return Payroll{}, ierr.NewError("invalid payroll input").
			WithHint("employee is required and amounts must not be negative").
			Mark(ierr.ErrValidation)
	}

	var out Payroll
	err := querier.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		store := s.bind(tx)
		period, err := store.GetPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		if period.IsLocked {
			return ierr.NewError("payroll period locked").
				WithHintf("payroll period %s is locked", period.Label()).
				Mark(ierr.ErrInvalidState)
		}
		overtime, err := store.ApprovedOvertimeTotal(ctx, in.EmployeeID, periodID)
		if err != nil {
			return err
		}
		out, err = store.SavePayroll(ctx, Payroll{
			EmployeeID:      in.EmployeeID,
			PeriodID:        periodID,
			BasicSalary:     in.BasicSalary.Round(2),
			TotalAllowances: in.TotalAllowances.Round(2),
			TotalDeductions: in.TotalDeductions.Round(2),
			Breakdown:       Compute(s.settings, in.BasicSalary, in.TotalAllowances, in.TotalDeductions, overtime),
		})
		return err
	})
	return out, err
}

// Submit moves a draft payroll to pending approval and starts its workflow.
func (s *Service) Submit(ctx context.Context, actorID, payrollID string) (Payroll, error) {
	var out Payroll
	var res *approvals.Result
	err := querier.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := s.workflow.LockWorkflowIn(ctx, tx, PayrollApprovalType, PayrollTarget(payrollID)); err != nil {
			return err
		}
		store := s.bind(tx)
		p, err := store.GetPayrollForUpdate(ctx, payrollID)
		if err != nil {
			return err
		}
		if p.Status != StatusDraft {
			return ierr.NewError("payroll not draft").
				WithHintf("payroll is already %s", p.Status).
				Mark(ierr.ErrInvalidState)
		}
		if err := store.SetPayrollStatus(ctx, p.ID, StatusPendingApproval); err != nil {
			return err
		}
		res, err = s.workflow.InitializeIn(ctx, tx, PayrollApprovalType, actorID, PayrollTarget(p.ID))
		if err != nil {
			return err
		}
		p.Status = StatusPendingApproval
		out = p
		return nil
	})
	if err != nil {
		return Payroll{}, err
	}
	s.workflow.Deliver(ctx, res)
	return out, nil
}

func (s *Service) ListOvertime(ctx context.Context, periodID, employeeID string) ([]Overtime, error) {
	return s.store.ListOvertime(ctx, periodID, employeeID)
}

func (s *Service) GetOvertime(ctx context.Context, overtimeID string) (Overtime, error) {
	return s.store.GetOvertime(ctx, overtimeID)
}

// RecordOvertime stores worked hours at the configured hourly rate.
func (s *Service) RecordOvertime(ctx context.Context, in OvertimeInput) (Overtime, error) {
	if in.EmployeeID == "" || !in.HoursWorked.IsPositive() {
		return Overtime{}, ierr.NewError("invalid overtime input").
			WithHint("employee is required and hours worked must be positive").
			Mark(ierr.ErrValidation)
	}
	period, err := s.store.GetPeriod(ctx, in.PeriodID)
	if err != nil {
		return Overtime{}, err
	}
	if period.IsLocked {
		return Overtime{}, ierr.NewError("payroll period locked").
			WithHintf("payroll period %s is locked", period.Label()).
			Mark(ierr.ErrInvalidState)
	}
	return s.store.CreateOvertime(ctx, Overtime{
		EmployeeID:  in.EmployeeID,
		PeriodID:    in.PeriodID,
		HoursWorked: in.HoursWorked.Round(2),
		HourlyRate:  s.settings.OvertimeHourlyPay,
	})
}

func (s *Service) SubmitOvertime(ctx context.Context, actorID, overtimeID string) (Overtime, error) {
	var out Overtime
	var res *approvals.Result
	err := querier.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := s.workflow.LockWorkflowIn(ctx, tx, OvertimeApprovalType, OvertimeTarget(overtimeID)); err != nil {
			return err
		}
		store := s.bind(tx)
		o, err := store.GetOvertimeForUpdate(ctx, overtimeID)
		if err != nil {
			return err
		}
		if o.Status != StatusDraft {
			return ierr.NewError("overtime not draft").
				WithHintf("overtime record is already %s", o.Status).
				Mark(ierr.ErrInvalidState)
		}
		if err := store.SetOvertimeStatus(ctx, o.ID, StatusPendingApproval); err != nil {
			return err
		}
		res, err = s.workflow.InitializeIn(ctx, tx, OvertimeApprovalType, actorID, OvertimeTarget(o.ID))
		if err != nil {
			return err
		}
		o.Status = StatusPendingApproval
		out = o
		return nil
	})
	if err != nil {
		return Overtime{}, err
	}
	s.workflow.Deliver(ctx, res)
	return out, nil
}

func outcomeStatus(outcome string) string {
	if outcome == approvals.OutcomeRejected {
		return StatusRejected
	}
	return StatusApproved
}

func (s *Service) HandlePayrollCompletion(ctx context.Context, evt approvals.Event) error {
	if evt.Target.Kind != PayrollTargetKind {
		return nil
	}
	store := s.bind(evt.Tx)
	p, err := store.GetPayrollForUpdate(ctx, evt.Target.ID)
	if err != nil {
		return err
	}
	if p.Status != StatusPendingApproval {
		slog.Warn("payroll workflow finished for a payroll that is not pending approval",
			"payroll_id", p.ID, "status", p.Status, "outcome", evt.Outcome)
		return nil
	}
	return store.SetPayrollStatus(ctx, p.ID, outcomeStatus(evt.Outcome))
}

func (s *Service) HandleOvertimeCompletion(ctx context.Context, evt approvals.Event) error {
	if evt.Target.Kind != OvertimeTargetKind {
		return nil
	}
	store := s.bind(evt.Tx)
	o, err := store.GetOvertimeForUpdate(ctx, evt.Target.ID)
	if err != nil {
		return err
	}
	if o.Status != StatusPendingApproval {
		slog.Warn("overtime workflow finished for a record that is not pending approval",
			"overtime_id", o.ID, "status", o.Status, "outcome", evt.Outcome)
		return nil
	}
	return store.SetOvertimeStatus(ctx, o.ID, outcomeStatus(evt.Outcome))
}

// Payslip renders an approved payroll as a PDF.
func (s *Service) Payslip(ctx context.Context, payrollID string) (Payroll, []byte, error) {
	p, err := s.store.GetPayroll(ctx, payrollID)
	if err != nil {
		return Payroll{}, nil, err
	}
	if p.Status != StatusApproved {
		return Payroll{}, nil, ierr.NewError("payroll not approved").
			WithHint("payslips are only available for approved payrolls").
			Mark(ierr.ErrInvalidState)
	}
	period, err := s.store.GetPeriod(ctx, p.PeriodID)
	if err != nil {
		return Payroll{}, nil, err
	}
	out, err := pdf.Render(PayslipDocument(p, period))
	if err != nil {
		return Payroll{}, nil, ierr.Wrap(err, "render payslip")
	}
	return p, out, nil
}

func PayslipDocument(p Payroll, period Period) pdf.Document {
	money := func(d decimal.Decimal) string { return d.StringFixed(2) }
	return pdf.Document{
		Title: "Payslip " + period.Label(),
		Facts: []pdf.Fact{
			{Label: "Employee", Value: p.EmployeeName},
			{Label: "Period", Value: period.Label()},
			{Label: "Processed", Value: p.ProcessedAt.Format("2006-01-02")},
		},
		Tables: []pdf.Table{
			{
				Heading: "Earnings",
				Columns: []pdf.Column{{Title: "Item", Width: 120}, {Title: "Amount", Width: 60}},
				Rows: [][]string{
					{"Basic salary", money(p.BasicSalary)},
					{"Allowances", money(p.TotalAllowances)},
					{"Overtime", money(p.OvertimePay)},
					{"Gross pay", money(p.GrossPay)},
				},
			},
			{
				Heading: "Deductions",
				Columns: []pdf.Column{{Title: "Item", Width: 120}, {Title: "Amount", Width: 60}},
				Rows: [][]string{
					{"PAYE", money(p.PAYE)},
					{"SHIF", money(p.SHIF)},
					{"NSSF", money(p.NSSF)},
					{"Housing levy", money(p.HousingLevy)},
					{"Other deductions", money(p.TotalDeductions)},
					{"Net pay", money(p.NetPay)},
				},
			},
		},
	}
}
