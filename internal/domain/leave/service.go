package leave

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/koshtony/beezy-beta/internal/domain/approvals"
	ierr "github.com/koshtony/beezy-beta/internal/errors"
	"github.com/koshtony/beezy-beta/internal/platform/querier"
)

// Workflow is the part of the approval engine leave needs.
type Workflow interface {
	InitializeIn(ctx context.Context, q querier.Querier, typeName, creatorID string, target approvals.Target) (*approvals.Result, error)
	RemoveTargetIn(ctx context.Context, q querier.Querier, target approvals.Target, actorID string) (*approvals.Result, error)
	LockWorkflowIn(ctx context.Context, q querier.Querier, typeName string, target approvals.Target) error
	Deliver(ctx context.Context, res *approvals.Result)
}

type Service struct {
	db       querier.Querier
	store    StoreAPI
	bind     func(q querier.Querier) StoreAPI
	workflow Workflow
}

func NewService(db querier.Querier, workflow Workflow) *Service {
	bind := func(q querier.Querier) StoreAPI { return NewStore(q) }
	return &Service{db: db, store: bind(db), bind: bind, workflow: workflow}
}

// Register declares leave requests as approval targets and subscribes to
// the outcome of their workflows.
func (s *Service) Register(engine *approvals.Engine) {
	engine.RegisterTarget(TargetKind, func(ctx context.Context, q querier.Querier, id string) error {
		_, err := s.bind(q).GetRequest(ctx, id)
		return err
	})
	engine.Subscribe(ApprovalTypeName, s.HandleCompletion)
}

func Target(requestID string) approvals.Target {
	return approvals.Target{Kind: TargetKind, ID: requestID}
}

func (s *Service) ListTypes(ctx context.Context) ([]LeaveType, error) {
	return s.store.ListTypes(ctx)
}

func (s *Service) CreateType(ctx context.Context, t LeaveType) (LeaveType, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" || t.DaysPerYear.IsNegative() {
		return LeaveType{}, ierr.NewError("invalid leave type").
			WithHint("name is required and days per year must not be negative").
			Mark(ierr.ErrValidation)
	}
	return s.store.CreateType(ctx, t)
}

func (s *Service) ListBalances(ctx context.Context, employeeID string, year int) ([]Balance, error) {
	return s.store.ListBalances(ctx, employeeID, year)
}

func (s *Service) ListRequests(ctx context.Context, employeeID string, limit, offset int) ([]Request, int, error) {
	return s.store.ListRequests(ctx, employeeID, limit, offset)
}

func (s *Service) GetRequest(ctx context.Context, requestID string) (Request, error) {
	return s.store.GetRequest(ctx, requestID)
}

// Submit files a leave request and starts its approval workflow in the same
// transaction.
func (s *Service) Submit(ctx context.Context, employeeID string, in SubmitInput) (Request, error) {
	if in.DayType == "" {
		in.DayType = DayTypeFull
	}
	days, err := CalculateRequestDays(in.StartDate, in.EndDate, in.DayType)
	if err != nil {
		return Request{}, err
	}

	var created Request
	var res *approvals.Result
	err = querier.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		store := s.bind(tx)
		if _, err := store.GetType(ctx, in.LeaveTypeID); err != nil {
			return err
		}
		created, err = store.CreateRequest(ctx, Request{
			EmployeeID:  employeeID,
			LeaveTypeID: in.LeaveTypeID,
			StartDate:   dateOnly(in.StartDate),
			EndDate:     dateOnly(in.EndDate),
			DayType:     in.DayType,
			TotalDays:   days,
			Reason:      strings.TrimSpace(in.Reason),
			Status:      StatusPending,
		})
		if err != nil {
			return err
		}
		res, err = s.workflow.InitializeIn(ctx, tx, ApprovalTypeName, employeeID, Target(created.ID))
		return err
	})
	if err != nil {
		return Request{}, err
	}
	s.workflow.Deliver(ctx, res)
	return created, nil
}

// Cancel withdraws a pending request on behalf of its owner.
func (s *Service) Cancel(ctx context.Context, employeeID, requestID string) (Request, error) {
	var out Request
	err := querier.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := s.workflow.LockWorkflowIn(ctx, tx, ApprovalTypeName, Target(requestID)); err != nil {
			return err
		}
		store := s.bind(tx)
		req, err := store.GetRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.EmployeeID != employeeID {
			return ierr.NewError("not request owner").
				WithHint("only the employee who filed a leave request can cancel it").
				Mark(ierr.ErrPermissionDenied)
		}
		if req.Status != StatusPending {
			return ierr.NewError("leave request not pending").
				WithHintf("leave request is already %s", req.Status).
				Mark(ierr.ErrInvalidState)
		}
		if err := store.SetRequestStatus(ctx, requestID, StatusCancelled); err != nil {
			return err
		}
		if _, err := s.workflow.RemoveTargetIn(ctx, tx, Target(requestID), employeeID); err != nil {
			return err
		}
		req.Status = StatusCancelled
		out = req
		return nil
	})
	return out, err
}

// HandleCompletion applies a finished Leave workflow to its request and, on
// approval, to the employee's balance for the request's year.
func (s *Service) HandleCompletion(ctx context.Context, evt approvals.Event) error {
	if evt.Target.Kind != TargetKind {
		return nil
	}
	store := s.bind(evt.Tx)
	req, err := store.GetRequestForUpdate(ctx, evt.Target.ID)
	if err != nil {
		return err
	}
	if req.Status != StatusPending {
		slog.Warn("leave workflow finished for a request that is no longer pending",
			"request_id", req.ID, "status", req.Status, "outcome", evt.Outcome)
		return nil
	}

	if evt.Outcome == approvals.OutcomeRejected {
		return store.SetRequestStatus(ctx, req.ID, StatusRejected)
	}

	if err := store.SetRequestStatus(ctx, req.ID, StatusApproved); err != nil {
		return err
	}
	leaveType, err := store.GetType(ctx, req.LeaveTypeID)
	if err != nil {
		return err
	}
	return store.ConsumeBalance(ctx, req.EmployeeID, req.LeaveTypeID, req.StartDate.Year(), leaveType.DaysPerYear, req.TotalDays)
}
