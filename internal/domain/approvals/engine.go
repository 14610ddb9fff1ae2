package approvals

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/koshtony/beezy-beta/internal/domain/audit"
	"github.com/koshtony/beezy-beta/internal/domain/notifications"
	ierr "github.com/koshtony/beezy-beta/internal/errors"
	"github.com/koshtony/beezy-beta/internal/platform/querier"
	"github.com/koshtony/beezy-beta/internal/requestctx"
)

// Engine drives approval workflows. It sequences levels, records decisions and
// tells subscribed domains when a workflow completes. It never touches
// domain tables itself.
type Engine struct {
	store     StoreAPI
	directory Directory
	deliverer Deliverer
	recorder  Recorder
	policy    Policy
	now       func() time.Time

	mu       sync.RWMutex
	targets  map[string]TargetResolver
	handlers map[string][]CompletionHandler
}

type Option func(*Engine)

func WithPolicy(p Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

func WithDeliverer(d Deliverer) Option {
	return func(e *Engine) {
		if d != nil {
			e.deliverer = d
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEngine(store StoreAPI, directory Directory, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		directory: directory,
		recorder:  noopRecorder{},
		policy:    DefaultPolicy(),
		now:       time.Now,
		targets:   map[string]TargetResolver{},
		handlers:  map[string][]CompletionHandler{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Policy() Policy {
	return e.policy
}

// Subscribe registers a handler for workflows of the named approval type.
// Handlers run inside the deciding transaction; an error rolls it back.
func (e *Engine) Subscribe(typeName string, handler CompletionHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[typeName] = append(e.handlers[typeName], handler)
}

func (e *Engine) handlersFor(typeName string) []CompletionHandler {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]CompletionHandler(nil), e.handlers[typeName]...)
}

// Result describes what one transition wrote. Outbound lists notifications
// to e-mail after commit.
type Result struct {
	Record    *Record                  `json:"record,omitempty"`
	Created   []Record                 `json:"created"`
	Cancelled []Record                 `json:"cancelled"`
	Completed bool                     `json:"completed"`
	Outcome   string                   `json:"outcome,omitempty"`
	Outbound  []notifications.Outbound `json:"-"`
}

type run struct {
	tx      TxStore
	typ     ApprovalType
	target  Target
	creator string
	actor   string
	decided *Record
	result  *Result
}

// Initialize opens level 1 of the named workflow for target in its own
// transaction. A type without a usable level 1 is logged and skipped.
func (e *Engine) Initialize(ctx context.Context, typeName, creatorID string, target Target) (*Result, error) {
	var res *Result
	err := e.store.InTx(ctx, func(tx TxStore) error {
		var err error
		res, err = e.initialize(ctx, tx, typeName, creatorID, target)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.Deliver(ctx, res)
	return res, nil
}

// InitializeIn is Initialize inside the caller's transaction. The caller
// passes the result to Deliver once it has committed.
func (e *Engine) InitializeIn(ctx context.Context, q querier.Querier, typeName, creatorID string, target Target) (*Result, error) {
	return e.initialize(ctx, e.store.Join(q), typeName, creatorID, target)
}

func (e *Engine) initialize(ctx context.Context, tx TxStore, typeName, creatorID string, target Target) (*Result, error) {
	if err := validateTarget(target); err != nil {
		return nil, err
	}
	if strings.TrimSpace(creatorID) == "" {
		return nil, ierr.NewError("creator is required").
			WithHint("creator is required").
			Mark(ierr.ErrValidation)
	}
	typ, err := tx.GetTypeByName(ctx, typeName)
	if err != nil {
		return nil, err
	}
	if err := e.resolveTarget(ctx, tx.Querier(), target); err != nil {
		return nil, err
	}
	if err := tx.LockWorkflow(ctx, typ.ID, target); err != nil {
		return nil, err
	}

	rejected, err := tx.HasRejection(ctx, typ.ID, target)
	if err != nil {
		return nil, err
	}
	if rejected {
		return nil, ierr.NewError("workflow already rejected").
			WithHintf("%s workflow for %s was rejected", typ.Name, target).
			Mark(ierr.ErrInvalidState)
	}

	existing, err := tx.CountRecords(ctx, typ.ID, target)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		slog.Debug("approval workflow already initialized", "type", typ.Name, "target", target.String())
		return &Result{}, nil
	}

	r := &run{tx: tx, typ: typ, target: target, creator: creatorID, actor: creatorID, result: &Result{}}
	if err := e.openLevel(ctx, r, 1); err != nil {
		if ierr.IsConfigurationGap(err) {
			slog.Warn("approval workflow not started", "type", typ.Name, "target", target.String(), "err", err)
			return &Result{}, nil
		}
		return nil, err
	}
	return r.result, nil
}

// Approve records actorID's approval and advances the workflow when the
// level clears.
func (e *Engine) Approve(ctx context.Context, recordID, actorID, comment string) (*Result, error) {
	return e.decide(ctx, recordID, actorID, comment, StatusApproved)
}

// Reject records actorID's rejection, cancels the open records of the
// workflow and ends it.
func (e *Engine) Reject(ctx context.Context, recordID, actorID, comment string) (*Result, error) {
	return e.decide(ctx, recordID, actorID, comment, StatusRejected)
}

func (e *Engine) decide(ctx context.Context, recordID, actorID, comment, status string) (*Result, error) {
	var res *Result
	var typeName string
	err := e.store.InTx(ctx, func(tx TxStore) error {
		r, err := e.loadActionable(ctx, tx, recordID, actorID)
		if err != nil {
			return err
		}
		typeName = r.typ.Name
		if status == StatusApproved {
			err = e.approve(ctx, r, comment)
		} else {
			err = e.reject(ctx, r, comment)
		}
		if err != nil {
			return err
		}
		res = r.result
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.recorder.Decision(typeName, status)
	e.Deliver(ctx, res)
	return res, nil
}

func (e *Engine) loadActionable(ctx context.Context, tx TxStore, recordID, actorID string) (*run, error) {
	rec, err := tx.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := tx.LockWorkflow(ctx, rec.ApprovalTypeID, rec.Target); err != nil {
		return nil, err
	}
	rec, err = tx.GetRecordForUpdate(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if rec.ApproverID != actorID {
		return nil, ierr.NewError("record not actionable by actor").
			WithHint("approval record is not actionable: you are not its approver").
			Mark(ierr.ErrInvalidState)
	}
	if rec.Status != StatusPending {
		return nil, ierr.NewError("record not pending").
			WithHintf("approval record is not actionable: already %s", rec.Status).
			Mark(ierr.ErrInvalidState)
	}
	rejected, err := tx.HasRejection(ctx, rec.ApprovalTypeID, rec.Target)
	if err != nil {
		return nil, err
	}
	if rejected {
		return nil, ierr.NewError("workflow already rejected").
			WithHint("approval record is not actionable: the workflow was rejected").
			Mark(ierr.ErrInvalidState)
	}

	typ, err := tx.GetType(ctx, rec.ApprovalTypeID)
	if err != nil {
		return nil, err
	}
	return &run{
		tx:      tx,
		typ:     typ,
		target:  rec.Target,
		creator: rec.CreatorID,
		actor:   actorID,
		decided: &rec,
		result:  &Result{},
	}, nil
}

func (e *Engine) approve(ctx context.Context, r *run, comment string) error {
	now := e.now().UTC()
	rec := *r.decided
	updated, err := r.tx.SetDecision(ctx, rec.ID, StatusApproved, comment, now)
	if err != nil {
		return err
	}
	r.decided = &updated
	r.result.Record = &updated
	if err := e.audit(ctx, r, audit.ActionApprovalApprove, rec, updated); err != nil {
		return err
	}

	cleared := true
	if e.policy.clearsOnFirstApproval() {
		cancelled, err := r.tx.CancelPendingSiblings(ctx, r.typ.ID, r.target, rec.Level, rec.ID, CommentSuperseded, now)
		if err != nil {
			return err
		}
		if err := e.recordCancelled(ctx, r, cancelled); err != nil {
			return err
		}
	} else {
		pending, err := r.tx.CountPendingAtLevel(ctx, r.typ.ID, r.target, rec.Level)
		if err != nil {
			return err
		}
		cleared = pending == 0
	}

	if cleared {
		if err := e.advance(ctx, r, rec.Level); err != nil {
			return err
		}
	}

	if !r.result.Completed && e.policy.notifiesEachStep() {
		approver := e.displayName(ctx, r.actor)
		title := fmt.Sprintf("%s request approved at level %d", r.typ.Name, rec.Level)
		message := fmt.Sprintf("%s approved your %s request at level %d.", approver, r.typ.Name, rec.Level)
		if err := e.notify(ctx, r, r.creator, title, withComment(message, comment), &updated.ID, true); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) reject(ctx context.Context, r *run, comment string) error {
	now := e.now().UTC()
	rec := *r.decided
	updated, err := r.tx.SetDecision(ctx, rec.ID, StatusRejected, comment, now)
	if err != nil {
		return err
	}
	r.decided = &updated
	r.result.Record = &updated
	if err := e.audit(ctx, r, audit.ActionApprovalReject, rec, updated); err != nil {
		return err
	}

	above, err := r.tx.CancelPendingAbove(ctx, r.typ.ID, r.target, rec.Level, CommentAutoCancelled, now)
	if err != nil {
		return err
	}
	siblings, err := r.tx.CancelPendingSiblings(ctx, r.typ.ID, r.target, rec.Level, rec.ID, CommentAutoCancelled, now)
	if err != nil {
		return err
	}
	if err := e.recordCancelled(ctx, r, append(above, siblings...)); err != nil {
		return err
	}
	return e.complete(ctx, r, OutcomeRejected, comment)
}

// openLevel materialises the records of level and moves on at once when the
// level holds nothing to approve.
func (e *Engine) openLevel(ctx context.Context, r *run, level int) error {
	flows, err := r.tx.ActiveFlowsAtLevel(ctx, r.typ.ID, level)
	if err != nil {
		return err
	}
	if len(flows) == 0 {
		return ierr.NewError(fmt.Sprintf("no active flow for %s level %d", r.typ.Name, level)).
			Mark(ierr.ErrConfigurationGap)
	}

	creatorName := e.displayName(ctx, r.creator)
	seen := map[string]bool{}
	created := 0
	for _, flow := range flows {
		approvers, err := e.approversFor(ctx, flow)
		if err != nil {
			return err
		}
		for _, approverID := range approvers {
			if seen[approverID] {
				continue
			}
			seen[approverID] = true

			status := StatusNotified
			if flow.IsProperApprover {
				status = StatusPending
			}
			rec, inserted, err := r.tx.InsertRecord(ctx, Record{
				ApprovalTypeID:   r.typ.ID,
				CreatorID:        r.creator,
				ApproverID:       approverID,
				Target:           r.target,
				Level:            level,
				Status:           status,
				IsProperApprover: flow.IsProperApprover,
				WasNotified:      flow.NotifyApprover,
			})
			if err != nil {
				return err
			}
			if !inserted {
				continue
			}
			created++
			r.result.Created = append(r.result.Created, rec)

			title, message := approverMessage(creatorName, r.typ.Name, level, flow.IsProperApprover)
			if err := e.notify(ctx, r, approverID, title, message, &rec.ID, flow.NotifyApprover); err != nil {
				return err
			}
		}
	}
	if len(seen) == 0 {
		return ierr.NewError(fmt.Sprintf("no approvers resolved for %s level %d", r.typ.Name, level)).
			Mark(ierr.ErrConfigurationGap)
	}
	e.recorder.RecordsCreated(r.typ.Name, created)

	pending, err := r.tx.CountPendingAtLevel(ctx, r.typ.ID, r.target, level)
	if err != nil {
		return err
	}
	if pending == 0 {
		return e.advance(ctx, r, level)
	}
	return nil
}

func (e *Engine) advance(ctx context.Context, r *run, level int) error {
	next, ok, err := r.tx.NextActiveLevel(ctx, r.typ.ID, level)
	if err != nil {
		return err
	}
	if !ok {
		return e.complete(ctx, r, OutcomeApproved, "")
	}
	if err := e.openLevel(ctx, r, next); err != nil {
		if ierr.IsConfigurationGap(err) {
			slog.Warn("approval workflow halted", "type", r.typ.Name, "target", r.target.String(), "level", next, "err", err)
			return nil
		}
		return err
	}
	return nil
}

func (e *Engine) complete(ctx context.Context, r *run, outcome, comment string) error {
	r.result.Completed = true
	r.result.Outcome = outcome

	var related *string
	level := 0
	if r.decided != nil {
		related = &r.decided.ID
		level = r.decided.Level
	}

	var title, message string
	if outcome == OutcomeApproved {
		title = fmt.Sprintf("%s request approved", r.typ.Name)
		message = fmt.Sprintf("Your %s request was fully approved.", r.typ.Name)
	} else {
		title = fmt.Sprintf("%s request rejected", r.typ.Name)
		message = withComment(fmt.Sprintf("%s rejected your %s request at level %d.", e.displayName(ctx, r.actor), r.typ.Name, level), comment)
	}
	if err := e.notify(ctx, r, r.creator, title, message, related, true); err != nil {
		return err
	}

	if err := r.tx.RecordAudit(ctx, audit.Entry{
		ActorID:    r.actor,
		Action:     audit.ActionApprovalComplete,
		EntityType: "approval_workflow",
		EntityID:   r.typ.Name + "/" + r.target.String(),
		RequestID:  requestctx.RequestID(ctx),
		After:      map[string]string{"outcome": outcome},
	}); err != nil {
		return err
	}

	evt := Event{
		ApprovalType: r.typ.Name,
		Outcome:      outcome,
		Target:       r.target,
		CreatorID:    r.creator,
		DecidedBy:    r.actor,
		Comment:      comment,
		Tx:           r.tx.Querier(),
	}
	for _, handler := range e.handlersFor(r.typ.Name) {
		if err := handler(ctx, evt); err != nil {
			return ierr.Wrap(err, fmt.Sprintf("%s completion handler", r.typ.Name))
		}
	}
	e.recorder.WorkflowCompleted(r.typ.Name, outcome)
	return nil
}

func (e *Engine) approversFor(ctx context.Context, flow Flow) ([]string, error) {
	if flow.ApproverID != "" {
		return []string{flow.ApproverID}, nil
	}
	if !flow.HasRule() {
		return nil, nil
	}
	return e.directory.ResolveApprovers(ctx, flow.DepartmentID, flow.SubDepartmentID, flow.RoleID)
}

func (e *Engine) notify(ctx context.Context, r *run, recipientID, title, message string, related *string, email bool) error {
	n, err := r.tx.CreateNotification(ctx, notifications.Notification{
		RecipientID:     recipientID,
		Title:           title,
		Message:         message,
		RelatedRecordID: related,
	})
	if err != nil {
		return err
	}
	r.result.Outbound = append(r.result.Outbound, notifications.Outbound{Notification: n, Email: email})
	e.recorder.NotificationsCreated(1)
	return nil
}

func (e *Engine) recordCancelled(ctx context.Context, r *run, cancelled []Record) error {
	for _, rec := range cancelled {
		if err := e.audit(ctx, r, audit.ActionApprovalCancel, nil, rec); err != nil {
			return err
		}
	}
	r.result.Cancelled = append(r.result.Cancelled, cancelled...)
	return nil
}

func (e *Engine) audit(ctx context.Context, r *run, action string, before any, after Record) error {
	return r.tx.RecordAudit(ctx, audit.Entry{
		ActorID:    r.actor,
		Action:     action,
		EntityType: "approval_record",
		EntityID:   after.ID,
		RequestID:  requestctx.RequestID(ctx),
		Before:     before,
		After:      after,
	})
}

// Deliver e-mails the notifications of a committed result.
func (e *Engine) Deliver(ctx context.Context, res *Result) {
	if e.deliverer == nil || res == nil || len(res.Outbound) == 0 {
		return
	}
	e.deliverer.Deliver(ctx, res.Outbound)
}

func (e *Engine) displayName(ctx context.Context, employeeID string) string {
	if e.directory == nil {
		return "An employee"
	}
	name, err := e.directory.EmployeeName(ctx, employeeID)
	if err != nil || strings.TrimSpace(name) == "" {
		return "An employee"
	}
	return name
}

func approverMessage(creatorName, typeName string, level int, proper bool) (string, string) {
	if proper {
		return "Approval required",
			fmt.Sprintf("%s submitted a %s request that needs your approval at level %d.", creatorName, typeName, level)
	}
	return "For your information",
		fmt.Sprintf("%s submitted a %s request (level %d). No action is required from you.", creatorName, typeName, level)
}

func withComment(message, comment string) string {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return message
	}
	return message + " Comment: " + comment
}
