package testutil

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/koshtony/beezy-beta/internal/domain/approvals"
	"github.com/koshtony/beezy-beta/internal/domain/audit"
	"github.com/koshtony/beezy-beta/internal/domain/notifications"
	ierr "github.com/koshtony/beezy-beta/internal/errors"
	"github.com/koshtony/beezy-beta/internal/platform/querier"
)

type approvalState struct {
	types         []approvals.ApprovalType
	flows         []approvals.Flow
	records       []approvals.Record
	attachments   []approvals.Attachment
	notifications []notifications.Notification
	audits        []audit.Entry
}

func (s approvalState) clone() approvalState {
	return approvalState{
		types:         slices.Clone(s.types),
		flows:         slices.Clone(s.flows),
		records:       slices.Clone(s.records),
		attachments:   slices.Clone(s.attachments),
		notifications: slices.Clone(s.notifications),
		audits:        slices.Clone(s.audits),
	}
}

// InMemoryApprovalStore implements approvals.StoreAPI. InTx serialises
// transactions and restores the previous state when fn fails.
type InMemoryApprovalStore struct {
	mu    sync.Mutex
	txMu  sync.Mutex
	state approvalState
	locks []string

	// FailNotifications makes CreateNotification fail, to exercise rollback.
	FailNotifications bool
	// FailAudits makes RecordAudit fail.
	FailAudits bool
}

func NewInMemoryApprovalStore() *InMemoryApprovalStore {
	return &InMemoryApprovalStore{}
}

func (s *InMemoryApprovalStore) InTx(ctx context.Context, fn func(tx approvals.TxStore) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.state.clone()
	s.mu.Unlock()

	if err := fn(&inMemoryApprovalTx{store: s}); err != nil {
		s.mu.Lock()
		s.state = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Locks lists every workflow lock taken, as "typeID|kind:id", in order.
func (s *InMemoryApprovalStore) Locks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.locks)
}

// Join ignores q; the caller serialises access.
func (s *InMemoryApprovalStore) Join(q querier.Querier) approvals.TxStore {
	return &inMemoryApprovalTx{store: s}
}

func (s *InMemoryApprovalStore) Records() []approvals.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.records)
}

func (s *InMemoryApprovalStore) Notifications() []notifications.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.notifications)
}

func (s *InMemoryApprovalStore) Audits() []audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.audits)
}

func (s *InMemoryApprovalStore) ListTypes(ctx context.Context) ([]approvals.ApprovalType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.state.types)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemoryApprovalStore) GetType(ctx context.Context, typeID string) (approvals.ApprovalType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getType(typeID)
}

func (s *InMemoryApprovalStore) getType(typeID string) (approvals.ApprovalType, error) {
	for _, t := range s.state.types {
		if t.ID == typeID {
			return t, nil
		}
	}
	return approvals.ApprovalType{}, notFoundErr("approval type")
}

func (s *InMemoryApprovalStore) CreateType(ctx context.Context, t approvals.ApprovalType) (approvals.ApprovalType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.state.types {
		if existing.Name == t.Name {
			return approvals.ApprovalType{}, ierr.NewError("duplicate approval type").
				WithHintf("approval type %q already exists", t.Name).
				Mark(ierr.ErrConflict)
		}
	}
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	s.state.types = append(s.state.types, t)
	return t, nil
}

func (s *InMemoryApprovalStore) UpdateType(ctx context.Context, t approvals.ApprovalType) (approvals.ApprovalType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.state.types {
		if existing.ID == t.ID {
			t.CreatedAt = existing.CreatedAt
			t.UpdatedAt = time.Now().UTC()
			s.state.types[i] = t
			return t, nil
		}
	}
	return approvals.ApprovalType{}, notFoundErr("approval type")
}

func (s *InMemoryApprovalStore) DeleteType(ctx context.Context, typeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.state.types {
		if existing.ID == typeID {
			s.state.types = slices.Delete(s.state.types, i, i+1)
			return nil
		}
	}
	return notFoundErr("approval type")
}

func (s *InMemoryApprovalStore) TypeInUse(ctx context.Context, typeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.state.flows {
		if f.ApprovalTypeID == typeID {
			return true, nil
		}
	}
	for _, r := range s.state.records {
		if r.ApprovalTypeID == typeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryApprovalStore) ListFlows(ctx context.Context, typeID string) ([]approvals.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []approvals.Flow{}
	for _, f := range s.state.flows {
		if f.ApprovalTypeID == typeID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

func (s *InMemoryApprovalStore) GetFlow(ctx context.Context, flowID string) (approvals.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.state.flows {
		if f.ID == flowID {
			return f, nil
		}
	}
	return approvals.Flow{}, notFoundErr("approval flow")
}

func (s *InMemoryApprovalStore) CreateFlow(ctx context.Context, f approvals.Flow) (approvals.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLevelFree(f); err != nil {
		return approvals.Flow{}, err
	}
	f.ID = uuid.NewString()
	f.CreatedAt = time.Now().UTC()
	f.UpdatedAt = f.CreatedAt
	s.state.flows = append(s.state.flows, f)
	return f, nil
}

func (s *InMemoryApprovalStore) UpdateFlow(ctx context.Context, f approvals.Flow) (approvals.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLevelFree(f); err != nil {
		return approvals.Flow{}, err
	}
	for i, existing := range s.state.flows {
		if existing.ID == f.ID {
			f.ApprovalTypeID = existing.ApprovalTypeID
			f.CreatedAt = existing.CreatedAt
			f.UpdatedAt = time.Now().UTC()
			s.state.flows[i] = f
			return f, nil
		}
	}
	return approvals.Flow{}, notFoundErr("approval flow")
}

func (s *InMemoryApprovalStore) checkLevelFree(f approvals.Flow) error {
	for _, existing := range s.state.flows {
		if existing.ID != f.ID && existing.ApprovalTypeID == f.ApprovalTypeID && existing.Level == f.Level {
			return ierr.NewError("duplicate level").
				WithHintf("level %d is already configured for this approval type", f.Level).
				Mark(ierr.ErrConflict)
		}
	}
	return nil
}

func (s *InMemoryApprovalStore) GetRecord(ctx context.Context, recordID string) (approvals.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getRecord(recordID)
}

func (s *InMemoryApprovalStore) getRecord(recordID string) (approvals.Record, error) {
	for _, r := range s.state.records {
		if r.ID == recordID {
			return r, nil
		}
	}
	return approvals.Record{}, notFoundErr("approval record")
}

func (s *InMemoryApprovalStore) ListTargetRecords(ctx context.Context, target approvals.Target) ([]approvals.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterRecords(func(r approvals.Record) bool { return r.Target == target }), nil
}

func (s *InMemoryApprovalStore) ListAssigned(ctx context.Context, approverID string, filter approvals.ListFilter) ([]approvals.Record, int, error) {
	return s.page(func(r approvals.Record) bool { return r.ApproverID == approverID }, filter)
}

func (s *InMemoryApprovalStore) ListCreated(ctx context.Context, creatorID string, filter approvals.ListFilter) ([]approvals.Record, int, error) {
	return s.page(func(r approvals.Record) bool { return r.CreatorID == creatorID }, filter)
}

func (s *InMemoryApprovalStore) page(match func(approvals.Record) bool, filter approvals.ListFilter) ([]approvals.Record, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.filterRecords(func(r approvals.Record) bool {
		return match(r) && (filter.Status == "" || r.Status == filter.Status)
	})
	slices.Reverse(all)
	total := len(all)
	start := min(filter.Offset, total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return all[start:end], total, nil
}

func (s *InMemoryApprovalStore) filterRecords(match func(approvals.Record) bool) []approvals.Record {
	out := []approvals.Record{}
	for _, r := range s.state.records {
		if match(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s *InMemoryApprovalStore) CreateAttachment(ctx context.Context, a approvals.Attachment) (approvals.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = uuid.NewString()
	a.UploadedAt = time.Now().UTC()
	s.state.attachments = append(s.state.attachments, a)
	return a, nil
}

func (s *InMemoryApprovalStore) ListAttachments(ctx context.Context, recordID string) ([]approvals.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []approvals.Attachment{}
	for _, a := range s.state.attachments {
		if a.RecordID == recordID {
			a.Data = nil
			out = append(out, a)
		}
	}
	return out, nil
}

type inMemoryApprovalTx struct {
	store *InMemoryApprovalStore
}

func (t *inMemoryApprovalTx) Querier() querier.Querier {
	return nil
}

func (t *inMemoryApprovalTx) LockWorkflow(ctx context.Context, typeID string, target approvals.Target) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.locks = append(t.store.locks, typeID+"|"+target.String())
	return nil
}

func (t *inMemoryApprovalTx) GetTypeByName(ctx context.Context, name string) (approvals.ApprovalType, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, typ := range t.store.state.types {
		if typ.Name == name {
			return typ, nil
		}
	}
	return approvals.ApprovalType{}, notFoundErr(fmt.Sprintf("approval type %q", name))
}

func (t *inMemoryApprovalTx) GetType(ctx context.Context, typeID string) (approvals.ApprovalType, error) {
	return t.store.GetType(ctx, typeID)
}

// GetTypeForUpdate needs no lock; InTx already serialises transactions.
func (t *inMemoryApprovalTx) GetTypeForUpdate(ctx context.Context, typeID string) (approvals.ApprovalType, error) {
	return t.store.GetType(ctx, typeID)
}

func (t *inMemoryApprovalTx) TypeInUse(ctx context.Context, typeID string) (bool, error) {
	return t.store.TypeInUse(ctx, typeID)
}

func (t *inMemoryApprovalTx) CreateType(ctx context.Context, typ approvals.ApprovalType) (approvals.ApprovalType, error) {
	return t.store.CreateType(ctx, typ)
}

func (t *inMemoryApprovalTx) UpdateType(ctx context.Context, typ approvals.ApprovalType) (approvals.ApprovalType, error) {
	return t.store.UpdateType(ctx, typ)
}

func (t *inMemoryApprovalTx) DeleteType(ctx context.Context, typeID string) error {
	return t.store.DeleteType(ctx, typeID)
}

func (t *inMemoryApprovalTx) GetFlow(ctx context.Context, flowID string) (approvals.Flow, error) {
	return t.store.GetFlow(ctx, flowID)
}

func (t *inMemoryApprovalTx) CreateFlow(ctx context.Context, f approvals.Flow) (approvals.Flow, error) {
	return t.store.CreateFlow(ctx, f)
}

func (t *inMemoryApprovalTx) UpdateFlow(ctx context.Context, f approvals.Flow) (approvals.Flow, error) {
	return t.store.UpdateFlow(ctx, f)
}

func (t *inMemoryApprovalTx) GetRecord(ctx context.Context, recordID string) (approvals.Record, error) {
	return t.store.GetRecord(ctx, recordID)
}

func (t *inMemoryApprovalTx) GetRecordForUpdate(ctx context.Context, recordID string) (approvals.Record, error) {
	return t.store.GetRecord(ctx, recordID)
}

func (t *inMemoryApprovalTx) ActiveFlowsAtLevel(ctx context.Context, typeID string, level int) ([]approvals.Flow, error) {
	flows, _ := t.store.ListFlows(ctx, typeID)
	out := []approvals.Flow{}
	for _, f := range flows {
		if f.Level == level && f.IsActive {
			out = append(out, f)
		}
	}
	return out, nil
}

func (t *inMemoryApprovalTx) NextActiveLevel(ctx context.Context, typeID string, after int) (int, bool, error) {
	flows, _ := t.store.ListFlows(ctx, typeID)
	for _, f := range flows {
		if f.Level > after && f.IsActive {
			return f.Level, true, nil
		}
	}
	return 0, false, nil
}

func (t *inMemoryApprovalTx) TargetTypeIDs(ctx context.Context, target approvals.Target) ([]string, error) {
	records, _ := t.store.ListTargetRecords(ctx, target)
	seen := map[string]bool{}
	out := []string{}
	for _, r := range records {
		if !seen[r.ApprovalTypeID] {
			seen[r.ApprovalTypeID] = true
			out = append(out, r.ApprovalTypeID)
		}
	}
	return out, nil
}

func (t *inMemoryApprovalTx) count(match func(approvals.Record) bool) int {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return len(t.store.filterRecords(match))
}

func (t *inMemoryApprovalTx) CountRecords(ctx context.Context, typeID string, target approvals.Target) (int, error) {
	return t.count(func(r approvals.Record) bool {
		return r.ApprovalTypeID == typeID && r.Target == target
	}), nil
}

func (t *inMemoryApprovalTx) HasRejection(ctx context.Context, typeID string, target approvals.Target) (bool, error) {
	return t.count(func(r approvals.Record) bool {
		return r.ApprovalTypeID == typeID && r.Target == target && r.Status == approvals.StatusRejected
	}) > 0, nil
}

func (t *inMemoryApprovalTx) CountPendingAtLevel(ctx context.Context, typeID string, target approvals.Target, level int) (int, error) {
	return t.count(func(r approvals.Record) bool {
		return r.ApprovalTypeID == typeID && r.Target == target && r.Level == level && r.Status == approvals.StatusPending
	}), nil
}

func (t *inMemoryApprovalTx) InsertRecord(ctx context.Context, rec approvals.Record) (approvals.Record, bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, existing := range t.store.state.records {
		if existing.ApprovalTypeID == rec.ApprovalTypeID && existing.Target == rec.Target &&
			existing.ApproverID == rec.ApproverID && existing.Level == rec.Level {
			return approvals.Record{}, false, nil
		}
	}
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()
	rec.UpdatedAt = rec.CreatedAt
	t.store.state.records = append(t.store.state.records, rec)
	return rec, true, nil
}

func (t *inMemoryApprovalTx) SetDecision(ctx context.Context, recordID, status, comment string, at time.Time) (approvals.Record, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for i, r := range t.store.state.records {
		if r.ID == recordID {
			decided := at
			r.Status = status
			r.Comment = comment
			r.ApprovedAt = &decided
			r.UpdatedAt = at
			t.store.state.records[i] = r
			return r, nil
		}
	}
	return approvals.Record{}, notFoundErr("approval record")
}

func (t *inMemoryApprovalTx) cancel(match func(approvals.Record) bool, comment string, at time.Time) []approvals.Record {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	out := []approvals.Record{}
	for i, r := range t.store.state.records {
		if r.Status == approvals.StatusPending && match(r) {
			r.Status = approvals.StatusCancelled
			r.Comment = comment
			r.UpdatedAt = at
			t.store.state.records[i] = r
			out = append(out, r)
		}
	}
	return out
}

func (t *inMemoryApprovalTx) CancelPendingAbove(ctx context.Context, typeID string, target approvals.Target, level int, comment string, at time.Time) ([]approvals.Record, error) {
	return t.cancel(func(r approvals.Record) bool {
		return r.ApprovalTypeID == typeID && r.Target == target && r.Level > level
	}, comment, at), nil
}

func (t *inMemoryApprovalTx) CancelPendingSiblings(ctx context.Context, typeID string, target approvals.Target, level int, exceptID, comment string, at time.Time) ([]approvals.Record, error) {
	return t.cancel(func(r approvals.Record) bool {
		return r.ApprovalTypeID == typeID && r.Target == target && r.Level == level && r.ID != exceptID
	}, comment, at), nil
}

func (t *inMemoryApprovalTx) CancelPendingForTarget(ctx context.Context, target approvals.Target, comment string, at time.Time) ([]approvals.Record, error) {
	return t.cancel(func(r approvals.Record) bool { return r.Target == target }, comment, at), nil
}

func (t *inMemoryApprovalTx) DeleteTargetRecords(ctx context.Context, target approvals.Target) (int, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	before := len(t.store.state.records)
	t.store.state.records = slices.DeleteFunc(t.store.state.records, func(r approvals.Record) bool {
		return r.Target == target
	})
	return before - len(t.store.state.records), nil
}

func (t *inMemoryApprovalTx) CreateNotification(ctx context.Context, n notifications.Notification) (notifications.Notification, error) {
	if t.store.FailNotifications {
		return notifications.Notification{}, fmt.Errorf("notification insert failed")
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now().UTC()
	t.store.state.notifications = append(t.store.state.notifications, n)
	return n, nil
}

func (t *inMemoryApprovalTx) RecordAudit(ctx context.Context, entry audit.Entry) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.store.FailAudits {
		return ierr.NewError("audit write failed").Mark(ierr.ErrDatabase)
	}
	t.store.state.audits = append(t.store.state.audits, entry)
	return nil
}

func notFoundErr(what string) error {
	return ierr.NewError(what + " not found").
		WithHintf("%s not found", what).
		Mark(ierr.ErrNotFound)
}

var (
	_ approvals.StoreAPI = (*InMemoryApprovalStore)(nil)
	_ approvals.TxStore  = (*inMemoryApprovalTx)(nil)
)
