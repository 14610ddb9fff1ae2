package approvals

import (
	"context"
	"fmt"
	"time"

	ierr "github.com/koshtony/beezy-beta/internal/errors"
	"github.com/koshtony/beezy-beta/internal/platform/querier"
)

const recordColumns = `id, approval_type_id, creator_id, approver_id, target_kind, target_id, level, status,
    comment, approved_at, is_proper_approver, was_notified, created_at, updated_at`

const flowColumns = `id, approval_type_id, level, COALESCE(approver_id::text, ''), COALESCE(department_id::text, ''),
    COALESCE(sub_department_id::text, ''), COALESCE(role_id::text, ''), is_proper_approver, notify_approver,
    is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.ApprovalTypeID, &r.CreatorID, &r.ApproverID, &r.Target.Kind, &r.Target.ID, &r.Level,
		&r.Status, &r.Comment, &r.ApprovedAt, &r.IsProperApprover, &r.WasNotified, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func scanFlow(row rowScanner) (Flow, error) {
	var f Flow
	err := row.Scan(&f.ID, &f.ApprovalTypeID, &f.Level, &f.ApproverID, &f.DepartmentID, &f.SubDepartmentID,
		&f.RoleID, &f.IsProperApprover, &f.NotifyApprover, &f.IsActive, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

func collectRecords(ctx context.Context, q querier.Querier, sql string, args ...any) ([]Record, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func notFound(err error, what string) error {
	if querier.IsNoRows(err) {
		return ierr.WithError(err).
			WithHintf("%s not found", what).
			Mark(ierr.ErrNotFound)
	}
	return err
}

func (s *Store) ListTypes(ctx context.Context) ([]ApprovalType, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, description, created_at, updated_at
    FROM approval_types
    ORDER BY name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ApprovalType{}
	for rows.Next() {
		var t ApprovalType
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetType(ctx context.Context, typeID string) (ApprovalType, error) {
	var t ApprovalType
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, description, created_at, updated_at
    FROM approval_types
    WHERE id::text = $1
  `, typeID).Scan(&t.ID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	return t, notFound(err, "approval type")
}

func (s *Store) GetTypeForUpdate(ctx context.Context, typeID string) (ApprovalType, error) {
	var t ApprovalType
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, description, created_at, updated_at
    FROM approval_types
    WHERE id::text = $1
    FOR UPDATE
  `, typeID).Scan(&t.ID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	return t, notFound(err, "approval type")
}

func (s *Store) GetTypeByName(ctx context.Context, name string) (ApprovalType, error) {
	var t ApprovalType
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, description, created_at, updated_at
    FROM approval_types
    WHERE name = $1
  `, name).Scan(&t.ID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	return t, notFound(err, fmt.Sprintf("approval type %q", name))
}

func (s *Store) CreateType(ctx context.Context, t ApprovalType) (ApprovalType, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO approval_types (name, description)
    VALUES ($1,$2)
    RETURNING id, created_at, updated_at
  `, t.Name, t.Description).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if querier.IsUniqueViolation(err) {
		return ApprovalType{}, ierr.WithError(err).
			WithHintf("approval type %q already exists", t.Name).
			Mark(ierr.ErrConflict)
	}
	return t, err
}

func (s *Store) UpdateType(ctx context.Context, t ApprovalType) (ApprovalType, error) {
	err := s.DB.QueryRow(ctx, `
    UPDATE approval_types
    SET name = $2, description = $3, updated_at = now()
    WHERE id::text = $1
    RETURNING created_at, updated_at
  `, t.ID, t.Name, t.Description).Scan(&t.CreatedAt, &t.UpdatedAt)
	if querier.IsUniqueViolation(err) {
		return ApprovalType{}, ierr.WithError(err).
			WithHintf("approval type %q already exists", t.Name).
			Mark(ierr.ErrConflict)
	}
	return t, notFound(err, "approval type")
}

func (s *Store) DeleteType(ctx context.Context, typeID string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM approval_types WHERE id::text = $1`, typeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ierr.NewError("approval type not found").
			WithHint("approval type not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *Store) TypeInUse(ctx context.Context, typeID string) (bool, error) {
	var inUse bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (SELECT 1 FROM approval_flows WHERE approval_type_id::text = $1)
        OR EXISTS (SELECT 1 FROM approval_records WHERE approval_type_id::text = $1)
  `, typeID).Scan(&inUse)
	return inUse, err
}

func (s *Store) ListFlows(ctx context.Context, typeID string) ([]Flow, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+flowColumns+`
    FROM approval_flows
    WHERE approval_type_id::text = $1
    ORDER BY level
  `, typeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Flow{}
	for rows.Next() {
		f, err := scanFlow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) GetFlow(ctx context.Context, flowID string) (Flow, error) {
	f, err := scanFlow(s.DB.QueryRow(ctx, `
    SELECT `+flowColumns+`
    FROM approval_flows
    WHERE id::text = $1
  `, flowID))
	return f, notFound(err, "approval flow")
}

func (s *Store) CreateFlow(ctx context.Context, f Flow) (Flow, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO approval_flows (approval_type_id, level, approver_id, department_id, sub_department_id, role_id,
      is_proper_approver, notify_approver, is_active)
    VALUES ($1, $2, NULLIF($3,'')::uuid, NULLIF($4,'')::uuid, NULLIF($5,'')::uuid, NULLIF($6,'')::uuid, $7, $8, $9)
    RETURNING id, created_at, updated_at
  `, f.ApprovalTypeID, f.Level, f.ApproverID, f.DepartmentID, f.SubDepartmentID, f.RoleID,
		f.IsProperApprover, f.NotifyApprover, f.IsActive).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	return f, flowWriteErr(err, f.Level)
}

func (s *Store) UpdateFlow(ctx context.Context, f Flow) (Flow, error) {
	err := s.DB.QueryRow(ctx, `
    UPDATE approval_flows
    SET level = $2, approver_id = NULLIF($3,'')::uuid, department_id = NULLIF($4,'')::uuid,
      sub_department_id = NULLIF($5,'')::uuid, role_id = NULLIF($6,'')::uuid,
      is_proper_approver = $7, notify_approver = $8, is_active = $9, updated_at = now()
    WHERE id::text = $1
    RETURNING approval_type_id, created_at, updated_at
  `, f.ID, f.Level, f.ApproverID, f.DepartmentID, f.SubDepartmentID, f.RoleID,
		f.IsProperApprover, f.NotifyApprover, f.IsActive).Scan(&f.ApprovalTypeID, &f.CreatedAt, &f.UpdatedAt)
	if querier.IsNoRows(err) {
		return Flow{}, notFound(err, "approval flow")
	}
	return f, flowWriteErr(err, f.Level)
}

func flowWriteErr(err error, level int) error {
	switch {
	case err == nil:
		return nil
	case querier.IsUniqueViolation(err):
		return ierr.WithError(err).
			WithHintf("level %d is already configured for this approval type", level).
			Mark(ierr.ErrConflict)
	case querier.IsForeignKeyViolation(err):
		return ierr.WithError(err).
			WithHint("approver, department, sub-department or role does not exist").
			Mark(ierr.ErrValidation)
	}
	return err
}

func (s *Store) GetRecord(ctx context.Context, recordID string) (Record, error) {
	r, err := scanRecord(s.DB.QueryRow(ctx, `
    SELECT `+recordColumns+`
    FROM approval_records
    WHERE id::text = $1
  `, recordID))
	return r, notFound(err, "approval record")
}

func (s *Store) GetRecordForUpdate(ctx context.Context, recordID string) (Record, error) {
	r, err := scanRecord(s.DB.QueryRow(ctx, `
    SELECT `+recordColumns+`
    FROM approval_records
    WHERE id::text = $1
    FOR UPDATE
  `, recordID))
	return r, notFound(err, "approval record")
}

func (s *Store) ListTargetRecords(ctx context.Context, target Target) ([]Record, error) {
	return collectRecords(ctx, s.DB, `
    SELECT `+recordColumns+`
    FROM approval_records
    WHERE target_kind = $1 AND target_id = $2
    ORDER BY created_at, level
  `, target.Kind, target.ID)
}

func (s *Store) ListAssigned(ctx context.Context, approverID string, filter ListFilter) ([]Record, int, error) {
	return s.listBy(ctx, "approver_id", approverID, filter)
}

func (s *Store) ListCreated(ctx context.Context, creatorID string, filter ListFilter) ([]Record, int, error) {
	return s.listBy(ctx, "creator_id", creatorID, filter)
}

// listBy pages records on column, which is never caller input.
func (s *Store) listBy(ctx context.Context, column, employeeID string, filter ListFilter) ([]Record, int, error) {
	where := fmt.Sprintf("WHERE %s::text = $1 AND ($2 = '' OR status = $2)", column)

	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM approval_records `+where, employeeID, filter.Status).Scan(&total); err != nil {
		return nil, 0, err
	}

	records, err := collectRecords(ctx, s.DB, `
    SELECT `+recordColumns+`
    FROM approval_records
    `+where+`
    ORDER BY created_at DESC
    LIMIT $3 OFFSET $4
  `, employeeID, filter.Status, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (s *Store) CreateAttachment(ctx context.Context, a Attachment) (Attachment, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO approval_attachments (record_id, file_name, content_type, size_bytes, data, uploaded_by)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id, uploaded_at
  `, a.RecordID, a.FileName, a.ContentType, a.SizeBytes, a.Data, a.UploadedBy).Scan(&a.ID, &a.UploadedAt)
	return a, err
}

func (s *Store) ListAttachments(ctx context.Context, recordID string) ([]Attachment, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, record_id, file_name, content_type, size_bytes, uploaded_by, uploaded_at
    FROM approval_attachments
    WHERE record_id::text = $1
    ORDER BY uploaded_at
  `, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Attachment{}
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.RecordID, &a.FileName, &a.ContentType, &a.SizeBytes, &a.UploadedBy, &a.UploadedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// LockWorkflow takes a transaction-scoped advisory lock keyed on the
// workflow identity.
func (s *Store) LockWorkflow(ctx context.Context, typeID string, target Target) error {
	_, err := s.DB.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, typeID+"|"+target.Kind+"|"+target.ID)
	return err
}

func (s *Store) ActiveFlowsAtLevel(ctx context.Context, typeID string, level int) ([]Flow, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+flowColumns+`
    FROM approval_flows
    WHERE approval_type_id::text = $1 AND level = $2 AND is_active
    ORDER BY created_at
  `, typeID, level)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Flow{}
	for rows.Next() {
		f, err := scanFlow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) NextActiveLevel(ctx context.Context, typeID string, after int) (int, bool, error) {
	var level *int
	if err := s.DB.QueryRow(ctx, `
    SELECT MIN(level)
    FROM approval_flows
    WHERE approval_type_id::text = $1 AND level > $2 AND is_active
  `, typeID, after).Scan(&level); err != nil {
		return 0, false, err
	}
	if level == nil {
		return 0, false, nil
	}
	return *level, true, nil
}

func (s *Store) TargetTypeIDs(ctx context.Context, target Target) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT DISTINCT approval_type_id::text
    FROM approval_records
    WHERE target_kind = $1 AND target_id = $2
  `, target.Kind, target.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) CountRecords(ctx context.Context, typeID string, target Target) (int, error) {
	var n int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(*)
    FROM approval_records
    WHERE approval_type_id::text = $1 AND target_kind = $2 AND target_id = $3
  `, typeID, target.Kind, target.ID).Scan(&n)
	return n, err
}

func (s *Store) HasRejection(ctx context.Context, typeID string, target Target) (bool, error) {
	var rejected bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM approval_records
      WHERE approval_type_id::text = $1 AND target_kind = $2 AND target_id = $3 AND status = 'rejected'
    )
  `, typeID, target.Kind, target.ID).Scan(&rejected)
	return rejected, err
}

func (s *Store) CountPendingAtLevel(ctx context.Context, typeID string, target Target, level int) (int, error) {
	var n int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(*)
    FROM approval_records
    WHERE approval_type_id::text = $1 AND target_kind = $2 AND target_id = $3 AND level = $4 AND status = 'pending'
  `, typeID, target.Kind, target.ID, level).Scan(&n)
	return n, err
}

func (s *Store) InsertRecord(ctx context.Context, rec Record) (Record, bool, error) {
	out, err := scanRecord(s.DB.QueryRow(ctx, `
    INSERT INTO approval_records (approval_type_id, creator_id, approver_id, target_kind, target_id, level, status,
      is_proper_approver, was_notified)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    ON CONFLICT (approval_type_id, target_kind, target_id, approver_id, level) DO NOTHING
    RETURNING `+recordColumns,
		rec.ApprovalTypeID, rec.CreatorID, rec.ApproverID, rec.Target.Kind, rec.Target.ID, rec.Level, rec.Status,
		rec.IsProperApprover, rec.WasNotified))
	if querier.IsNoRows(err) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return out, true, nil
}

func (s *Store) SetDecision(ctx context.Context, recordID, status, comment string, at time.Time) (Record, error) {
	r, err := scanRecord(s.DB.QueryRow(ctx, `
    UPDATE approval_records
    SET status = $2, comment = $3, approved_at = $4, updated_at = $4
    WHERE id::text = $1
    RETURNING `+recordColumns,
		recordID, status, comment, at))
	return r, notFound(err, "approval record")
}

func (s *Store) CancelPendingAbove(ctx context.Context, typeID string, target Target, level int, comment string, at time.Time) ([]Record, error) {
	return collectRecords(ctx, s.DB, `
    UPDATE approval_records
    SET status = 'cancelled', comment = $5, updated_at = $6
    WHERE approval_type_id::text = $1 AND target_kind = $2 AND target_id = $3 AND level > $4 AND status = 'pending'
    RETURNING `+recordColumns,
		typeID, target.Kind, target.ID, level, comment, at)
}

func (s *Store) CancelPendingSiblings(ctx context.Context, typeID string, target Target, level int, exceptID, comment string, at time.Time) ([]Record, error) {
	return collectRecords(ctx, s.DB, `
    UPDATE approval_records
    SET status = 'cancelled', comment = $6, updated_at = $7
    WHERE approval_type_id::text = $1 AND target_kind = $2 AND target_id = $3 AND level = $4
      AND id::text <> $5 AND status = 'pending'
    RETURNING `+recordColumns,
		typeID, target.Kind, target.ID, level, exceptID, comment, at)
}

func (s *Store) CancelPendingForTarget(ctx context.Context, target Target, comment string, at time.Time) ([]Record, error) {
	return collectRecords(ctx, s.DB, `
    UPDATE approval_records
    SET status = 'cancelled', comment = $3, updated_at = $4
    WHERE target_kind = $1 AND target_id = $2 AND status = 'pending'
    RETURNING `+recordColumns,
		target.Kind, target.ID, comment, at)
}

func (s *Store) DeleteTargetRecords(ctx context.Context, target Target) (int, error) {
	tag, err := s.DB.Exec(ctx, `
    DELETE FROM approval_records
    WHERE target_kind = $1 AND target_id = $2
  `, target.Kind, target.ID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
