package approvalshandler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/koshtony/beezy-beta/internal/domain/approvals"
	"github.com/koshtony/beezy-beta/internal/domain/auth"
	ierr "github.com/koshtony/beezy-beta/internal/errors"
	"github.com/koshtony/beezy-beta/internal/platform/pdf"
	"github.com/koshtony/beezy-beta/internal/transport/http/api"
	"github.com/koshtony/beezy-beta/internal/transport/http/middleware"
	"github.com/koshtony/beezy-beta/internal/transport/http/shared"
)

// Engine is the workflow surface the approval endpoints use.
type Engine interface {
	Approve(ctx context.Context, recordID, actorID, comment string) (*approvals.Result, error)
	Reject(ctx context.Context, recordID, actorID, comment string) (*approvals.Result, error)
	Get(ctx context.Context, recordID string) (approvals.Record, error)
	Assigned(ctx context.Context, approverID string, filter approvals.ListFilter) ([]approvals.Record, int, error)
	Created(ctx context.Context, creatorID string, filter approvals.ListFilter) ([]approvals.Record, int, error)
	Progress(ctx context.Context, target approvals.Target) (approvals.Progress, error)
	AddAttachment(ctx context.Context, recordID, uploaderID string, privileged bool, fileName string, data []byte, maxBytes int64) (approvals.Attachment, error)
	Attachments(ctx context.Context, recordID string) ([]approvals.Attachment, error)
}

type Handler struct {
	Engine             Engine
	Registry           *approvals.Registry
	Perms              middleware.PermissionStore
	Idempotency        middleware.IdempotencyStore
	DecisionLimit      func(http.Handler) http.Handler
	MaxAttachmentBytes int64
}

func NewHandler(engine Engine, registry *approvals.Registry, perms middleware.PermissionStore) *Handler {
	return &Handler{Engine: engine, Registry: registry, Perms: perms, MaxAttachmentBytes: 5 << 20}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	decide := []func(http.Handler) http.Handler{middleware.RequirePermission(auth.PermApprovalsDecide, h.Perms)}
	if h.DecisionLimit != nil {
		decide = append(decide, h.DecisionLimit)
	}
	decide = append(decide, middleware.Idempotency(h.Idempotency))
	read := middleware.RequirePermission(auth.PermApprovalsRead, h.Perms)

	r.Route("/approvals", func(r chi.Router) {
		r.With(read).Get("/", h.handleAssigned)
		r.With(read).Get("/mine", h.handleCreated)
		r.With(read).Get("/progress/{targetKind}/{targetID}", h.handleProgress)
		r.With(read).Get("/progress/{targetKind}/{targetID}/export.pdf", h.handleProgressPDF)
		r.With(read).Get("/{recordID}", h.handleGet)
		r.With(decide...).Post("/{recordID}/approve", h.handleApprove)
		r.With(decide...).Post("/{recordID}/reject", h.handleReject)
		r.With(read).Get("/{recordID}/attachments", h.handleListAttachments)
		r.With(read).Post("/{recordID}/attachments", h.handleUploadAttachment)
	})
	h.registerAdminRoutes(r)
}

type decisionRequest struct {
	Comment string `json:"comment" validate:"max=2000"`
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Engine.Approve)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Engine.Reject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, recordID, actorID, comment string) (*approvals.Result, error)) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	var payload decisionRequest
	if !shared.Decode(w, r, &payload, requestID) {
		return
	}

	res, err := action(r.Context(), chi.URLParam(r, "recordID"), user.EmployeeID, strings.TrimSpace(payload.Comment))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, res, requestID)
}

func listFilter(r *http.Request) approvals.ListFilter {
	page := shared.ParsePagination(r, 50, 200)
	return approvals.ListFilter{Status: r.URL.Query().Get("status"), Limit: page.Limit, Offset: page.Offset}
}

func (h *Handler) handleAssigned(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.Engine.Assigned)
}

func (h *Handler) handleCreated(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.Engine.Created)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, query func(ctx context.Context, employeeID string, filter approvals.ListFilter) ([]approvals.Record, int, error)) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}
	records, total, err := query(r.Context(), user.EmployeeID, listFilter(r))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	shared.SetTotal(w, total)
	api.Success(w, records, requestID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}
	rec, err := h.Engine.Get(r.Context(), chi.URLParam(r, "recordID"))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	if !user.IsHR() && !approvals.CanView(rec, user.EmployeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "you are not part of this approval", requestID)
		return
	}
	api.Success(w, rec, requestID)
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request) (approvals.Progress, bool) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return approvals.Progress{}, false
	}
	target := approvals.Target{Kind: chi.URLParam(r, "targetKind"), ID: chi.URLParam(r, "targetID")}
	progress, err := h.Engine.Progress(r.Context(), target)
	if err != nil {
		api.FailError(w, err, requestID)
		return approvals.Progress{}, false
	}
	participant := lo.SomeBy(progress.Records, func(rec approvals.Record) bool {
		return approvals.CanView(rec, user.EmployeeID)
	})
	if !user.IsHR() && !participant {
		api.Fail(w, http.StatusForbidden, "forbidden", "you are not part of this approval", requestID)
		return approvals.Progress{}, false
	}
	return progress, true
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	progress, ok := h.progress(w, r)
	if !ok {
		return
	}
	api.Success(w, progress, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleProgressPDF(w http.ResponseWriter, r *http.Request) {
	progress, ok := h.progress(w, r)
	if !ok {
		return
	}
	out, err := pdf.Render(approvals.ProgressDocument(progress))
	if err != nil {
		api.FailError(w, ierr.Wrap(err, "render approval trail"), middleware.GetRequestID(r.Context()))
		return
	}
	shared.SetDownload(w, "application/pdf", "approval-"+progress.Target.Kind+"-"+progress.Target.ID+".pdf")
	_, _ = w.Write(out)
}

func (h *Handler) handleListAttachments(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}
	recordID := chi.URLParam(r, "recordID")
	rec, err := h.Engine.Get(r.Context(), recordID)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	if !user.IsHR() && !approvals.CanView(rec, user.EmployeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "you are not part of this approval", requestID)
		return
	}
	items, err := h.Engine.Attachments(r.Context(), recordID)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, items, requestID)
}

// handleUploadAttachment takes a multipart form with a single "file" part.
func (h *Handler) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxAttachmentBytes+64<<10)
	file, header, err := r.FormFile("file")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "a multipart file field named \"file\" is required", requestID)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.MaxAttachmentBytes+1))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "could not read uploaded file", requestID)
		return
	}

	att, err := h.Engine.AddAttachment(r.Context(), chi.URLParam(r, "recordID"), user.EmployeeID, user.IsHR(), header.Filename, data, h.MaxAttachmentBytes)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Created(w, att, requestID)
}
