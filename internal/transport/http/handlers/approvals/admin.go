package approvalshandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/koshtony/beezy-beta/internal/domain/approvals"
	"github.com/koshtony/beezy-beta/internal/domain/auth"
	"github.com/koshtony/beezy-beta/internal/transport/http/api"
	"github.com/koshtony/beezy-beta/internal/transport/http/middleware"
	"github.com/koshtony/beezy-beta/internal/transport/http/shared"
)

func (h *Handler) registerAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermApprovalsConfig, h.Perms))
		r.Get("/approval-types", h.handleListTypes)
		r.Post("/approval-types", h.handleCreateType)
		r.Put("/approval-types/{typeID}", h.handleUpdateType)
		r.Delete("/approval-types/{typeID}", h.handleDeleteType)
		r.Get("/approval-types/{typeID}/flows", h.handleListFlows)
		r.Post("/approval-types/{typeID}/flows", h.handleCreateFlow)
		r.Put("/approval-flows/{flowID}", h.handleUpdateFlow)
	})
}

type typeRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type flowRequest struct {
	Level            int    `json:"level" validate:"gt=0"`
	ApproverID       string `json:"approverId" validate:"omitempty,uuid"`
	DepartmentID     string `json:"departmentId" validate:"omitempty,uuid"`
	SubDepartmentID  string `json:"subDepartmentId" validate:"omitempty,uuid"`
	RoleID           string `json:"roleId" validate:"omitempty,uuid"`
	IsProperApprover *bool  `json:"isProperApprover"`
	NotifyApprover   *bool  `json:"notifyApprover"`
	IsActive         *bool  `json:"isActive"`
}

func orTrue(v *bool) bool {
	return v == nil || *v
}

func (p flowRequest) flow() approvals.Flow {
	return approvals.Flow{
		Level:            p.Level,
		ApproverID:       p.ApproverID,
		DepartmentID:     p.DepartmentID,
		SubDepartmentID:  p.SubDepartmentID,
		RoleID:           p.RoleID,
		IsProperApprover: orTrue(p.IsProperApprover),
		NotifyApprover:   orTrue(p.NotifyApprover),
		IsActive:         orTrue(p.IsActive),
	}
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	types, err := h.Registry.ListTypes(r.Context())
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, types, requestID)
}

func (h *Handler) handleCreateType(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload typeRequest
	if !shared.Decode(w, r, &payload, requestID) {
		return
	}
	created, err := h.Registry.CreateType(r.Context(), user.EmployeeID, payload.Name, payload.Description)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Created(w, created, requestID)
}

func (h *Handler) handleUpdateType(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload typeRequest
	if !shared.Decode(w, r, &payload, requestID) {
		return
	}
	updated, err := h.Registry.UpdateType(r.Context(), user.EmployeeID, approvals.ApprovalType{
		ID:          chi.URLParam(r, "typeID"),
		Name:        payload.Name,
		Description: payload.Description,
	})
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, updated, requestID)
}

func (h *Handler) handleDeleteType(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	if err := h.Registry.DeleteType(r.Context(), user.EmployeeID, chi.URLParam(r, "typeID")); err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, requestID)
}

func (h *Handler) handleListFlows(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	flows, err := h.Registry.ListFlows(r.Context(), chi.URLParam(r, "typeID"))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, flows, requestID)
}

func (h *Handler) handleCreateFlow(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload flowRequest
	if !shared.Decode(w, r, &payload, requestID) {
		return
	}
	flow := payload.flow()
	flow.ApprovalTypeID = chi.URLParam(r, "typeID")
	created, err := h.Registry.CreateFlow(r.Context(), user.EmployeeID, flow)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Created(w, created, requestID)
}

func (h *Handler) handleUpdateFlow(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload flowRequest
	if !shared.Decode(w, r, &payload, requestID) {
		return
	}
	flow := payload.flow()
	flow.ID = chi.URLParam(r, "flowID")
	updated, err := h.Registry.UpdateFlow(r.Context(), user.EmployeeID, flow)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, updated, requestID)
}
