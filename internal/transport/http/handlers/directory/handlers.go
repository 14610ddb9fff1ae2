package directoryhandler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/koshtony/beezy-beta/internal/domain/auth"
	"github.com/koshtony/beezy-beta/internal/domain/directory"
	"github.com/koshtony/beezy-beta/internal/transport/http/api"
	"github.com/koshtony/beezy-beta/internal/transport/http/middleware"
	"github.com/koshtony/beezy-beta/internal/transport/http/shared"
)

type Service interface {
	ListDepartments(ctx context.Context) ([]directory.Department, error)
	CreateDepartment(ctx context.Context, name string) (directory.Department, error)
	CreateSubDepartment(ctx context.Context, departmentID, name string) (directory.SubDepartment, error)
	ListRoles(ctx context.Context) ([]directory.Role, error)
	CreateRole(ctx context.Context, name string, hierarchyLevel int) (directory.Role, error)
	ListEmployees(ctx context.Context, limit, offset int) ([]directory.Employee, int, error)
	GetEmployee(ctx context.Context, employeeID string) (directory.Employee, error)
	CreateEmployee(ctx context.Context, emp directory.Employee) (directory.Employee, error)
}

type Handler struct {
	Service Service
	Perms   middleware.PermissionStore
}

func NewHandler(service Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermDirectoryRead, h.Perms)
	write := middleware.RequirePermission(auth.PermDirectoryWrite, h.Perms)

	r.With(read).Get("/me", h.handleMe)
	r.Route("/employees", func(r chi.Router) {
		r.With(read).Get("/", h.handleListEmployees)
		r.With(write).Post("/", h.handleCreateEmployee)
		r.With(read).Get("/{employeeID}", h.handleGetEmployee)
	})
	r.Route("/departments", func(r chi.Router) {
		r.With(read).Get("/", h.handleListDepartments)
		r.With(write).Post("/", h.handleCreateDepartment)
		r.With(write).Post("/{departmentID}/sub-departments", h.handleCreateSubDepartment)
	})
	r.Route("/roles", func(r chi.Router) {
		r.With(read).Get("/", h.handleListRoles)
		r.With(write).Post("/", h.handleCreateRole)
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	emp, err := h.Service.GetEmployee(r.Context(), user.EmployeeID)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, map[string]any{
		"user": map[string]string{
			"id":   user.UserID,
			"role": user.RoleName,
		},
		"employee": emp,
	}, requestID)
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, 50, 200)
	items, total, err := h.Service.ListEmployees(r.Context(), page.Limit, page.Offset)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	shared.SetTotal(w, total)
	api.Success(w, items, requestID)
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	emp, err := h.Service.GetEmployee(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, emp, requestID)
}

type employeeRequest struct {
	EmployeeCode    string  `json:"employeeCode" validate:"required,max=64"`
	FullName        string  `json:"fullName" validate:"required,max=200"`
	Email           string  `json:"email" validate:"required,email"`
	DepartmentID    *string `json:"departmentId" validate:"omitempty,uuid"`
	SubDepartmentID *string `json:"subDepartmentId" validate:"omitempty,uuid"`
	RoleID          *string `json:"roleId" validate:"omitempty,uuid"`
	JobStatus       string  `json:"jobStatus" validate:"omitempty,oneof=active inactive"`
	DateOfJoining   string  `json:"dateOfJoining"`
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload employeeRequest
	if !shared.Decode(w, r, &payload, requestID) {
		return
	}

	var joined *time.Time
	if payload.DateOfJoining != "" {
		parsed, err := shared.ParseDate(payload.DateOfJoining)
		if err != nil {
			shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "dateOfJoining", Reason: "must be a valid date in YYYY-MM-DD format"}})
			return
		}
		joined = &parsed
	}

	emp, err := h.Service.CreateEmployee(r.Context(), directory.Employee{
		EmployeeCode:    payload.EmployeeCode,
		FullName:        payload.FullName,
		Email:           payload.Email,
		DepartmentID:    payload.DepartmentID,
		SubDepartmentID: payload.SubDepartmentID,
		RoleID:          payload.RoleID,
		JobStatus:       payload.JobStatus,
		DateOfJoining:   joined,
	})
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Created(w, emp, requestID)
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	items, err := h.Service.ListDepartments(r.Context())
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, items, requestID)
}

type nameRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload nameRequest
	if !shared.Decode(w, r, &payload, requestID) {
		return
	}
	dep, err := h.Service.CreateDepartment(r.Context(), payload.Name)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Created(w, dep, requestID)
}

func (h *Handler) handleCreateSubDepartment(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload nameRequest
	if !shared.Decode(w, r, &payload, requestID) {
		return
	}
	sub, err := h.Service.CreateSubDepartment(r.Context(), chi.URLParam(r, "departmentID"), payload.Name)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Created(w, sub, requestID)
}

func (h *Handler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	items, err := h.Service.ListRoles(r.Context())
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, items, requestID)
}

type roleRequest struct {
	Name           string `json:"name" validate:"required,max=120"`
	HierarchyLevel int    `json:"hierarchyLevel" validate:"gte=0,lte=100"`
}

func (h *Handler) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload roleRequest
	if !shared.Decode(w, r, &payload, requestID) {
		return
	}
	role, err := h.Service.CreateRole(r.Context(), payload.Name, payload.HierarchyLevel)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Created(w, role, requestID)
}
