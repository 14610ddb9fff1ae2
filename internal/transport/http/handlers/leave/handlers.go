package leavehandler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/koshtony/beezy-beta/internal/domain/auth"
	"github.com/koshtony/beezy-beta/internal/domain/leave"
	"github.com/koshtony/beezy-beta/internal/transport/http/api"
	"github.com/koshtony/beezy-beta/internal/transport/http/middleware"
	"github.com/koshtony/beezy-beta/internal/transport/http/shared"
)

type Service interface {
	ListTypes(ctx context.Context) ([]leave.LeaveType, error)
	CreateType(ctx context.Context, t leave.LeaveType) (leave.LeaveType, error)
	ListBalances(ctx context.Context, employeeID string, year int) ([]leave.Balance, error)
	ListRequests(ctx context.Context, employeeID string, limit, offset int) ([]leave.Request, int, error)
	GetRequest(ctx context.Context, requestID string) (leave.Request, error)
	Submit(ctx context.Context, employeeID string, in leave.SubmitInput) (leave.Request, error)
	Cancel(ctx context.Context, employeeID, requestID string) (leave.Request, error)
}

type Handler struct {
	Service Service
	Perms   middleware.PermissionStore
	now     func() time.Time
}

func NewHandler(service Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms, now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermLeaveRead, h.Perms)
	write := middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)

	r.Route("/leave", func(r chi.Router) {
		r.With(read).Get("/types", h.handleListTypes)
		r.With(middleware.RequirePermission(auth.PermLeaveConfig, h.Perms)).Post("/types", h.handleCreateType)
		r.With(read).Get("/balances", h.handleListBalances)
		r.With(read).Get("/requests", h.handleListRequests)
		r.With(write).Post("/requests", h.handleSubmit)
		r.With(read).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(write).Post("/requests/{requestID}/cancel", h.handleCancel)
	})
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	items, err := h.Service.ListTypes(r.Context())
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, items, requestID)
}

type leaveTypeRequest struct {
	Name        string          `json:"name" validate:"required,max=120"`
	Description string          `json:"description" validate:"max=500"`
	DaysPerYear decimal.Decimal `json:"daysPerYear"`
}

func (h *Handler) handleCreateType(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload leaveTypeRequest
	if !shared.Decode(w, r, &payload, requestID) {
		return
	}
	created, err := h.Service.CreateType(r.Context(), leave.LeaveType{
		Name:        payload.Name,
		Description: payload.Description,
		DaysPerYear: payload.DaysPerYear,
	})
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Created(w, created, requestID)
}

// subject resolves whose records are read. HR may look at any employee
// through ?employeeId=, everyone else only at themselves.
func subject(r *http.Request, user auth.UserContext) (string, bool) {
	requested := r.URL.Query().Get("employeeId")
	if requested == "" || requested == user.EmployeeID {
		return user.EmployeeID, true
	}
	return requested, user.IsHR()
}

func (h *Handler) handleListBalances(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	employeeID, ok := subject(r, user)
	if !ok {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to view this employee's leave", requestID)
		return
	}

	var v shared.Validator
	year := shared.QueryInt(r, &v, "year", h.now().Year())
	if v.Reject(w, requestID) {
		return
	}

	items, err := h.Service.ListBalances(r.Context(), employeeID, year)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, items, requestID)
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	employeeID, ok := subject(r, user)
	if !ok {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to view this employee's leave", requestID)
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	items, total, err := h.Service.ListRequests(r.Context(), employeeID, page.Limit, page.Offset)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	shared.SetTotal(w, total)
	api.Success(w, items, requestID)
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	req, err := h.Service.GetRequest(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	if req.EmployeeID != user.EmployeeID && !user.IsHR() {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to view this leave request", requestID)
		return
	}
	api.Success(w, req, requestID)
}

type submitRequest struct {
	LeaveTypeID string `json:"leaveTypeId" validate:"required,uuid"`
	StartDate   string `json:"startDate" validate:"required"`
	EndDate     string `json:"endDate" validate:"required"`
	DayType     string `json:"dayType" validate:"omitempty,oneof=full half"`
	Reason      string `json:"reason" validate:"max=1000"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload submitRequest
	if !shared.Decode(w, r, &payload, requestID) {
		return
	}

	var v shared.Validator
	start, err := shared.ParseDate(payload.StartDate)
	if err != nil {
		v.Add("startDate", "must be a valid date in YYYY-MM-DD format")
	}
	end, err := shared.ParseDate(payload.EndDate)
	if err != nil {
		v.Add("endDate", "must be a valid date in YYYY-MM-DD format")
	}
	if v.Reject(w, requestID) {
		return
	}

	created, err := h.Service.Submit(r.Context(), user.EmployeeID, leave.SubmitInput{
		LeaveTypeID: payload.LeaveTypeID,
		StartDate:   start,
		EndDate:     end,
		DayType:     payload.DayType,
		Reason:      payload.Reason,
	})
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Created(w, created, requestID)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	cancelled, err := h.Service.Cancel(r.Context(), user.EmployeeID, chi.URLParam(r, "requestID"))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, cancelled, requestID)
}
