package payrollhandler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/koshtony/beezy-beta/internal/domain/auth"
	"github.com/koshtony/beezy-beta/internal/domain/payroll"
	"github.com/koshtony/beezy-beta/internal/transport/http/api"
	"github.com/koshtony/beezy-beta/internal/transport/http/middleware"
	"github.com/koshtony/beezy-beta/internal/transport/http/shared"
)

type Service interface {
	ListPeriods(ctx context.Context) ([]payroll.Period, error)
	CreatePeriod(ctx context.Context, month, year int) (payroll.Period, error)
	LockPeriod(ctx context.Context, periodID string) (payroll.Period, error)
	ListPayrolls(ctx context.Context, periodID string) ([]payroll.Payroll, error)
	GetPayroll(ctx context.Context, payrollID string) (payroll.Payroll, error)
	Compute(ctx context.Context, periodID string, in payroll.ComputeInput) (payroll.Payroll, error)
	Submit(ctx context.Context, actorID, payrollID string) (payroll.Payroll, error)
	Payslip(ctx context.Context, payrollID string) (payroll.Payroll, []byte, error)
	ListOvertime(ctx context.Context, periodID, employeeID string) ([]payroll.Overtime, error)
	GetOvertime(ctx context.Context, overtimeID string) (payroll.Overtime, error)
	RecordOvertime(ctx context.Context, in payroll.OvertimeInput) (payroll.Overtime, error)
	SubmitOvertime(ctx context.Context, actorID, overtimeID string) (payroll.Overtime, error)
}

type Handler struct {
	Service Service
	Perms   middleware.PermissionStore
}

func NewHandler(service Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermPayrollRead, h.Perms)
	run := middleware.RequirePermission(auth.PermPayrollRun, h.Perms)
	overtime := middleware.RequirePermission(auth.PermOvertimeWrite, h.Perms)

	r.Route("/payroll", func(r chi.Router) {
		r.With(read).Get("/periods", h.handleListPeriods)
		r.With(run).Post("/periods", h.handleCreatePeriod)
		r.With(run).Post("/periods/{periodID}/lock", h.handleLockPeriod)
		r.With(run).Get("/periods/{periodID}/payrolls", h.handleListPayrolls)
		r.With(run).Post("/periods/{periodID}/payrolls", h.handleCompute)

		r.With(read).Get("/payrolls/{payrollID}", h.handleGetPayroll)
		r.With(run).Post("/payrolls/{payrollID}/submit", h.handleSubmit)
		r.With(read).Get("/payrolls/{payrollID}/payslip.pdf", h.handlePayslip)

		r.With(read).Get("/overtime", h.handleListOvertime)
		r.With(overtime).Post("/overtime", h.handleRecordOvertime)
		r.With(overtime).Post("/overtime/{overtimeID}/submit", h.handleSubmitOvertime)
	})
}

func (h *Handler) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	items, err := h.Service.ListPeriods(r.Context())
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, items, requestID)
}

type periodRequest struct {
	Month int `json:"month" validate:"required,min=1,max=12"`
	Year  int `json:"year" validate:"required,min=2000"`
}

func (h *Handler) handleCreatePeriod(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload periodRequest
	if !shared.Decode(w, r, &payload, requestID) {
		return
	}
	period, err := h.Service.CreatePeriod(r.Context(), payload.Month, payload.Year)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Created(w, period, requestID)
}

func (h *Handler) handleLockPeriod(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	period, err := h.Service.LockPeriod(r.Context(), chi.URLParam(r, "periodID"))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, period, requestID)
}

func (h *Handler) handleListPayrolls(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	items, err := h.Service.ListPayrolls(r.Context(), chi.URLParam(r, "periodID"))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, items, requestID)
}

type computeRequest struct {
	EmployeeID      string          `json:"employeeId" validate:"required,uuid"`
	BasicSalary     decimal.Decimal `json:"basicSalary"`
	TotalAllowances decimal.Decimal `json:"totalAllowances"`
	TotalDeductions decimal.Decimal `json:"totalDeductions"`
}

func (h *Handler) handleCompute(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload computeRequest
	if !shared.Decode(w, r, &payload, requestID) {
		return
	}
	p, err := h.Service.Compute(r.Context(), chi.URLParam(r, "periodID"), payroll.ComputeInput{
		EmployeeID:      payload.EmployeeID,
		BasicSalary:     payload.BasicSalary,
		TotalAllowances: payload.TotalAllowances,
		TotalDeductions: payload.TotalDeductions,
	})
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, p, requestID)
}

// ownPayroll loads a payroll the caller may see: their own, or any for HR.
func (h *Handler) ownPayroll(w http.ResponseWriter, r *http.Request) (payroll.Payroll, bool) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	p, err := h.Service.GetPayroll(r.Context(), chi.URLParam(r, "payrollID"))
	if err != nil {
		api.FailError(w, err, requestID)
		return payroll.Payroll{}, false
	}
	if p.EmployeeID != user.EmployeeID && !user.IsHR() {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to view this payroll", requestID)
		return payroll.Payroll{}, false
	}
	return p, true
}

func (h *Handler) handleGetPayroll(w http.ResponseWriter, r *http.Request) {
	p, ok := h.ownPayroll(w, r)
	if !ok {
		return
	}
	api.Success(w, p, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	p, err := h.Service.Submit(r.Context(), user.EmployeeID, chi.URLParam(r, "payrollID"))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, p, requestID)
}

func (h *Handler) handlePayslip(w http.ResponseWriter, r *http.Request) {
	p, ok := h.ownPayroll(w, r)
	if !ok {
		return
	}
	_, out, err := h.Service.Payslip(r.Context(), p.ID)
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	shared.SetDownload(w, "application/pdf", "payslip-"+p.ID+".pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (h *Handler) handleListOvertime(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	employeeID := r.URL.Query().Get("employeeId")
	if !user.IsHR() {
		if employeeID != "" && employeeID != user.EmployeeID {
			api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to view this employee's overtime", requestID)
			return
		}
		employeeID = user.EmployeeID
	}
	items, err := h.Service.ListOvertime(r.Context(), r.URL.Query().Get("periodId"), employeeID)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, items, requestID)
}

type overtimeRequest struct {
	EmployeeID  string          `json:"employeeId" validate:"omitempty,uuid"`
	PeriodID    string          `json:"periodId" validate:"required,uuid"`
	HoursWorked decimal.Decimal `json:"hoursWorked"`
}

// handleRecordOvertime records hours for the caller. HR may record for any
// employee.
func (h *Handler) handleRecordOvertime(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload overtimeRequest
	if !shared.Decode(w, r, &payload, requestID) {
		return
	}
	employeeID := payload.EmployeeID
	if employeeID == "" {
		employeeID = user.EmployeeID
	}
	if employeeID != user.EmployeeID && !user.IsHR() {
		api.Fail(w, http.StatusForbidden, "forbidden", "overtime can only be recorded for yourself", requestID)
		return
	}
	o, err := h.Service.RecordOvertime(r.Context(), payroll.OvertimeInput{
		EmployeeID:  employeeID,
		PeriodID:    payload.PeriodID,
		HoursWorked: payload.HoursWorked,
	})
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Created(w, o, requestID)
}

func (h *Handler) handleSubmitOvertime(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	overtimeID := chi.URLParam(r, "overtimeID")
	o, err := h.Service.GetOvertime(r.Context(), overtimeID)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	if o.EmployeeID != user.EmployeeID && !user.IsHR() {
		api.Fail(w, http.StatusForbidden, "forbidden", "only the employee or HR can submit this overtime", requestID)
		return
	}
	submitted, err := h.Service.SubmitOvertime(r.Context(), user.EmployeeID, overtimeID)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, submitted, requestID)
}
