package attendancehandler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/koshtony/beezy-beta/internal/domain/attendance"
	"github.com/koshtony/beezy-beta/internal/domain/auth"
	"github.com/koshtony/beezy-beta/internal/requestctx"
	"github.com/koshtony/beezy-beta/internal/transport/http/api"
	"github.com/koshtony/beezy-beta/internal/transport/http/middleware"
	"github.com/koshtony/beezy-beta/internal/transport/http/shared"
)

type Service interface {
	CheckIn(ctx context.Context, employeeID, deviceIP string) (attendance.Record, error)
	CheckOut(ctx context.Context, employeeID string) (attendance.Record, error)
	History(ctx context.Context, employeeID string, from, to time.Time, limit, offset int) ([]attendance.Record, int, error)
}

type Handler struct {
	Service Service
	Perms   middleware.PermissionStore
}

func NewHandler(service Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	record := middleware.RequirePermission(auth.PermAttendanceRecord, h.Perms)
	r.Route("/attendance", func(r chi.Router) {
		r.With(record).Get("/", h.handleHistory)
		r.With(record).Post("/check-in", h.handleCheckIn)
		r.With(record).Post("/check-out", h.handleCheckOut)
	})
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	rec, err := h.Service.CheckIn(r.Context(), user.EmployeeID, requestctx.ClientIP(r.Context()))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Created(w, rec, requestID)
}

func (h *Handler) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	rec, err := h.Service.CheckOut(r.Context(), user.EmployeeID)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, rec, requestID)
}

// handleHistory lists the caller's records. HR may pass ?employeeId= to read
// another employee's history.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	employeeID := user.EmployeeID
	if requested := r.URL.Query().Get("employeeId"); requested != "" && requested != user.EmployeeID {
		if !user.IsHR() {
			api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to view this employee's attendance", requestID)
			return
		}
		employeeID = requested
	}

	v := shared.NewValidator()
	from := shared.QueryDate(r, v, "from")
	to := shared.QueryDate(r, v, "to")
	if v.Reject(w, requestID) {
		return
	}

	page := shared.ParsePagination(r, 31, 366)
	items, total, err := h.Service.History(r.Context(), employeeID, from, to, page.Limit, page.Offset)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	shared.SetTotal(w, total)
	api.Success(w, items, requestID)
}
