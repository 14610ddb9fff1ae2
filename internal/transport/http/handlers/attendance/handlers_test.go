package attendancehandler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koshtony/beezy-beta/internal/domain/attendance"
	"github.com/koshtony/beezy-beta/internal/domain/auth"
	ierr "github.com/koshtony/beezy-beta/internal/errors"
	"github.com/koshtony/beezy-beta/internal/transport/http/middleware"
)

type fakeService struct {
	checkedIn map[string]bool
	deviceIPs []string
	ranges    [][2]time.Time
	asked     []string
}

func (f *fakeService) CheckIn(ctx context.Context, employeeID, deviceIP string) (attendance.Record, error) {
	if f.checkedIn[employeeID] {
		return attendance.Record{}, ierr.NewError("dup").WithHint("already checked in today").Mark(ierr.ErrInvalidState)
	}
	f.checkedIn[employeeID] = true
	f.deviceIPs = append(f.deviceIPs, deviceIP)
	return attendance.Record{ID: "a1", EmployeeID: employeeID, DeviceIP: deviceIP}, nil
}

func (f *fakeService) CheckOut(ctx context.Context, employeeID string) (attendance.Record, error) {
	if !f.checkedIn[employeeID] {
		return attendance.Record{}, ierr.NewError("none").WithHint("check in before checking out").Mark(ierr.ErrInvalidState)
	}
	return attendance.Record{ID: "a1", EmployeeID: employeeID}, nil
}

func (f *fakeService) History(ctx context.Context, employeeID string, from, to time.Time, limit, offset int) ([]attendance.Record, int, error) {
	f.asked = append(f.asked, employeeID)
	f.ranges = append(f.ranges, [2]time.Time{from, to})
	return []attendance.Record{}, 0, nil
}

func router(svc Service, employeeID, role string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithUser(r.Context(), auth.UserContext{UserID: "u", EmployeeID: employeeID, RoleName: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	NewHandler(svc, auth.StaticPermissions{}).RegisterRoutes(r)
	return r
}

func do(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "10.0.0.7:52100"
	h.ServeHTTP(rec, req)
	return rec
}

func TestCheckInRecordsDeviceIP(t *testing.T) {
	svc := &fakeService{checkedIn: map[string]bool{}}
	h := router(svc, "e1", auth.RoleEmployee)

	assert.Equal(t, http.StatusConflict, do(h, http.MethodPost, "/attendance/check-out").Code)
	require.Equal(t, http.StatusCreated, do(h, http.MethodPost, "/attendance/check-in").Code)
	assert.Equal(t, http.StatusConflict, do(h, http.MethodPost, "/attendance/check-in").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/attendance/check-out").Code)

	require.Len(t, svc.deviceIPs, 1)
	assert.Equal(t, "10.0.0.7", svc.deviceIPs[0])
}

func TestHistoryRange(t *testing.T) {
	svc := &fakeService{checkedIn: map[string]bool{}}
	h := router(svc, "e1", auth.RoleEmployee)

	rec := do(h, http.MethodGet, "/attendance/?from=2025-03-01&to=2025-03-31")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-Total-Count"))
	require.Len(t, svc.ranges, 1)
	assert.Equal(t, time.March, svc.ranges[0][0].Month())
	assert.Equal(t, 31, svc.ranges[0][1].Day())

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/attendance/?from=March").Code)
	assert.Equal(t, http.StatusForbidden, do(h, http.MethodGet, "/attendance/?employeeId=e2").Code)

	hr := router(svc, "e9", auth.RoleHR)
	require.Equal(t, http.StatusOK, do(hr, http.MethodGet, "/attendance/?employeeId=e2").Code)
	assert.Equal(t, []string{"e1", "e2"}, svc.asked)
}
