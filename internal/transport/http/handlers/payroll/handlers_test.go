package payrollhandler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koshtony/beezy-beta/internal/domain/auth"
	"github.com/koshtony/beezy-beta/internal/domain/payroll"
	ierr "github.com/koshtony/beezy-beta/internal/errors"
	"github.com/koshtony/beezy-beta/internal/transport/http/middleware"
)

const (
	ownerID = "0f8fad5b-d9cb-469f-a165-70867728950e"
	otherID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	period  = "2c5ea4c0-4067-11e9-8bad-9b1deb4d3b7d"
)

type fakeService struct {
	payrolls map[string]payroll.Payroll
	overtime map[string]payroll.Overtime
	recorded []payroll.OvertimeInput
}

func newFake() *fakeService {
	return &fakeService{
		payrolls: map[string]payroll.Payroll{
			"p1": {ID: "p1", EmployeeID: ownerID, PeriodID: period, Status: payroll.StatusApproved},
			"p2": {ID: "p2", EmployeeID: ownerID, PeriodID: period, Status: payroll.StatusDraft},
		},
		overtime: map[string]payroll.Overtime{
			"o1": {ID: "o1", EmployeeID: ownerID, Status: payroll.StatusDraft},
		},
	}
}

func (f *fakeService) ListPeriods(ctx context.Context) ([]payroll.Period, error) { return nil, nil }

func (f *fakeService) CreatePeriod(ctx context.Context, month, year int) (payroll.Period, error) {
	return payroll.Period{ID: period, Month: month, Year: year}, nil
}

func (f *fakeService) LockPeriod(ctx context.Context, id string) (payroll.Period, error) {
	return payroll.Period{ID: id, IsLocked: true}, nil
}

func (f *fakeService) ListPayrolls(ctx context.Context, periodID string) ([]payroll.Payroll, error) {
	return nil, nil
}

func (f *fakeService) GetPayroll(ctx context.Context, id string) (payroll.Payroll, error) {
	p, ok := f.payrolls[id]
	if !ok {
		return payroll.Payroll{}, ierr.NewError("missing").WithHint("payroll not found").Mark(ierr.ErrNotFound)
	}
	return p, nil
}

func (f *fakeService) Compute(ctx context.Context, periodID string, in payroll.ComputeInput) (payroll.Payroll, error) {
	return payroll.Payroll{ID: "p3", EmployeeID: in.EmployeeID, PeriodID: periodID, BasicSalary: in.BasicSalary}, nil
}

func (f *fakeService) Submit(ctx context.Context, actorID, id string) (payroll.Payroll, error) {
	p, err := f.GetPayroll(ctx, id)
	if err != nil {
		return payroll.Payroll{}, err
	}
	p.Status = payroll.StatusPendingApproval
	return p, nil
}

func (f *fakeService) Payslip(ctx context.Context, id string) (payroll.Payroll, []byte, error) {
	p, err := f.GetPayroll(ctx, id)
	if err != nil {
		return payroll.Payroll{}, nil, err
	}
	if p.Status != payroll.StatusApproved {
		return payroll.Payroll{}, nil, ierr.NewError("not approved").WithHint("payslips are only available for approved payrolls").Mark(ierr.ErrInvalidState)
	}
	return p, []byte("%PDF-1.3 payslip"), nil
}

func (f *fakeService) ListOvertime(ctx context.Context, periodID, employeeID string) ([]payroll.Overtime, error) {
	return nil, nil
}

func (f *fakeService) GetOvertime(ctx context.Context, id string) (payroll.Overtime, error) {
	o, ok := f.overtime[id]
	if !ok {
		return payroll.Overtime{}, ierr.NewError("missing").WithHint("overtime record not found").Mark(ierr.ErrNotFound)
	}
	return o, nil
}

func (f *fakeService) RecordOvertime(ctx context.Context, in payroll.OvertimeInput) (payroll.Overtime, error) {
	f.recorded = append(f.recorded, in)
	return payroll.Overtime{ID: "o2", EmployeeID: in.EmployeeID, HoursWorked: in.HoursWorked}, nil
}

func (f *fakeService) SubmitOvertime(ctx context.Context, actorID, id string) (payroll.Overtime, error) {
	o, err := f.GetOvertime(ctx, id)
	o.Status = payroll.StatusPendingApproval
	return o, err
}

func router(svc Service, employeeID, role string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithUser(r.Context(), auth.UserContext{UserID: "u", EmployeeID: employeeID, RoleName: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	NewHandler(svc, auth.StaticPermissions{}).RegisterRoutes(r)
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestPayslipDownload(t *testing.T) {
	svc := newFake()

	owner := router(svc, ownerID, auth.RoleEmployee)
	rec := do(owner, http.MethodGet, "/payroll/payrolls/p1/payslip.pdf", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))

	assert.Equal(t, http.StatusConflict, do(owner, http.MethodGet, "/payroll/payrolls/p2/payslip.pdf", "").Code)

	stranger := router(svc, otherID, auth.RoleManager)
	assert.Equal(t, http.StatusForbidden, do(stranger, http.MethodGet, "/payroll/payrolls/p1/payslip.pdf", "").Code)

	hr := router(svc, otherID, auth.RoleHR)
	assert.Equal(t, http.StatusOK, do(hr, http.MethodGet, "/payroll/payrolls/p1/payslip.pdf", "").Code)
}

func TestPayrollRunRequiresHR(t *testing.T) {
	svc := newFake()
	body := `{"employeeId":"` + ownerID + `","basicSalary":"50000","totalAllowances":"0","totalDeductions":"0"}`

	employee := router(svc, ownerID, auth.RoleEmployee)
	assert.Equal(t, http.StatusForbidden, do(employee, http.MethodPost, "/payroll/periods/"+period+"/payrolls", body).Code)
	assert.Equal(t, http.StatusForbidden, do(employee, http.MethodPost, "/payroll/payrolls/p2/submit", "").Code)

	hr := router(svc, otherID, auth.RoleHR)
	assert.Equal(t, http.StatusOK, do(hr, http.MethodPost, "/payroll/periods/"+period+"/payrolls", body).Code)
	assert.Equal(t, http.StatusOK, do(hr, http.MethodPost, "/payroll/payrolls/p2/submit", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(hr, http.MethodPost, "/payroll/periods", `{"month":13,"year":2025}`).Code)
	assert.Equal(t, http.StatusCreated, do(hr, http.MethodPost, "/payroll/periods", `{"month":3,"year":2025}`).Code)
}

func TestRecordOvertimeForSelf(t *testing.T) {
	svc := newFake()
	employee := router(svc, ownerID, auth.RoleEmployee)

	rec := do(employee, http.MethodPost, "/payroll/overtime", `{"periodId":"`+period+`","hoursWorked":"12.5"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, svc.recorded, 1)
	assert.Equal(t, ownerID, svc.recorded[0].EmployeeID)
	assert.True(t, svc.recorded[0].HoursWorked.Equal(decimal.RequireFromString("12.5")))

	rec = do(employee, http.MethodPost, "/payroll/overtime", `{"employeeId":"`+otherID+`","periodId":"`+period+`","hoursWorked":"2"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Len(t, svc.recorded, 1)
}

func TestSubmitOvertimeOwnership(t *testing.T) {
	svc := newFake()

	stranger := router(svc, otherID, auth.RoleEmployee)
	assert.Equal(t, http.StatusForbidden, do(stranger, http.MethodPost, "/payroll/overtime/o1/submit", "").Code)
	assert.Equal(t, http.StatusNotFound, do(stranger, http.MethodPost, "/payroll/overtime/missing/submit", "").Code)

	owner := router(svc, ownerID, auth.RoleEmployee)
	rec := do(owner, http.MethodPost, "/payroll/overtime/o1/submit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), payroll.StatusPendingApproval)
}
