package audithandler

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koshtony/beezy-beta/internal/domain/audit"
	"github.com/koshtony/beezy-beta/internal/domain/auth"
	"github.com/koshtony/beezy-beta/internal/transport/http/middleware"
)

type fakeStore struct {
	events  []audit.Event
	filters []audit.Filter
}

func (f *fakeStore) Count(ctx context.Context, filter audit.Filter) (int, error) {
	return len(f.match(filter)), nil
}

func (f *fakeStore) List(ctx context.Context, filter audit.Filter, limit, offset int) ([]audit.Event, error) {
	f.filters = append(f.filters, filter)
	return f.match(filter), nil
}

func (f *fakeStore) match(filter audit.Filter) []audit.Event {
	out := []audit.Event{}
	for _, evt := range f.events {
		if filter.Action != "" && evt.Action != filter.Action {
			continue
		}
		out = append(out, evt)
	}
	return out
}

func router(store Store, role string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithUser(r.Context(), auth.UserContext{UserID: "u", EmployeeID: "e", RoleName: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	NewHandler(store, auth.StaticPermissions{}).RegisterRoutes(r)
	return r
}

func seeded() *fakeStore {
	at := time.Date(2025, 3, 4, 9, 30, 0, 0, time.UTC)
	return &fakeStore{events: []audit.Event{
		{ID: "1", ActorID: "e1", Action: audit.ActionApprovalApprove, EntityType: "approval_record", EntityID: "r1", CreatedAt: at},
		{ID: "2", ActorID: "e2", Action: audit.ActionApprovalReject, EntityType: "approval_record", EntityID: "r2", CreatedAt: at},
	}}
}

func TestAuditListIsHROnly(t *testing.T) {
	store := seeded()

	rec := httptest.NewRecorder()
	router(store, auth.RoleManager).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	router(store, auth.RoleHR).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/?action=approval.reject&entityId=r2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Total-Count"))
	require.Len(t, store.filters, 1)
	assert.Equal(t, "r2", store.filters[0].EntityID)
}

func TestAuditExportCSV(t *testing.T) {
	rec := httptest.NewRecorder()
	router(seeded(), auth.RoleHR).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/export.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "actor_id", rows[0][1])
	assert.Equal(t, "2025-03-04T09:30:00Z", rows[1][6])
}
