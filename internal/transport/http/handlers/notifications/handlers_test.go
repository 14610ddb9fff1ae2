package notificationshandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/koshtony/beezy-beta/internal/domain/auth"
	"github.com/koshtony/beezy-beta/internal/domain/notifications"
	ierr "github.com/koshtony/beezy-beta/internal/errors"
	"github.com/koshtony/beezy-beta/internal/transport/http/middleware"
)

type fakeService struct {
	items map[string]*notifications.Notification
}

func (f *fakeService) List(ctx context.Context, recipientID, filter string, limit, offset int) ([]notifications.Notification, int, error) {
	if !notifications.ValidFilter(filter) {
		return nil, 0, ierr.NewError("bad filter").WithHint("status must be read or unread").Mark(ierr.ErrValidation)
	}
	out := []notifications.Notification{}
	for _, n := range f.items {
		if n.RecipientID == recipientID && (filter == "" || (filter == notifications.FilterRead) == n.IsRead) {
			out = append(out, *n)
		}
	}
	return out, len(out), nil
}

func (f *fakeService) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	_, total, err := f.List(ctx, recipientID, notifications.FilterUnread, 0, 0)
	return total, err
}

func (f *fakeService) MarkRead(ctx context.Context, recipientID, id string) error {
	n, ok := f.items[id]
	if !ok || n.RecipientID != recipientID {
		return ierr.NewError("missing").WithHint("notification not found").Mark(ierr.ErrNotFound)
	}
	n.IsRead = true
	return nil
}

func router(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithUser(r.Context(), auth.UserContext{UserID: "u1", EmployeeID: "e1", RoleName: auth.RoleEmployee})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	NewHandler(svc).RegisterRoutes(r)
	return r
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestNotificationEndpoints(t *testing.T) {
	svc := &fakeService{items: map[string]*notifications.Notification{
		"n1": {ID: "n1", RecipientID: "e1", Title: "Approval required"},
		"n2": {ID: "n2", RecipientID: "e1", Title: "Approved", IsRead: true},
		"n3": {ID: "n3", RecipientID: "e2", Title: "Other"},
	}}
	h := router(svc)

	rec := serve(h, http.MethodGet, "/notifications?status=unread")
	if rec.Code != http.StatusOK || rec.Header().Get("X-Total-Count") != "1" {
		t.Fatalf("unexpected list response %d %s", rec.Code, rec.Header().Get("X-Total-Count"))
	}

	rec = serve(h, http.MethodGet, "/notifications?status=archived")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown filter, got %d", rec.Code)
	}

	for range 2 {
		rec = serve(h, http.MethodPost, "/notifications/n1/read")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected mark read to succeed repeatedly, got %d", rec.Code)
		}
	}

	rec = serve(h, http.MethodPost, "/notifications/n3/read")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another recipient's notification, got %d", rec.Code)
	}

	rec = serve(h, http.MethodGet, "/notifications/unread-count")
	var env struct {
		Data map[string]int `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data["unread"] != 0 {
		t.Fatalf("expected no unread notifications, got %d", env.Data["unread"])
	}
}
