package shared

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koshtony/beezy-beta/internal/transport/http/api"
)

type samplePayload struct {
	Name  string `json:"name" validate:"required"`
	Level int    `json:"level" validate:"gt=0"`
	Kind  string `json:"kind" validate:"omitempty,oneof=full half"`
}

func fields(t *testing.T, rec *httptest.ResponseRecorder) []ValidationIssue {
	t.Helper()
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Fields []ValidationIssue `json:"fields"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.Equal(t, "validation_error", env.Error.Code)
	return env.Error.Details.Fields
}

func TestDecodeReportsFieldIssues(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"level":0,"kind":"quarter"}`))
	rec := httptest.NewRecorder()
	var p samplePayload

	ok := Decode(rec, req, &p, "r1")
	require.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []ValidationIssue{
		{Field: "kind", Reason: "must be one of: full half"},
		{Field: "level", Reason: "must be greater than 0"},
		{Field: "name", Reason: "is required"},
	}, fields(t, rec))
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","level":1,"extra":true}`))
	rec := httptest.NewRecorder()
	var p samplePayload

	require.False(t, Decode(rec, req, &p, ""))
	var env api.Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.Equal(t, "invalid_payload", env.Error.Code)
}

func TestDecodeAccepts(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","level":2,"kind":"half"}`))
	var p samplePayload
	require.True(t, Decode(httptest.NewRecorder(), req, &p, ""))
	assert.Equal(t, 2, p.Level)
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?from=2025-02-30&year=2025&limit=900&offset=-1", nil)
	v := NewValidator()
	assert.True(t, QueryDate(req, v, "from").IsZero())
	assert.Equal(t, 2025, QueryInt(req, v, "year", 0))

	rec := httptest.NewRecorder()
	assert.True(t, v.Reject(rec, ""))
	assert.Equal(t, []ValidationIssue{{Field: "from", Reason: "must be a valid date in YYYY-MM-DD format"}}, fields(t, rec))

	page := ParsePagination(req, 50, 200)
	assert.Equal(t, Pagination{Limit: 200, Offset: 0}, page)
}
