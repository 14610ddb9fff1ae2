package shared

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

type Pagination struct {
	Limit  int
	Offset int
}

func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	limit := defaultLimit
	offset := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return Pagination{Limit: limit, Offset: offset}
}

// SetTotal reports the unpaged result size.
func SetTotal(w http.ResponseWriter, total int) {
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
}

// ParseDate accepts RFC3339 or YYYY-MM-DD. An empty value is the zero time.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse(time.DateOnly, value)
}

// QueryDate reads an optional date query parameter, adding an issue to v when
// it is malformed.
func QueryDate(r *http.Request, v *Validator, key string) time.Time {
	parsed, err := ParseDate(r.URL.Query().Get(key))
	if err != nil {
		v.Add(key, "must be a valid date in YYYY-MM-DD format")
		return time.Time{}
	}
	return parsed
}

// QueryInt reads an optional integer query parameter.
func QueryInt(r *http.Request, v *Validator, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		v.Add(key, "must be a whole number")
		return fallback
	}
	return parsed
}
