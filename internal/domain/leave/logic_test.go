package leave

import (
	"testing"
	"time"

	ierr "github.com/koshtony/beezy-beta/internal/errors"
)

func TestCalculateDays(t *testing.T) {
	start := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	days, err := CalculateDays(start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 1 {
		t.Fatalf("expected 1 day, got %v", days)
	}

	end = time.Date(2025, 1, 12, 17, 30, 0, 0, time.UTC)
	days, err = CalculateDays(start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 3 {
		t.Fatalf("expected 3 days, got %v", days)
	}
}

func TestCalculateDaysInvalid(t *testing.T) {
	start := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 9, 0, 0, 0, 0, time.UTC)

	_, err := CalculateDays(start, end)
	if !ierr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCalculateRequestDays(t *testing.T) {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)

	full, err := CalculateRequestDays(start, end, DayTypeFull)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if full.String() != "3" {
		t.Fatalf("expected 3 days, got %s", full)
	}

	half, err := CalculateRequestDays(start, start, DayTypeHalf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if half.String() != "0.5" {
		t.Fatalf("expected 0.5 days, got %s", half)
	}

	if _, err := CalculateRequestDays(start, end, "quarter"); !ierr.IsValidation(err) {
		t.Fatalf("expected validation error for unknown day type, got %v", err)
	}
}
