package attendance

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/koshtony/beezy-beta/internal/platform/config"
)

func nairobi(t *testing.T) Schedule {
	t.Helper()
	s, err := NewSchedule(config.AttendanceConfig{
		OfficeStart: "08:00",
		OfficeEnd:   "17:00",
		Grace:       10 * time.Minute,
		Timezone:    "Africa/Nairobi",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func TestLateCheckIn(t *testing.T) {
	s := nairobi(t)
	cases := []struct {
		name string
		utc  time.Time
		late bool
	}{
		{"on time", time.Date(2025, 3, 3, 5, 0, 0, 0, time.UTC), false},
		{"inside grace", time.Date(2025, 3, 3, 5, 10, 0, 0, time.UTC), false},
		{"after grace", time.Date(2025, 3, 3, 5, 11, 0, 0, time.UTC), true},
	}
	for _, tc := range cases {
		if got := s.IsLate(tc.utc); got != tc.late {
			t.Fatalf("%s: expected late=%v, got %v", tc.name, tc.late, got)
		}
	}
}

func TestEarlyCheckOut(t *testing.T) {
	s := nairobi(t)
	if !s.IsEarly(time.Date(2025, 3, 3, 13, 49, 0, 0, time.UTC)) {
		t.Fatal("16:49 local should be early")
	}
	if s.IsEarly(time.Date(2025, 3, 3, 13, 50, 0, 0, time.UTC)) {
		t.Fatal("16:50 local is inside the grace window")
	}
}

func TestWorkDateUsesOfficeTimezone(t *testing.T) {
	s := nairobi(t)
	got := s.WorkDate(time.Date(2025, 3, 3, 22, 30, 0, 0, time.UTC))
	if got.Day() != 4 {
		t.Fatalf("expected the local day to be the 4th, got %s", got)
	}
}

func TestNewScheduleRejectsBadHours(t *testing.T) {
	_, err := NewSchedule(config.AttendanceConfig{OfficeStart: "17:00", OfficeEnd: "08:00", Timezone: "UTC"})
	if err == nil {
		t.Fatal("expected an error for an inverted office day")
	}
	_, err = NewSchedule(config.AttendanceConfig{OfficeStart: "8am", OfficeEnd: "17:00", Timezone: "UTC"})
	if err == nil {
		t.Fatal("expected an error for a malformed start")
	}
}
