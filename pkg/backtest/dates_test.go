package backtest

import (
	"testing"
	"time"
)

func TestBacktestReferenceDates_Single(t *testing.T) {
	dates, err := ReferenceDates("2025-03-01", "", "")
	if err != nil {
		t.Fatalf("ReferenceDates() unexpected error: %v", err)
	}
	if len(dates) != 1 {
		t.Fatalf("ReferenceDates() returned %d dates, want 1", len(dates))
	}
	want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if !dates[0].Equal(want) {
		t.Errorf("ReferenceDates() = %v, want %v", dates[0], want)
	}
}

func TestBacktestReferenceDates_Range(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  int
	}{
		{"three months", "2024-01-01", "2024-03-01", 3},
		{"single month range", "2024-06-01", "2024-06-01", 1},
		{"across year boundary", "2024-11-01", "2025-02-01", 4},
		{"mid-month inputs snap to month start", "2024-01-15", "2024-02-20", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dates, err := ReferenceDates("", tt.start, tt.end)
			if err != nil {
				t.Fatalf("ReferenceDates() unexpected error: %v", err)
			}
			if len(dates) != tt.want {
				t.Fatalf("ReferenceDates() returned %d dates, want %d", len(dates), tt.want)
			}
			for _, d := range dates {
				if d.Day() != 1 {
					t.Errorf("ReferenceDates() produced non month-start date %v", d)
				}
			}
			for i := 1; i < len(dates); i++ {
				if !dates[i].After(dates[i-1]) {
					t.Errorf("ReferenceDates() dates out of order: %v before %v", dates[i], dates[i-1])
				}
			}
		})
	}
}

func TestBacktestReferenceDates_Errors(t *testing.T) {
	tests := []struct {
		name   string
		single string
		start  string
		end    string
	}{
		{"nothing given", "", "", ""},
		{"start after end", "", "2025-05-01", "2025-01-01"},
		{"malformed single", "2025-13-40", "", ""},
		{"malformed start", "", "not-a-date", "2025-01-01"},
		{"start without end", "", "2025-01-01", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReferenceDates(tt.single, tt.start, tt.end); err == nil {
				t.Errorf("ReferenceDates(%q, %q, %q) expected error, got nil", tt.single, tt.start, tt.end)
			}
		})
	}
}
