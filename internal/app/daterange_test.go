package app

import (
	"errors"
	"testing"
	"time"
)

func TestResolveDateRange(t *testing.T) {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		phrase    string
		startDate string
		endDate   string
		wantDays  int
		wantErr   error
	}{
		{name: "default is last 30 days", wantDays: 30},
		{name: "last day", phrase: "last day", wantDays: 1},
		{name: "bare last week defaults count to one", phrase: "last week", wantDays: 7},
		{name: "last 2 weeks", phrase: "last 2 weeks", wantDays: 14},
		{name: "a month is 30 days", phrase: "last month", wantDays: 30},
		{name: "last 3 months", phrase: "last 3 months", wantDays: 90},
		{name: "case and spacing are forgiven", phrase: "  Last 10 Days ", wantDays: 10},
		{name: "over the cap", phrase: "last 4 months", wantErr: errRangeTooWide},
		{name: "gibberish period", phrase: "since the dawn of time", wantErr: ErrInvalidRange},
		{name: "zero count", phrase: "last 0 days", wantErr: ErrInvalidRange},
		{name: "explicit range counts both endpoint days", startDate: "2026-03-01", endDate: "2026-03-10", wantDays: 10},
		{name: "explicit start only runs to now", startDate: "2026-03-01", wantDays: 15},
		{name: "end before start", startDate: "2026-03-10", endDate: "2026-03-01", wantErr: ErrInvalidRange},
		{name: "malformed start date", startDate: "01/03/2026", wantErr: ErrInvalidRange},
		{name: "end date without start", endDate: "2026-03-10", wantErr: ErrInvalidRange},
		{name: "explicit 90 calendar days at the cap", startDate: "2025-12-15", endDate: "2026-03-14", wantDays: 90},
		{name: "explicit 91 calendar days over the cap", startDate: "2025-12-14", endDate: "2026-03-14", wantErr: errRangeTooWide},
		{name: "explicit range over the cap", startDate: "2025-12-01", endDate: "2026-03-14", wantErr: errRangeTooWide},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ResolveDateRange(tt.phrase, tt.startDate, tt.endDate, now)
			if tt.wantErr != nil {
				if tt.wantErr == errRangeTooWide {
					var tooWide *RangeTooWideError
					if !errors.As(err, &tooWide) {
						t.Fatalf("expected RangeTooWideError, got %v", err)
					}
					return
				}
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := r.Days(); got != tt.wantDays {
				t.Fatalf("expected %d days, got %d", tt.wantDays, got)
			}
		})
	}
}

// errRangeTooWide marks table rows expecting the typed cap error.
var errRangeTooWide = errors.New("range too wide")
