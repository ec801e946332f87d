package derive

import (
	"testing"
	"time"
)

func datePtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

// ---------------------------------------------------------------------------
// Urgency scoring
// ---------------------------------------------------------------------------

func TestDaysOverdue(t *testing.T) {
	now := time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		dueDate *time.Time
		want    int
	}{
		{"no due date", nil, 0},
		{"due in the future", datePtr(2024, 1, 20), 0},
		{"due today", datePtr(2024, 1, 11), 0},
		{"ten days overdue", datePtr(2024, 1, 1), 10},
		{"one day overdue", datePtr(2024, 1, 10), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysOverdue(tt.dueDate, now); got != tt.want {
				t.Errorf("DaysOverdue = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUrgencyScore(t *testing.T) {
	now := time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		priority string
		dueDate  *time.Time
		want     float64
	}{
		{"urgent ten days overdue", "urgent", datePtr(2024, 1, 1), 8.0},
		{"high not due", "high", nil, 3.0},
		{"medium five days overdue", "medium", datePtr(2024, 1, 6), 3.0},
		{"low not due", "low", nil, 1.0},
		{"unknown priority weighs as low", "mystery", nil, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UrgencyScore(tt.priority, tt.dueDate, now)
			if got != tt.want {
				t.Errorf("UrgencyScore = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestUrgencyScore_MonotonicInOverdue(t *testing.T) {
	now := time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)

	prev := UrgencyScore("high", datePtr(2024, 1, 10), now)
	for day := 9; day >= 1; day-- {
		score := UrgencyScore("high", datePtr(2024, 1, day), now)
		if score <= prev {
			t.Fatalf("score %f not greater than %f for longer overdue", score, prev)
		}
		prev = score
	}
}

// ---------------------------------------------------------------------------
// Display formatting
// ---------------------------------------------------------------------------

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{125, "2h 5m"},
		{60, "1h 0m"},
		{45, "45m"},
		{0, "N/A"},
		{-10, "N/A"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.minutes); got != tt.want {
			t.Errorf("FormatDuration(%d) = %s, want %s", tt.minutes, got, tt.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("Jane Doe", "admin"); got != "👑 Jane Doe" {
		t.Errorf("admin badge = %s", got)
	}
	if got := DisplayName("Bob Lee", "employee"); got != "👤 Bob Lee" {
		t.Errorf("employee badge = %s", got)
	}
	if got := DisplayName("", "admin"); got != "Unknown" {
		t.Errorf("empty name = %s", got)
	}
}

// ---------------------------------------------------------------------------
// Completion metrics
// ---------------------------------------------------------------------------

func TestCompletionRate(t *testing.T) {
	tests := []struct {
		total, done int
		want        float64
	}{
		{10, 4, 40.0},
		{3, 1, 33.33},
		{0, 0, 0},
		{5, 5, 100.0},
	}
	for _, tt := range tests {
		if got := CompletionRate(tt.total, tt.done); got != tt.want {
			t.Errorf("CompletionRate(%d, %d) = %f, want %f", tt.total, tt.done, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Sanitization
// ---------------------------------------------------------------------------

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ship release", "Ship release"},
		{"  padded  ", "padded"},
		{"<script>alert(1)</script>", "scriptalert1script"},
		{"hello@example.com, ok!", "hello@example.com, ok!"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeText(tt.in); got != tt.want {
			t.Errorf("SanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
