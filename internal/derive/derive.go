// Package derive holds the pure derived functions used by listings and
// dashboards: urgency scoring, overdue computation, display formatting, and
// completion metrics. Everything here is re-derivable from fetched rows and
// storage-agnostic; none of these values are persisted.
package derive

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/flowdeck/flowdeck/internal/db/models"
)

// PriorityWeight maps a task priority to its base urgency weight.
// Unknown priorities weigh the same as low.
func PriorityWeight(priority string) float64 {
	switch priority {
	case models.TaskPriorityUrgent:
		return 4
	case models.TaskPriorityHigh:
		return 3
	case models.TaskPriorityMedium:
		return 2
	default:
		return 1
	}
}

// DaysOverdue returns the number of whole days the due date lies in the past
// relative to now. Tasks without a due date, or not yet due, are 0 days
// overdue.
func DaysOverdue(dueDate *time.Time, now time.Time) int {
	if dueDate == nil {
		return 0
	}
	if !now.After(*dueDate) {
		return 0
	}
	return int(now.Sub(*dueDate).Hours() / 24)
}

// UrgencyScore ranks a task by priority and overdue duration:
//
//	urgency = priorityWeight × (1 + 0.1 × daysOverdue)
//
// The score is monotonic in daysOverdue for a fixed priority and in priority
// weight for a fixed overdue duration.
func UrgencyScore(priority string, dueDate *time.Time, now time.Time) float64 {
	return PriorityWeight(priority) * (1 + 0.1*float64(DaysOverdue(dueDate, now)))
}

// DisplayName formats a user's name with their role badge.
func DisplayName(fullName, role string) string {
	if fullName == "" {
		return "Unknown"
	}
	badge := "👤"
	if role == models.RoleAdmin {
		badge = "👑"
	}
	return badge + " " + fullName
}

// FormatDuration renders a meeting duration in minutes as "1h 30m" or "45m".
func FormatDuration(minutes int) string {
	if minutes <= 0 {
		return "N/A"
	}
	hours := minutes / 60
	mins := minutes % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

// CompletionRate returns the percentage of done tasks over total assigned
// tasks, rounded to two decimals. A user with no tasks completes at 0%.
func CompletionRate(total, done int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(done)/float64(total)*100*100) / 100
}

var unsafeChars = regexp.MustCompile(`[^\w\s\-.,!?@]`)

// SanitizeText strips characters outside the safe display set.
func SanitizeText(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(unsafeChars.ReplaceAllString(text, ""))
}
