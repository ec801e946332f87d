package services

import (
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/flowdeck/flowdeck/internal/auth"
)

// Shared helpers for the service tests. Each service test constructs its
// service over a sqlmock database and scripts the exact statements the
// operation's transaction is expected to issue, so the tests double as a
// record of what commits together.

func newMockDB(t *testing.T) (*IdentityService, *TaskService, *MeetingService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewIdentityService(db), NewTaskService(db), NewMeetingService(db), mock
}

var svcUserCols = []string{"id", "org_id", "login_id", "password_hash", "full_name", "email", "role", "job_level", "is_active", "created_at", "last_login"}

var svcTaskCols = []string{"id", "org_id", "title", "description", "status", "priority", "assigned_to", "created_by", "due_date", "position", "created_at", "updated_at"}

var svcMeetingCols = []string{"id", "org_id", "title", "description", "meeting_date", "duration_minutes", "location", "created_by", "created_at"}

func adminPrincipal() auth.Principal {
	return auth.Principal{UserID: "admin-1", OrgID: "org-1", LoginID: "janedoe", FullName: "Jane Doe", Role: "admin"}
}

func employeePrincipal() auth.Principal {
	return auth.Principal{UserID: "emp-1", OrgID: "org-1", LoginID: "boblee", FullName: "Bob Lee", Role: "employee"}
}

func userRow(id, role string, active bool) *sqlmock.Rows {
	return sqlmock.NewRows(svcUserCols).
		AddRow(id, "org-1", "boblee", "$2a$10$hash", "Bob Lee", "bob@example.com", role, "developer", active, time.Now(), nil)
}

func taskRow(id, status, priority string, assignedTo *string, createdBy string) *sqlmock.Rows {
	var assignee interface{}
	if assignedTo != nil {
		assignee = *assignedTo
	}
	return sqlmock.NewRows(svcTaskCols).
		AddRow(id, "org-1", "Ship release", "", status, priority, assignee, createdBy, nil, 0, time.Now(), time.Now())
}

func meetingRow(id, createdBy string) *sqlmock.Rows {
	return sqlmock.NewRows(svcMeetingCols).
		AddRow(id, "org-1", "Sprint planning", "", time.Now().Add(24*time.Hour), 60, "", createdBy, time.Now())
}

func existsResult(exists bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"exists"}).AddRow(exists)
}

func strPtr(s string) *string { return &s }
