package services

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

var svcTaskListCols = append(append([]string{}, svcTaskCols...), "assigned_to_name", "created_by_name")

// ---------------------------------------------------------------------------
// CreateTask
// ---------------------------------------------------------------------------

func TestCreateTask_Defaults(t *testing.T) {
	_, tasks, _, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tasks").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO activity_log").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	task, err := tasks.CreateTask(context.Background(), employeePrincipal(), CreateTaskInput{Title: "Ship release"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Status != "todo" || task.Priority != "medium" {
		t.Errorf("defaults = (%s, %s), want (todo, medium)", task.Status, task.Priority)
	}
	if task.CreatedBy != "emp-1" {
		t.Errorf("CreatedBy = %s, want emp-1", task.CreatedBy)
	}
}

func TestCreateTask_InactiveAssigneeAborts(t *testing.T) {
	_, tasks, _, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("emp-9", "org-1").
		WillReturnRows(existsResult(false))
	mock.ExpectRollback()

	_, err := tasks.CreateTask(context.Background(), adminPrincipal(),
		CreateTaskInput{Title: "Ship release", AssignedTo: strPtr("emp-9")}, "")
	if !errors.Is(err, ErrInvalidAssignment) {
		t.Errorf("err = %v, want ErrInvalidAssignment", err)
	}
	// The task row must never be inserted.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateTask_EmptyTitle(t *testing.T) {
	_, tasks, _, _ := newMockDB(t)

	_, err := tasks.CreateTask(context.Background(), employeePrincipal(), CreateTaskInput{Title: "   "}, "")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestCreateTask_AuditFailureRollsBack(t *testing.T) {
	_, tasks, _, mock := newMockDB(t)

	auditErr := errors.New("insert failed")
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tasks").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO activity_log").
		WillReturnError(auditErr)
	mock.ExpectRollback()

	_, err := tasks.CreateTask(context.Background(), employeePrincipal(), CreateTaskInput{Title: "Ship release"}, "")
	if !errors.Is(err, auditErr) {
		t.Errorf("err = %v, want audit insert failure", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// ---------------------------------------------------------------------------
// SetStatus
// ---------------------------------------------------------------------------

func TestSetStatus_Change(t *testing.T) {
	_, tasks, _, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT.*FROM tasks.*WHERE id.*AND org_id").
		WithArgs("task-1", "org-1").
		WillReturnRows(taskRow("task-1", "todo", "medium", nil, "emp-1"))
	mock.ExpectExec("UPDATE tasks SET status").
		WithArgs("in_progress", "task-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO activity_log").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	task, err := tasks.SetStatus(context.Background(), employeePrincipal(), "task-1", "in_progress", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Status != "in_progress" {
		t.Errorf("Status = %s, want in_progress", task.Status)
	}
}

func TestSetStatus_SameStatusNoAudit(t *testing.T) {
	_, tasks, _, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT.*FROM tasks.*WHERE id.*AND org_id").
		WithArgs("task-1", "org-1").
		WillReturnRows(taskRow("task-1", "todo", "medium", nil, "emp-1"))
	mock.ExpectCommit()

	if _, err := tasks.SetStatus(context.Background(), employeePrincipal(), "task-1", "todo", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSetStatus_OutsideScope(t *testing.T) {
	_, tasks, _, mock := newMockDB(t)

	// Created by and assigned to someone else.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT.*FROM tasks.*WHERE id.*AND org_id").
		WithArgs("task-1", "org-1").
		WillReturnRows(taskRow("task-1", "todo", "medium", strPtr("emp-2"), "admin-1"))
	mock.ExpectRollback()

	_, err := tasks.SetStatus(context.Background(), employeePrincipal(), "task-1", "done", "")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestSetStatus_AssigneeMayMutate(t *testing.T) {
	_, tasks, _, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT.*FROM tasks.*WHERE id.*AND org_id").
		WithArgs("task-1", "org-1").
		WillReturnRows(taskRow("task-1", "todo", "medium", strPtr("emp-1"), "admin-1"))
	mock.ExpectExec("UPDATE tasks SET status").
		WithArgs("done", "task-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO activity_log").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if _, err := tasks.SetStatus(context.Background(), employeePrincipal(), "task-1", "done", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetStatus_UnknownStatus(t *testing.T) {
	_, tasks, _, _ := newMockDB(t)

	_, err := tasks.SetStatus(context.Background(), employeePrincipal(), "task-1", "archived", "")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

// ---------------------------------------------------------------------------
// SetPosition
// ---------------------------------------------------------------------------

func TestSetPosition_SameLaneReorderNoAudit(t *testing.T) {
	_, tasks, _, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT.*FROM tasks.*WHERE id.*AND org_id").
		WithArgs("task-1", "org-1").
		WillReturnRows(taskRow("task-1", "todo", "medium", nil, "emp-1"))
	mock.ExpectExec("UPDATE tasks SET status = \\$1, position = \\$2").
		WithArgs("todo", 4, "task-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	task, err := tasks.SetPosition(context.Background(), employeePrincipal(), "task-1", "todo", 4, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Position != 4 {
		t.Errorf("Position = %d, want 4", task.Position)
	}
	// A pure reorder writes no audit entry.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSetPosition_LaneChangeWritesAudit(t *testing.T) {
	_, tasks, _, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT.*FROM tasks.*WHERE id.*AND org_id").
		WithArgs("task-1", "org-1").
		WillReturnRows(taskRow("task-1", "todo", "medium", nil, "emp-1"))
	mock.ExpectExec("UPDATE tasks SET status = \\$1, position = \\$2").
		WithArgs("in_progress", 0, "task-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO activity_log").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	task, err := tasks.SetPosition(context.Background(), employeePrincipal(), "task-1", "in_progress", 0, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Status != "in_progress" {
		t.Errorf("Status = %s, want in_progress", task.Status)
	}
}

// ---------------------------------------------------------------------------
// Reassign
// ---------------------------------------------------------------------------

func TestReassign_SameAssigneeNoOp(t *testing.T) {
	_, tasks, _, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT.*FROM tasks.*WHERE id.*AND org_id").
		WithArgs("task-1", "org-1").
		WillReturnRows(taskRow("task-1", "todo", "medium", strPtr("emp-1"), "emp-1"))
	mock.ExpectCommit()

	if _, err := tasks.Reassign(context.Background(), employeePrincipal(), "task-1", strPtr("emp-1"), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReassign_InactiveAssigneeAborts(t *testing.T) {
	_, tasks, _, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT.*FROM tasks.*WHERE id.*AND org_id").
		WithArgs("task-1", "org-1").
		WillReturnRows(taskRow("task-1", "todo", "medium", nil, "emp-1"))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("emp-9", "org-1").
		WillReturnRows(existsResult(false))
	mock.ExpectRollback()

	_, err := tasks.Reassign(context.Background(), employeePrincipal(), "task-1", strPtr("emp-9"), "")
	if !errors.Is(err, ErrInvalidAssignment) {
		t.Errorf("err = %v, want ErrInvalidAssignment", err)
	}
}

func TestReassign_Clear(t *testing.T) {
	_, tasks, _, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT.*FROM tasks.*WHERE id.*AND org_id").
		WithArgs("task-1", "org-1").
		WillReturnRows(taskRow("task-1", "todo", "medium", strPtr("emp-2"), "admin-1"))
	mock.ExpectExec("UPDATE tasks SET assigned_to").
		WithArgs(nil, "task-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO activity_log").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	task, err := tasks.Reassign(context.Background(), adminPrincipal(), "task-1", nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.AssignedTo != nil {
		t.Error("expected assignee cleared")
	}
}

// ---------------------------------------------------------------------------
// DeleteTask
// ---------------------------------------------------------------------------

func TestDeleteTask_AssigneeCannotDelete(t *testing.T) {
	_, tasks, _, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT.*FROM tasks.*WHERE id.*AND org_id").
		WithArgs("task-1", "org-1").
		WillReturnRows(taskRow("task-1", "todo", "medium", strPtr("emp-1"), "admin-1"))
	mock.ExpectRollback()

	err := tasks.DeleteTask(context.Background(), employeePrincipal(), "task-1", "")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestDeleteTask_CreatorDeletesWithAudit(t *testing.T) {
	_, tasks, _, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT.*FROM tasks.*WHERE id.*AND org_id").
		WithArgs("task-1", "org-1").
		WillReturnRows(taskRow("task-1", "todo", "medium", nil, "emp-1"))
	mock.ExpectExec("INSERT INTO activity_log").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM tasks").
		WithArgs("task-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := tasks.DeleteTask(context.Background(), employeePrincipal(), "task-1", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Audit entry and delete commit together.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// ---------------------------------------------------------------------------
// ListUrgent / ListOverdue
// ---------------------------------------------------------------------------

func TestListUrgent_RanksByScoreAtPinnedClock(t *testing.T) {
	_, tasks, _, mock := newMockDB(t)

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return now }
	defer func() { timeNow = time.Now }()

	overdueSince := now.AddDate(0, 0, -5)
	rows := sqlmock.NewRows(svcTaskListCols).
		AddRow("task-1", "org-1", "Write notes", "", "todo", "medium", nil, "emp-1", nil, 0, now, now, nil, "Bob Lee").
		AddRow("task-2", "org-1", "Fix outage", "", "todo", "high", nil, "emp-1", overdueSince, 0, now, now, nil, "Bob Lee")
	mock.ExpectQuery("SELECT.*FROM tasks t").
		WithArgs("org-1", "emp-1", "emp-1").
		WillReturnRows(rows)

	scored, err := tasks.ListUrgent(context.Background(), employeePrincipal(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scored) != 2 {
		t.Fatalf("len = %d, want 2", len(scored))
	}
	// high, 5 days overdue: 3 * (1 + 0.5) = 4.5; medium, no due date: 2.0.
	if scored[0].ID != "task-2" || scored[0].UrgencyScore != 4.5 || scored[0].DaysOverdue != 5 {
		t.Errorf("first = (%s, %.1f, %d), want (task-2, 4.5, 5)",
			scored[0].ID, scored[0].UrgencyScore, scored[0].DaysOverdue)
	}
	if scored[1].ID != "task-1" || scored[1].UrgencyScore != 2.0 {
		t.Errorf("second = (%s, %.1f), want (task-1, 2.0)", scored[1].ID, scored[1].UrgencyScore)
	}
}

func TestListOverdue_ExcludesTasksNotYetDue(t *testing.T) {
	_, tasks, _, mock := newMockDB(t)

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return now }
	defer func() { timeNow = time.Now }()

	rows := sqlmock.NewRows(svcTaskListCols).
		AddRow("task-1", "org-1", "Plan sprint", "", "todo", "urgent", nil, "emp-1", now.AddDate(0, 0, 3), 0, now, now, nil, "Bob Lee").
		AddRow("task-2", "org-1", "Fix outage", "", "todo", "low", nil, "emp-1", now.AddDate(0, 0, -2), 0, now, now, nil, "Bob Lee")
	mock.ExpectQuery("SELECT.*FROM tasks t").
		WithArgs("org-1", "emp-1", "emp-1").
		WillReturnRows(rows)

	overdue, err := tasks.ListOverdue(context.Background(), employeePrincipal())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(overdue) != 1 || overdue[0].ID != "task-2" {
		t.Fatalf("overdue = %+v, want only task-2", overdue)
	}
	if overdue[0].DaysOverdue != 2 {
		t.Errorf("DaysOverdue = %d, want 2", overdue[0].DaysOverdue)
	}
}

func TestDeleteTask_NotFound(t *testing.T) {
	_, tasks, _, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT.*FROM tasks.*WHERE id.*AND org_id").
		WithArgs("ghost", "org-1").
		WillReturnRows(sqlmock.NewRows(svcTaskCols))
	mock.ExpectRollback()

	err := tasks.DeleteTask(context.Background(), employeePrincipal(), "ghost", "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
