package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/flowdeck/flowdeck/internal/db/models"
)

var errDB = errors.New("db error")

var userCols = []string{"id", "org_id", "login_id", "password_hash", "full_name", "email", "role", "job_level", "is_active", "created_at", "last_login"}

func sampleUserRow() *sqlmock.Rows {
	return sqlmock.NewRows(userCols).
		AddRow("user-1", "org-1", "boblee", "$2a$10$hash", "Bob Lee", "bob@example.com", "employee", "developer", true, time.Now(), nil)
}

func emptyUserRow() *sqlmock.Rows {
	return sqlmock.NewRows(userCols)
}

func newUserRepo(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserRepository(db), mock
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestUserCreate_AssignsIDAndActivates(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(0, 1))

	user := &models.User{
		OrgID:    "org-1",
		LoginID:  "boblee",
		FullName: "Bob Lee",
		Role:     models.RoleEmployee,
		JobLevel: models.JobLevelDeveloper,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID == "" {
		t.Error("expected generated id")
	}
	if !user.IsActive {
		t.Error("expected new user to be active")
	}
	if user.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}

// ---------------------------------------------------------------------------
// GetByLoginID
// ---------------------------------------------------------------------------

func TestGetByLoginID_Found(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users.*WHERE login_id").
		WithArgs("boblee").
		WillReturnRows(sampleUserRow())

	user, err := repo.GetByLoginID(context.Background(), "boblee")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}
	if user.LoginID != "boblee" {
		t.Errorf("LoginID = %s, want boblee", user.LoginID)
	}
}

func TestGetByLoginID_NotFound(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users.*WHERE login_id").
		WithArgs("missing").
		WillReturnRows(emptyUserRow())

	user, err := repo.GetByLoginID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Errorf("expected nil user for not found, got %v", user)
	}
}

// ---------------------------------------------------------------------------
// GetByIDInOrg
// ---------------------------------------------------------------------------

func TestGetByIDInOrg_ScopesToOrg(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users.*WHERE id.*AND org_id").
		WithArgs("user-1", "other-org").
		WillReturnRows(emptyUserRow())

	user, err := repo.GetByIDInOrg(context.Background(), "user-1", "other-org")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Error("expected nil for user outside the organization")
	}
}

// ---------------------------------------------------------------------------
// LoginIDExists
// ---------------------------------------------------------------------------

func TestLoginIDExists(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("boblee").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := repo.LoginIDExists(context.Background(), "boblee")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !taken {
		t.Error("expected login id to be taken")
	}
}

// ---------------------------------------------------------------------------
// Deactivate
// ---------------------------------------------------------------------------

func TestDeactivate_AffectedRow(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectExec("UPDATE users SET is_active = FALSE").
		WithArgs("user-1", "org-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.Deactivate(context.Background(), "user-1", "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected deactivation to affect a row")
	}
}

func TestDeactivate_AlreadyInactive(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectExec("UPDATE users SET is_active = FALSE").
		WithArgs("user-1", "org-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Deactivate(context.Background(), "user-1", "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected no row affected for already-inactive user")
	}
}

// ---------------------------------------------------------------------------
// CountActiveAdmins
// ---------------------------------------------------------------------------

func TestCountActiveAdmins(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT COUNT.*FROM users").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountActiveAdmins(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestCountActiveAdmins_DBError(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT COUNT.*FROM users").
		WithArgs("org-1").
		WillReturnError(errDB)

	_, err := repo.CountActiveAdmins(context.Background(), "org-1")
	if err == nil {
		t.Error("expected error, got nil")
	}
}

// ---------------------------------------------------------------------------
// IsActive
// ---------------------------------------------------------------------------

func TestIsActive(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("user-1", "org-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	active, err := repo.IsActive(context.Background(), "user-1", "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active {
		t.Error("expected inactive")
	}
}

// ---------------------------------------------------------------------------
// ListActiveByOrg
// ---------------------------------------------------------------------------

func TestListActiveByOrg(t *testing.T) {
	repo, mock := newUserRepo(t)
	rows := sqlmock.NewRows(userCols).
		AddRow("user-2", "org-1", "janedoe", "$2a$10$hash", "Jane Doe", "jane@example.com", "admin", "admin", true, time.Now(), time.Now()).
		AddRow("user-1", "org-1", "boblee", "$2a$10$hash", "Bob Lee", "bob@example.com", "employee", "developer", true, time.Now(), nil)
	mock.ExpectQuery("SELECT.*FROM users.*WHERE org_id.*is_active").
		WithArgs("org-1").
		WillReturnRows(rows)

	users, err := repo.ListActiveByOrg(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("len = %d, want 2", len(users))
	}
	if users[0].LastLogin == nil {
		t.Error("expected first user to have last_login set")
	}
	if users[1].LastLogin != nil {
		t.Error("expected second user to have nil last_login")
	}
}
