package identity

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdeck/flowdeck/internal/auth"
)

var userCols = []string{
	"id", "org_id", "login_id", "password_hash", "full_name", "email",
	"role", "job_level", "is_active", "created_at", "last_login",
}

// ---- router helper ----------------------------------------------------------

func newRouter(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewHandlers(db)
	r := gin.New()
	r.POST("/organizations", h.CreateOrganizationHandler())
	r.POST("/auth/login", h.LoginHandler())

	return mock, r
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func userRowWithPassword(t *testing.T, role, password string) *sqlmock.Rows {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	return sqlmock.NewRows(userCols).
		AddRow("user-1", "org-1", "boblee", hash, "Bob Lee", "bob@example.com", role, "developer", true, time.Now(), nil)
}

// ---- CreateOrganization -----------------------------------------------------

func TestCreateOrganizationHandler_Success(t *testing.T) {
	mock, r := newRouter(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT.*FROM organizations.*WHERE name`).
		WithArgs("Acme").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("janedoe").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO organizations").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO activity_log").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	body := `{"name": "Acme", "admin_name": "Jane Doe", "admin_login_id": "janedoe", "admin_password": "secret1"}`
	w := postJSON(r, "/organizations", body)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	admin, ok := resp["admin"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "admin", admin["role"])
	assert.Equal(t, "👑 Jane Doe", admin["display_name"])
}

func TestCreateOrganizationHandler_DuplicateName(t *testing.T) {
	mock, r := newRouter(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT.*FROM organizations.*WHERE name`).
		WithArgs("Acme").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}).
			AddRow("org-9", "Acme", time.Now()))
	mock.ExpectRollback()

	body := `{"name": "Acme", "admin_name": "Jane Doe", "admin_login_id": "janedoe", "admin_password": "secret1"}`
	w := postJSON(r, "/organizations", body)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateOrganizationHandler_MissingFields(t *testing.T) {
	_, r := newRouter(t)

	w := postJSON(r, "/organizations", `{"name": "Acme"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ---- Login ------------------------------------------------------------------

func TestLoginHandler_Success(t *testing.T) {
	t.Setenv("FLOWDECK_JWT_SECRET", strings.Repeat("s", 32))
	mock, r := newRouter(t)

	mock.ExpectQuery(`SELECT.*FROM users.*WHERE login_id`).
		WithArgs("boblee").
		WillReturnRows(userRowWithPassword(t, "employee", "bob@123"))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET last_login").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO activity_log").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := postJSON(r, "/auth/login", `{"login_id": "boblee", "password": "bob@123"}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["token"])
	user, ok := resp["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "👤 Bob Lee", user["display_name"])
}

func TestLoginHandler_WrongPassword(t *testing.T) {
	mock, r := newRouter(t)

	mock.ExpectQuery(`SELECT.*FROM users.*WHERE login_id`).
		WithArgs("boblee").
		WillReturnRows(userRowWithPassword(t, "employee", "bob@123"))

	w := postJSON(r, "/auth/login", `{"login_id": "boblee", "password": "wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginHandler_RoleMismatchSurface(t *testing.T) {
	mock, r := newRouter(t)

	mock.ExpectQuery(`SELECT.*FROM users.*WHERE login_id`).
		WithArgs("boblee").
		WillReturnRows(userRowWithPassword(t, "employee", "bob@123"))

	w := postJSON(r, "/auth/login", `{"login_id": "boblee", "password": "bob@123", "surface": "admin"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLoginHandler_MissingPassword(t *testing.T) {
	_, r := newRouter(t)

	w := postJSON(r, "/auth/login", `{"login_id": "boblee"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
