// user_repository.go implements UserRepository, providing database queries
// for organization members including lookups by login id, soft deactivation,
// and the active-admin count used by the last-admin invariant.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/flowdeck/flowdeck/internal/db/models"
	"github.com/google/uuid"
)

const userColumns = `id, org_id, login_id, password_hash, full_name, email, role, job_level, is_active, created_at, last_login`

// UserRepository handles user database operations
type UserRepository struct {
	q Querier
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{q: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *UserRepository) WithTx(tx *sql.Tx) *UserRepository {
	return &UserRepository{q: tx}
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var lastLogin sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.OrgID,
		&user.LoginID,
		&user.PasswordHash,
		&user.FullName,
		&user.Email,
		&user.Role,
		&user.JobLevel,
		&user.IsActive,
		&user.CreatedAt,
		&lastLogin,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}

	return user, nil
}

// Create inserts a new user, assigning its id and creation time
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = uuid.New().String()
	user.CreatedAt = time.Now()
	user.IsActive = true

	query := `
		INSERT INTO users (id, org_id, login_id, password_hash, full_name, email, role, job_level, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.ExecContext(ctx, query,
		user.ID,
		user.OrgID,
		user.LoginID,
		user.PasswordHash,
		user.FullName,
		user.Email,
		user.Role,
		user.JobLevel,
		user.IsActive,
		user.CreatedAt,
	)

	return err
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.q.QueryRowContext(ctx, query, userID))
}

// GetByIDInOrg retrieves a user by id scoped to an organization
func (r *UserRepository) GetByIDInOrg(ctx context.Context, userID, orgID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND org_id = $2`
	return scanUser(r.q.QueryRowContext(ctx, query, userID, orgID))
}

// GetByLoginID retrieves a user by their globally unique login id
func (r *UserRepository) GetByLoginID(ctx context.Context, loginID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE login_id = $1`
	return scanUser(r.q.QueryRowContext(ctx, query, loginID))
}

// LoginIDExists reports whether a login id is already taken
func (r *UserRepository) LoginIDExists(ctx context.Context, loginID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE login_id = $1)`
	err := r.q.QueryRowContext(ctx, query, loginID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// ListActiveByOrg retrieves all active users of an organization, newest first
func (r *UserRepository) ListActiveByOrg(ctx context.Context, orgID string) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE org_id = $1 AND is_active = TRUE
		ORDER BY created_at DESC
	`

	rows, err := r.q.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		var lastLogin sql.NullTime
		if err := rows.Scan(
			&user.ID,
			&user.OrgID,
			&user.LoginID,
			&user.PasswordHash,
			&user.FullName,
			&user.Email,
			&user.Role,
			&user.JobLevel,
			&user.IsActive,
			&user.CreatedAt,
			&lastLogin,
		); err != nil {
			return nil, err
		}
		if lastLogin.Valid {
			user.LastLogin = &lastLogin.Time
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// UpdateProfile updates a user's editable profile fields, scoped to the organization
func (r *UserRepository) UpdateProfile(ctx context.Context, userID, orgID, fullName, email, jobLevel string) (bool, error) {
	query := `
		UPDATE users SET full_name = $1, email = $2, job_level = $3
		WHERE id = $4 AND org_id = $5
	`

	result, err := r.q.ExecContext(ctx, query, fullName, email, jobLevel, userID, orgID)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// UpdatePasswordHash replaces a user's credential hash, scoped to the organization
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, userID, orgID, passwordHash string) (bool, error) {
	query := `
		UPDATE users SET password_hash = $1
		WHERE id = $2 AND org_id = $3
	`

	result, err := r.q.ExecContext(ctx, query, passwordHash, userID, orgID)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// UpdateLastLogin stamps the user's last successful login time
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID string) error {
	query := `UPDATE users SET last_login = NOW() WHERE id = $1`
	_, err := r.q.ExecContext(ctx, query, userID)
	return err
}

// Deactivate soft-deactivates a user, scoped to the organization. The row is
// kept so historical task and meeting references remain valid.
func (r *UserRepository) Deactivate(ctx context.Context, userID, orgID string) (bool, error) {
	query := `
		UPDATE users SET is_active = FALSE
		WHERE id = $1 AND org_id = $2 AND is_active = TRUE
	`

	result, err := r.q.ExecContext(ctx, query, userID, orgID)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// CountActiveAdmins returns the number of active admins in an organization
func (r *UserRepository) CountActiveAdmins(ctx context.Context, orgID string) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM users
		WHERE org_id = $1 AND role = 'admin' AND is_active = TRUE
	`
	err := r.q.QueryRowContext(ctx, query, orgID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountActiveByOrg returns the number of active users in an organization
func (r *UserRepository) CountActiveByOrg(ctx context.Context, orgID string) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM users
		WHERE org_id = $1 AND is_active = TRUE
	`
	err := r.q.QueryRowContext(ctx, query, orgID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// IsActive reports whether the given user exists in the organization and is active
func (r *UserRepository) IsActive(ctx context.Context, userID, orgID string) (bool, error) {
	var active bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM users
			WHERE id = $1 AND org_id = $2 AND is_active = TRUE
		)
	`
	err := r.q.QueryRowContext(ctx, query, userID, orgID).Scan(&active)
	if err != nil {
		return false, err
	}
	return active, nil
}
