// identity_service.go implements IdentityService: organization signup,
// authentication, and the admin-driven lifecycle of employee accounts with
// generated credentials.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowdeck/flowdeck/internal/auth"
	"github.com/flowdeck/flowdeck/internal/db/models"
	"github.com/flowdeck/flowdeck/internal/db/repositories"
	"github.com/flowdeck/flowdeck/internal/derive"
	"github.com/flowdeck/flowdeck/internal/integrity"
	"github.com/flowdeck/flowdeck/internal/telemetry"
)

// IdentityService manages organizations, accounts, and sessions.
type IdentityService struct {
	db       *sql.DB
	orgs     *repositories.OrganizationRepository
	users    *repositories.UserRepository
	recorder *integrity.Recorder
}

// NewIdentityService creates an IdentityService over the given database.
func NewIdentityService(db *sql.DB) *IdentityService {
	return &IdentityService{
		db:       db,
		orgs:     repositories.NewOrganizationRepository(db),
		users:    repositories.NewUserRepository(db),
		recorder: integrity.NewRecorder(repositories.NewActivityRepository(db)),
	}
}

// AdminProfile describes the first admin account created with an organization.
type AdminProfile struct {
	FullName string
	Email    string
	LoginID  string
}

// CreateOrganization provisions a new organization together with its first
// admin account in one transaction. The organization name and the admin's
// login id must be globally unique.
func (s *IdentityService) CreateOrganization(ctx context.Context, name string, admin AdminProfile, password, ip string) (*models.Organization, *models.User, error) {
	name = derive.SanitizeText(name)
	admin.FullName = derive.SanitizeText(admin.FullName)

	if name == "" || admin.FullName == "" || admin.LoginID == "" {
		return nil, nil, fmt.Errorf("%w: organization name, admin name, and login id are required", ErrValidation)
	}
	if len(password) < 6 {
		return nil, nil, fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	org := &models.Organization{Name: name}
	user := &models.User{
		LoginID:      admin.LoginID,
		PasswordHash: hash,
		FullName:     admin.FullName,
		Email:        admin.Email,
		Role:         models.RoleAdmin,
		JobLevel:     models.JobLevelAdmin,
	}

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		txOrgs := s.orgs.WithTx(tx)
		txUsers := s.users.WithTx(tx)

		existing, err := txOrgs.GetByName(ctx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrDuplicateName
		}

		taken, err := txUsers.LoginIDExists(ctx, admin.LoginID)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateLoginID
		}

		if err := txOrgs.Create(ctx, org); err != nil {
			return err
		}

		user.OrgID = org.ID
		if err := txUsers.Create(ctx, user); err != nil {
			return err
		}

		return s.recorder.Record(ctx, tx, &models.ActivityLog{
			UserID:      &user.ID,
			Action:      models.ActionCreate,
			EntityTable: models.EntityOrganizations,
			EntityID:    &org.ID,
			Details:     fmt.Sprintf("Organization '%s' created with admin '%s'", org.Name, user.LoginID),
			IPAddress:   ipPtr(ip),
		})
	})
	if err != nil {
		return nil, nil, err
	}

	slog.Info("organization created", "org_id", org.ID, "name", org.Name)
	return org, user, nil
}

// Authenticate verifies a login id and password and issues a session token.
// surface is the login surface the client presented ("admin" or "employee");
// a credential that verifies but belongs to the other role is rejected with
// ErrRoleMismatch. The check runs after credential verification, so it gates
// the surface, it does not hide whether the credential is valid. An empty
// surface skips the gate.
func (s *IdentityService) Authenticate(ctx context.Context, loginID, password, surface, ip string) (auth.Principal, string, error) {
	user, err := s.users.GetByLoginID(ctx, loginID)
	if err != nil {
		return auth.Principal{}, "", err
	}

	if user == nil || !user.IsActive || !auth.CheckPassword(user.PasswordHash, password) {
		telemetry.LoginsTotal.WithLabelValues("invalid").Inc()
		return auth.Principal{}, "", ErrInvalidCredentials
	}

	if surface != "" && surface != user.Role {
		telemetry.LoginsTotal.WithLabelValues("role_mismatch").Inc()
		return auth.Principal{}, "", ErrRoleMismatch
	}

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.users.WithTx(tx).UpdateLastLogin(ctx, user.ID); err != nil {
			return err
		}
		return s.recorder.Record(ctx, tx, &models.ActivityLog{
			UserID:      &user.ID,
			Action:      models.ActionLogin,
			EntityTable: models.EntityUsers,
			EntityID:    &user.ID,
			Details:     fmt.Sprintf("User '%s' logged in", user.LoginID),
			IPAddress:   ipPtr(ip),
		})
	})
	if err != nil {
		return auth.Principal{}, "", err
	}

	token, err := auth.GenerateJWT(user.ID, user.LoginID, user.Role, 24*time.Hour)
	if err != nil {
		return auth.Principal{}, "", fmt.Errorf("generate session token: %w", err)
	}

	telemetry.LoginsTotal.WithLabelValues("success").Inc()
	return auth.PrincipalFromUser(user), token, nil
}

// Logout records the end of a session. Token invalidation is client-side; the
// server side contribution is the audit entry.
func (s *IdentityService) Logout(ctx context.Context, principal auth.Principal, ip string) error {
	return runInTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.recorder.Record(ctx, tx, &models.ActivityLog{
			UserID:      &principal.UserID,
			Action:      models.ActionLogout,
			EntityTable: models.EntityUsers,
			EntityID:    &principal.UserID,
			Details:     fmt.Sprintf("User '%s' logged out", principal.LoginID),
			IPAddress:   ipPtr(ip),
		})
	})
}

// CreateEmployee creates an employee account with generated credentials: the
// login id is the lowercased concatenated full name (numeric suffix on
// collision) and the password is the lowercased first name followed by
// "@123". The plaintext password is returned exactly once for the admin to
// hand over; only its hash is stored.
func (s *IdentityService) CreateEmployee(ctx context.Context, actor auth.Principal, fullName, email, jobLevel, ip string) (*models.User, string, error) {
	if !actor.IsAdmin() {
		return nil, "", ErrPermissionDenied
	}

	fullName = derive.SanitizeText(fullName)
	if fullName == "" {
		return nil, "", fmt.Errorf("%w: full name is required", ErrValidation)
	}
	if jobLevel == "" {
		jobLevel = models.JobLevelDeveloper
	}
	if !models.ValidJobLevel(jobLevel) {
		return nil, "", fmt.Errorf("%w: unknown job level %q", ErrValidation, jobLevel)
	}

	password := auth.DefaultPassword(fullName)
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		OrgID:        actor.OrgID,
		PasswordHash: hash,
		FullName:     fullName,
		Email:        email,
		Role:         models.RoleEmployee,
		JobLevel:     jobLevel,
	}

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		txUsers := s.users.WithTx(tx)

		loginID, err := auth.GenerateLoginID(ctx, fullName, txUsers.LoginIDExists)
		if err != nil {
			return err
		}
		user.LoginID = loginID

		if err := txUsers.Create(ctx, user); err != nil {
			return err
		}

		return s.recorder.Record(ctx, tx, &models.ActivityLog{
			UserID:      &actor.UserID,
			Action:      models.ActionCreate,
			EntityTable: models.EntityUsers,
			EntityID:    &user.ID,
			Details:     fmt.Sprintf("Employee '%s' created with login id '%s'", user.FullName, user.LoginID),
			IPAddress:   ipPtr(ip),
		})
	})
	if err != nil {
		return nil, "", err
	}

	slog.Info("employee created", "user_id", user.ID, "org_id", user.OrgID, "login_id", user.LoginID)
	return user, password, nil
}

// EditUser updates an employee's profile fields, scoped to the actor's
// organization. An edit that changes nothing commits without an audit entry.
func (s *IdentityService) EditUser(ctx context.Context, actor auth.Principal, userID, fullName, email, jobLevel, ip string) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	fullName = derive.SanitizeText(fullName)
	if fullName == "" {
		return nil, fmt.Errorf("%w: full name is required", ErrValidation)
	}
	if !models.ValidJobLevel(jobLevel) {
		return nil, fmt.Errorf("%w: unknown job level %q", ErrValidation, jobLevel)
	}

	var updated *models.User
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		txUsers := s.users.WithTx(tx)

		target, err := txUsers.GetByIDInOrg(ctx, userID, actor.OrgID)
		if err != nil {
			return err
		}
		if target == nil {
			return ErrNotFound
		}

		if target.FullName == fullName && target.Email == email && target.JobLevel == jobLevel {
			updated = target
			return nil
		}

		if _, err := txUsers.UpdateProfile(ctx, userID, actor.OrgID, fullName, email, jobLevel); err != nil {
			return err
		}

		target.FullName = fullName
		target.Email = email
		target.JobLevel = jobLevel
		updated = target

		return s.recorder.Record(ctx, tx, &models.ActivityLog{
			UserID:      &actor.UserID,
			Action:      models.ActionUpdate,
			EntityTable: models.EntityUsers,
			EntityID:    &target.ID,
			Details:     fmt.Sprintf("Profile of '%s' updated", target.LoginID),
			IPAddress:   ipPtr(ip),
		})
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeactivateUser soft-deactivates an account. Self-deactivation is rejected,
// and the last active admin of an organization is protected. Deactivating an
// already-inactive user is a no-op.
func (s *IdentityService) DeactivateUser(ctx context.Context, actor auth.Principal, userID, ip string) error {
	if !actor.IsAdmin() {
		return ErrPermissionDenied
	}
	if userID == actor.UserID {
		return fmt.Errorf("%w: cannot deactivate your own account", ErrPermissionDenied)
	}

	return runInTx(ctx, s.db, func(tx *sql.Tx) error {
		txUsers := s.users.WithTx(tx)

		target, err := txUsers.GetByIDInOrg(ctx, userID, actor.OrgID)
		if err != nil {
			return err
		}
		if target == nil {
			return ErrNotFound
		}
		if !target.IsActive {
			return nil
		}

		if err := integrity.CheckNotLastActiveAdmin(ctx, txUsers, target); err != nil {
			return err
		}

		if _, err := txUsers.Deactivate(ctx, userID, actor.OrgID); err != nil {
			return err
		}

		return s.recorder.Record(ctx, tx, &models.ActivityLog{
			UserID:      &actor.UserID,
			Action:      models.ActionDeactivate,
			EntityTable: models.EntityUsers,
			EntityID:    &target.ID,
			Details:     fmt.Sprintf("User '%s' deactivated", target.LoginID),
			IPAddress:   ipPtr(ip),
		})
	})
}

// ResetCredential resets an account back to its generated default password
// and returns the new plaintext exactly once.
func (s *IdentityService) ResetCredential(ctx context.Context, actor auth.Principal, userID, ip string) (string, error) {
	if !actor.IsAdmin() {
		return "", ErrPermissionDenied
	}

	var password string
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		txUsers := s.users.WithTx(tx)

		target, err := txUsers.GetByIDInOrg(ctx, userID, actor.OrgID)
		if err != nil {
			return err
		}
		if target == nil {
			return ErrNotFound
		}

		password = auth.DefaultPassword(target.FullName)
		hash, err := auth.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		if _, err := txUsers.UpdatePasswordHash(ctx, userID, actor.OrgID, hash); err != nil {
			return err
		}

		return s.recorder.Record(ctx, tx, &models.ActivityLog{
			UserID:      &actor.UserID,
			Action:      models.ActionResetPassword,
			EntityTable: models.EntityUsers,
			EntityID:    &target.ID,
			Details:     fmt.Sprintf("Password of '%s' reset", target.LoginID),
			IPAddress:   ipPtr(ip),
		})
	})
	if err != nil {
		return "", err
	}

	return password, nil
}

// ListEmployees retrieves the active members of the actor's organization,
// newest first.
func (s *IdentityService) ListEmployees(ctx context.Context, actor auth.Principal) ([]*models.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	return s.users.ListActiveByOrg(ctx, actor.OrgID)
}
