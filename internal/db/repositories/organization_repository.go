// organization_repository.go implements OrganizationRepository, providing
// database queries for the tenancy root.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/flowdeck/flowdeck/internal/db/models"
	"github.com/google/uuid"
)

// OrganizationRepository handles organization database operations
type OrganizationRepository struct {
	q Querier
}

// NewOrganizationRepository creates a new OrganizationRepository
func NewOrganizationRepository(db *sql.DB) *OrganizationRepository {
	return &OrganizationRepository{q: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *OrganizationRepository) WithTx(tx *sql.Tx) *OrganizationRepository {
	return &OrganizationRepository{q: tx}
}

// Create inserts a new organization, assigning its id and creation time
func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	org.ID = uuid.New().String()
	org.CreatedAt = time.Now()

	query := `
		INSERT INTO organizations (id, name, created_at)
		VALUES ($1, $2, $3)
	`

	_, err := r.q.ExecContext(ctx, query, org.ID, org.Name, org.CreatedAt)
	return err
}

// GetByID retrieves an organization by id
func (r *OrganizationRepository) GetByID(ctx context.Context, orgID string) (*models.Organization, error) {
	query := `
		SELECT id, name, created_at
		FROM organizations
		WHERE id = $1
	`

	org := &models.Organization{}
	err := r.q.QueryRowContext(ctx, query, orgID).Scan(&org.ID, &org.Name, &org.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return org, nil
}

// GetByName retrieves an organization by its globally unique name
func (r *OrganizationRepository) GetByName(ctx context.Context, name string) (*models.Organization, error) {
	query := `
		SELECT id, name, created_at
		FROM organizations
		WHERE name = $1
	`

	org := &models.Organization{}
	err := r.q.QueryRowContext(ctx, query, name).Scan(&org.ID, &org.Name, &org.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return org, nil
}

// Count returns the total number of organizations
func (r *OrganizationRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM organizations`).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
