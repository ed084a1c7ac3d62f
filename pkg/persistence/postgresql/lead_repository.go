package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dripline/dripline/pkg/models"
)

// LeadRepository handles lead-related database operations. The engine only
// reads leads; writes come from the import and CRM surfaces.
type LeadRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewLeadRepository creates a new lead repository.
func NewLeadRepository(db *sql.DB, logger *slog.Logger) *LeadRepository {
	return &LeadRepository{db: db, logger: logger}
}

// GetByID returns a lead by its ID, or nil when it does not exist.
func (r *LeadRepository) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	query := `
		SELECT
			id
		  , owner
		  , first_name
		  , last_name
		  , company
		  , title
		  , email
		  , linkedin_url
		  , attributes
		  , created_at
		  , updated_at
		FROM leads
		WHERE id = $1
	`

	var (
		lead           models.Lead
		attributesJSON []byte
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&lead.ID,
		&lead.Owner,
		&lead.FirstName,
		&lead.LastName,
		&lead.Company,
		&lead.Title,
		&lead.Email,
		&lead.LinkedinURL,
		&attributesJSON,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan lead: %w", err)
	}

	err = json.Unmarshal(attributesJSON, &lead.Attributes)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal lead attributes: %w", err)
	}

	return &lead, nil
}

// Save upserts a lead.
func (r *LeadRepository) Save(ctx context.Context, lead *models.Lead) error {
	now := time.Now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}

	lead.UpdatedAt = now

	attributesJSON, err := json.Marshal(orEmptyContext(lead.Attributes))
	if err != nil {
		return fmt.Errorf("failed to marshal lead attributes: %w", err)
	}

	query := `
		INSERT INTO leads (id, owner, first_name, last_name, company, title, email, linkedin_url, attributes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			owner = EXCLUDED.owner
		  , first_name = EXCLUDED.first_name
		  , last_name = EXCLUDED.last_name
		  , company = EXCLUDED.company
		  , title = EXCLUDED.title
		  , email = EXCLUDED.email
		  , linkedin_url = EXCLUDED.linkedin_url
		  , attributes = EXCLUDED.attributes
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		lead.ID,
		lead.Owner,
		lead.FirstName,
		lead.LastName,
		lead.Company,
		lead.Title,
		lead.Email,
		lead.LinkedinURL,
		attributesJSON,
		lead.CreatedAt,
		lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save lead: %w", err)
	}

	return nil
}
