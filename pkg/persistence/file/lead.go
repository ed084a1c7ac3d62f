package file

import (
	"context"
	"os"
	"time"

	"github.com/dripline/dripline/pkg/models"
)

const leadsDir = "leads"

// LeadRepository stores leads as JSON documents.
type LeadRepository struct {
	persistence *Persistence
}

func (r *LeadRepository) GetByID(_ context.Context, id string) (*models.Lead, error) {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	var lead models.Lead

	err := r.persistence.readDocument(leadsDir, id, &lead)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	return &lead, nil
}

func (r *LeadRepository) Save(_ context.Context, lead *models.Lead) error {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	now := time.Now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}

	lead.UpdatedAt = now

	return r.persistence.writeDocument(leadsDir, lead.ID, lead)
}
