// Package config loads YAML seed files used to bootstrap a local
// workspace: workflow graphs and leads applied to the store at startup.
package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dripline/dripline/pkg/models"
	"github.com/dripline/dripline/pkg/persistence"
)

// SeedFile is the on-disk shape of a seed file.
type SeedFile struct {
	Workflows []WorkflowSeed `yaml:"workflows"`
	Leads     []LeadSeed     `yaml:"leads"`
}

type WorkflowSeed struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Status      string         `yaml:"status"`
	Owner       string         `yaml:"owner"`
	Nodes       []NodeSeed     `yaml:"nodes"`
	Edges       []EdgeSeed     `yaml:"edges"`
}

type NodeSeed struct {
	ID     string         `yaml:"id"`
	Type   string         `yaml:"type"`
	Name   string         `yaml:"name"`
	Config map[string]any `yaml:"config"`
}

type EdgeSeed struct {
	ID     string `yaml:"id"`
	Source string `yaml:"source"`
	Target string `yaml:"target"`
	Branch string `yaml:"branch"`
}

type LeadSeed struct {
	ID          string         `yaml:"id"`
	Owner       string         `yaml:"owner"`
	FirstName   string         `yaml:"first_name"`
	LastName    string         `yaml:"last_name"`
	Company     string         `yaml:"company"`
	Title       string         `yaml:"title"`
	Email       string         `yaml:"email"`
	LinkedinURL string         `yaml:"linkedin_url"`
	Attributes  map[string]any `yaml:"attributes"`
}

// LoadSeedFile parses a YAML seed file into storable models.
func LoadSeedFile(path string) ([]*models.Workflow, []*models.Lead, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	var file SeedFile

	err = yaml.Unmarshal(data, &file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	now := time.Now().UTC()
	workflows := make([]*models.Workflow, 0, len(file.Workflows))

	for i, seed := range file.Workflows {
		if seed.ID == "" {
			return nil, nil, fmt.Errorf("seed workflow %d has no id", i)
		}

		status := models.WorkflowStatus(seed.Status)
		if status == "" {
			status = models.WorkflowStatusActive
		}

		wf := &models.Workflow{
			ID:          seed.ID,
			Name:        seed.Name,
			Description: seed.Description,
			Status:      status,
			Owner:       seed.Owner,
			Nodes:       make([]*models.Node, 0, len(seed.Nodes)),
			Edges:       make([]*models.Edge, 0, len(seed.Edges)),
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		for _, node := range seed.Nodes {
			wf.Nodes = append(wf.Nodes, &models.Node{
				ID:     node.ID,
				Type:   node.Type,
				Name:   node.Name,
				Config: node.Config,
			})
		}

		for j, edge := range seed.Edges {
			id := edge.ID
			if id == "" {
				id = fmt.Sprintf("%s-edge-%d", seed.ID, j)
			}

			wf.Edges = append(wf.Edges, &models.Edge{
				ID:     id,
				Source: edge.Source,
				Target: edge.Target,
				Branch: edge.Branch,
			})
		}

		workflows = append(workflows, wf)
	}

	leads := make([]*models.Lead, 0, len(file.Leads))

	for i, seed := range file.Leads {
		if seed.ID == "" {
			return nil, nil, fmt.Errorf("seed lead %d has no id", i)
		}

		leads = append(leads, &models.Lead{
			ID:          seed.ID,
			Owner:       seed.Owner,
			FirstName:   seed.FirstName,
			LastName:    seed.LastName,
			Company:     seed.Company,
			Title:       seed.Title,
			Email:       seed.Email,
			LinkedinURL: seed.LinkedinURL,
			Attributes:  seed.Attributes,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	return workflows, leads, nil
}

// ApplySeed upserts seed workflows and leads into the store. Existing runs
// are left alone.
func ApplySeed(ctx context.Context, p persistence.Persistence, workflows []*models.Workflow, leads []*models.Lead) error {
	for _, wf := range workflows {
		err := p.WorkflowRepository().Save(ctx, wf)
		if err != nil {
			return fmt.Errorf("failed to seed workflow %s: %w", wf.ID, err)
		}
	}

	for _, lead := range leads {
		err := p.LeadRepository().Save(ctx, lead)
		if err != nil {
			return fmt.Errorf("failed to seed lead %s: %w", lead.ID, err)
		}
	}

	return nil
}
