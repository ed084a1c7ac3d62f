package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dripline/dripline/pkg/models"
	"github.com/dripline/dripline/pkg/persistence/file"
)

const seedYAML = `
workflows:
  - id: warm-outreach
    name: Warm outreach
    nodes:
      - id: start
        type: trigger_start
      - id: connect
        type: action_linkedin_connect
        config:
          note: "Enjoyed your post on onboarding."
      - id: accepted
        type: condition_connection_accepted
        config:
          timeout_days: 14
    edges:
      - source: start
        target: connect
      - source: connect
        target: accepted
leads:
  - id: lead-1
    first_name: Margaret
    last_name: Hamilton
    company: Draper
    attributes:
      industry: aerospace
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadSeedFile(t *testing.T) {
	workflows, leads, err := LoadSeedFile(writeSeed(t, seedYAML))
	require.NoError(t, err)

	require.Len(t, workflows, 1)
	wf := workflows[0]
	assert.Equal(t, "warm-outreach", wf.ID)
	assert.Equal(t, models.WorkflowStatusActive, wf.Status)
	require.Len(t, wf.Nodes, 3)
	assert.Equal(t, models.NodeTypeActionLinkedinConnect, wf.Nodes[1].Type)
	assert.Equal(t, "Enjoyed your post on onboarding.", wf.Nodes[1].Config["note"])
	require.Len(t, wf.Edges, 2)
	assert.NotEmpty(t, wf.Edges[0].ID)

	require.Len(t, leads, 1)
	assert.Equal(t, "Margaret", leads[0].FirstName)
	assert.Equal(t, "aerospace", leads[0].Attributes["industry"])
}

func TestLoadSeedFile_Errors(t *testing.T) {
	_, _, err := LoadSeedFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	_, _, err = LoadSeedFile(writeSeed(t, "workflows: ["))
	assert.Error(t, err)

	_, _, err = LoadSeedFile(writeSeed(t, "workflows:\n  - name: no id\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no id")
}

func TestApplySeed(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	ctx := context.Background()

	workflows, leads, err := LoadSeedFile(writeSeed(t, seedYAML))
	require.NoError(t, err)
	require.NoError(t, ApplySeed(ctx, store, workflows, leads))

	wf, err := store.WorkflowRepository().GetByID(ctx, "warm-outreach")
	require.NoError(t, err)
	require.NotNil(t, wf)

	lead, err := store.LeadRepository().GetByID(ctx, "lead-1")
	require.NoError(t, err)
	require.NotNil(t, lead)
	assert.Equal(t, "Hamilton", lead.LastName)
}
