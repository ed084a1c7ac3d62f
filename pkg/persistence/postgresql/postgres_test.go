//go:build integration
// +build integration

package postgresql

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/dripline/dripline/pkg/models"
	"github.com/dripline/dripline/pkg/persistence"
)

var postgresContainer *postgres.PostgresContainer

func TestMain(m *testing.M) {
	code := m.Run()

	if postgresContainer != nil {
		_ = postgresContainer.Terminate(context.Background())
	}

	os.Exit(code)
}

func setupTestDB(t *testing.T) (*Persistence, context.Context) {
	ctx := context.Background()

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error
		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("dripline_test"),
			postgres.WithUsername("dripline"),
			postgres.WithPassword("dripline"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	cleanupDB(t, databaseURL)
	t.Cleanup(func() { _ = store.Close(ctx) })

	return store, ctx
}

func cleanupDB(t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecContext(context.Background(),
		"TRUNCATE TABLE run_event_log, workflow_runs, leads, workflows")
	require.NoError(t, err)
}

func seed(t *testing.T, ctx context.Context, store *Persistence) (*models.Workflow, *models.Lead) {
	t.Helper()

	now := time.Now().UTC()
	wf := &models.Workflow{
		ID:     uuid.New().String(),
		Name:   "Outreach sequence",
		Status: models.WorkflowStatusActive,
		Nodes: []*models.Node{
			{ID: "start", Type: models.NodeTypeTriggerStart},
			{ID: "connect", Type: models.NodeTypeActionLinkedinConnect},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "start", Target: "connect"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.WorkflowRepository().Save(ctx, wf))

	lead := &models.Lead{
		ID:        uuid.New().String(),
		FirstName: "Grace",
		LastName:  "Hopper",
		Company:   "Navy",
		Attributes: map[string]any{
			"industry": "defense",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.LeadRepository().Save(ctx, lead))

	return wf, lead
}

func newRun(wf *models.Workflow, lead *models.Lead) *models.WorkflowRun {
	now := time.Now().UTC()
	nodeID := "start"

	return &models.WorkflowRun{
		ID:            uuid.New().String(),
		WorkflowID:    wf.ID,
		LeadID:        lead.ID,
		CurrentNodeID: &nodeID,
		Status:        models.RunStatusRunning,
		Context:       map[string]any{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestWorkflowRepository_Roundtrip(t *testing.T) {
	store, ctx := setupTestDB(t)

	wf, _ := seed(t, ctx, store)

	fetched, err := store.WorkflowRepository().GetByID(ctx, wf.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, wf.Name, fetched.Name)
	require.Len(t, fetched.Nodes, 2)
	assert.Equal(t, "start", fetched.Nodes[0].ID)

	missing, err := store.WorkflowRepository().GetByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := store.WorkflowRepository().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRunRepository_CASOnUpdatedAt(t *testing.T) {
	store, ctx := setupTestDB(t)

	wf, lead := seed(t, ctx, store)
	run := newRun(wf, lead)
	require.NoError(t, store.RunRepository().Create(ctx, run))

	winner, err := store.RunRepository().GetByID(ctx, run.ID)
	require.NoError(t, err)

	loser, err := store.RunRepository().GetByID(ctx, run.ID)
	require.NoError(t, err)

	winner.Status = models.RunStatusWaiting
	require.NoError(t, store.RunRepository().Update(ctx, winner))

	loser.Status = models.RunStatusFailed
	err = store.RunRepository().Update(ctx, loser)
	require.Error(t, err)
	assert.True(t, persistence.IsStaleRun(err))
}

func TestRunRepository_MergeFactsPreservesAnchor(t *testing.T) {
	store, ctx := setupTestDB(t)

	wf, lead := seed(t, ctx, store)
	run := newRun(wf, lead)
	require.NoError(t, store.RunRepository().Create(ctx, run))

	before, err := store.RunRepository().GetByID(ctx, run.ID)
	require.NoError(t, err)

	facts := map[string]any{models.FactMessageBody: "saw your talk"}
	require.NoError(t, store.RunRepository().MergeFacts(ctx, run.ID, facts, ""))

	after, err := store.RunRepository().GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "saw your talk", after.Context[models.FactMessageBody])
	assert.True(t, after.UpdatedAt.Equal(before.UpdatedAt))
}

func TestRunRepository_UpdateKeepsFactsMergedSinceLoad(t *testing.T) {
	store, ctx := setupTestDB(t)

	wf, lead := seed(t, ctx, store)
	run := newRun(wf, lead)
	require.NoError(t, store.RunRepository().Create(ctx, run))

	// The driver loads its working copy first.
	working, err := store.RunRepository().GetByID(ctx, run.ID)
	require.NoError(t, err)

	// Ingestion merges a reply fact while the driver holds that copy. The
	// merge does not move updated_at, so the driver's write still passes
	// the freshness check.
	facts := map[string]any{models.FactMessageReceived: true}
	require.NoError(t, store.RunRepository().MergeFacts(ctx, run.ID, facts, ""))

	next := "connect"
	working.CurrentNodeID = &next
	require.NoError(t, store.RunRepository().Update(ctx, working))

	loaded, err := store.RunRepository().GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, loaded.HasFact(models.FactMessageReceived), "fact ingested during processing must survive the update")
	require.NotNil(t, loaded.CurrentNodeID)
	assert.Equal(t, next, *loaded.CurrentNodeID)
}

func TestRunRepository_MergeFactsWakesWaiter(t *testing.T) {
	store, ctx := setupTestDB(t)

	wf, lead := seed(t, ctx, store)
	run := newRun(wf, lead)
	require.NoError(t, store.RunRepository().Create(ctx, run))

	parked, err := store.RunRepository().GetByID(ctx, run.ID)
	require.NoError(t, err)

	waitFor := models.FactMessageReceived
	parked.Status = models.RunStatusWaiting
	parked.WaitingForEvent = &waitFor
	require.NoError(t, store.RunRepository().Update(ctx, parked))

	facts := map[string]any{models.FactMessageReceived: true}
	require.NoError(t, store.RunRepository().MergeFacts(ctx, run.ID, facts, models.FactMessageReceived))

	woken, err := store.RunRepository().GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, woken.Status)
	assert.Nil(t, woken.WaitingForEvent)
}

func TestRunRepository_DueRuns(t *testing.T) {
	store, ctx := setupTestDB(t)

	wf, lead := seed(t, ctx, store)
	now := time.Now().UTC()

	running := newRun(wf, lead)
	require.NoError(t, store.RunRepository().Create(ctx, running))

	sleeping := newRun(wf, lead)
	require.NoError(t, store.RunRepository().Create(ctx, sleeping))
	parked, err := store.RunRepository().GetByID(ctx, sleeping.ID)
	require.NoError(t, err)
	future := now.Add(time.Hour)
	parked.Status = models.RunStatusWaiting
	parked.WaitingUntil = &future
	require.NoError(t, store.RunRepository().Update(ctx, parked))

	due, err := store.RunRepository().DueRuns(ctx, now, 50)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, running.ID, due[0].ID)

	// Once the wait elapses the sleeper is picked too.
	due, err = store.RunRepository().DueRuns(ctx, now.Add(2*time.Hour), 50)
	require.NoError(t, err)
	assert.Len(t, due, 2)
}

func TestEventLogRepository_AppendAndList(t *testing.T) {
	store, ctx := setupTestDB(t)

	wf, lead := seed(t, ctx, store)
	run := newRun(wf, lead)
	require.NoError(t, store.RunRepository().Create(ctx, run))

	for _, action := range []string{models.LogActionExecute, models.LogActionDelayStart} {
		entry := &models.EventLogEntry{
			RunID:    run.ID,
			NodeID:   "start",
			NodeType: models.NodeTypeTriggerStart,
			Action:   action,
			Outcome:  models.LogOutcomeSuccess,
		}
		require.NoError(t, store.EventLogRepository().Append(ctx, entry))
	}

	entries, err := store.EventLogRepository().ListByRun(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.LogActionExecute, entries[0].Action)
	assert.Equal(t, models.LogActionDelayStart, entries[1].Action)
	assert.NotEmpty(t, entries[0].ID)
}

func TestLeadRepository_Roundtrip(t *testing.T) {
	store, ctx := setupTestDB(t)

	_, lead := seed(t, ctx, store)

	fetched, err := store.LeadRepository().GetByID(ctx, lead.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "Grace", fetched.FirstName)
	assert.Equal(t, "defense", fetched.Attributes["industry"])

	assert.Equal(t, "Navy", fetched.Field("company"))
}
