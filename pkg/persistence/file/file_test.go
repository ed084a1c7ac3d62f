package file_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dripline/dripline/pkg/models"
	"github.com/dripline/dripline/pkg/persistence"
	"github.com/dripline/dripline/pkg/persistence/file"
	"github.com/dripline/dripline/pkg/testutil"
)

func setupStore(t *testing.T) *file.Persistence {
	t.Helper()

	return file.NewPersistence(t.TempDir())
}

func TestWorkflowRepository_SaveAndGet(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	trigger := testutil.CreateTestNode(testutil.WithType(models.NodeTypeTriggerStart))
	wf := testutil.CreateTestWorkflow([]*models.Node{trigger}, nil)

	require.NoError(t, store.WorkflowRepository().Save(ctx, wf))

	loaded, err := store.WorkflowRepository().GetByID(ctx, wf.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, wf.Name, loaded.Name)
	require.Len(t, loaded.Nodes, 1)
	assert.Equal(t, models.NodeTypeTriggerStart, loaded.Nodes[0].Type)
}

func TestWorkflowRepository_GetMissingReturnsNil(t *testing.T) {
	store := setupStore(t)

	loaded, err := store.WorkflowRepository().GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRunRepository_CreateRejectsDuplicates(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	run := testutil.CreateTestRun("wf-1", "lead-1", "node-1")
	require.NoError(t, store.RunRepository().Create(ctx, run))

	err := store.RunRepository().Create(ctx, run)
	require.Error(t, err)
	assert.ErrorIs(t, err, persistence.ErrRunAlreadyExists)
}

func TestRunRepository_UpdateFreshnessCheck(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	run := testutil.CreateTestRun("wf-1", "lead-1", "node-1")
	require.NoError(t, store.RunRepository().Create(ctx, run))

	// First writer wins and advances updated_at.
	winner := *run
	require.NoError(t, store.RunRepository().Update(ctx, &winner))

	// Second writer still holds the original updated_at.
	loser := *run
	loser.UpdatedAt = run.CreatedAt

	err := store.RunRepository().Update(ctx, &loser)
	require.Error(t, err)
	assert.True(t, persistence.IsStaleRun(err))
}

func TestRunRepository_UpdateAdvancesUpdatedAt(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	run := testutil.CreateTestRun("wf-1", "lead-1", "node-1")
	run.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	run.CreatedAt = run.UpdatedAt
	require.NoError(t, store.RunRepository().Create(ctx, run))

	before := run.UpdatedAt
	require.NoError(t, store.RunRepository().Update(ctx, run))
	assert.True(t, run.UpdatedAt.After(before))
}

func TestRunRepository_UpdateKeepsFactsMergedSinceLoad(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	run := testutil.CreateTestRun("wf-1", "lead-1", "node-1")
	require.NoError(t, store.RunRepository().Create(ctx, run))

	// The driver loads its working copy first.
	working, err := store.RunRepository().GetByID(ctx, run.ID)
	require.NoError(t, err)

	// Ingestion merges a reply fact while the driver holds that copy. The
	// merge does not move updated_at, so the driver's write still passes
	// the freshness check.
	facts := map[string]any{models.FactMessageReceived: true}
	require.NoError(t, store.RunRepository().MergeFacts(ctx, run.ID, facts, ""))

	next := "node-2"
	working.CurrentNodeID = &next
	require.NoError(t, store.RunRepository().Update(ctx, working))

	loaded, err := store.RunRepository().GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, loaded.HasFact(models.FactMessageReceived), "fact ingested during processing must survive the update")
	require.NotNil(t, loaded.CurrentNodeID)
	assert.Equal(t, next, *loaded.CurrentNodeID)
}

func TestRunRepository_MergeFactsPreservesUpdatedAt(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	run := testutil.CreateTestRun("wf-1", "lead-1", "node-1")
	run.UpdatedAt = time.Now().UTC().Add(-2 * time.Hour)
	run.CreatedAt = run.UpdatedAt
	require.NoError(t, store.RunRepository().Create(ctx, run))

	facts := map[string]any{models.FactConnectionAccepted: true}
	require.NoError(t, store.RunRepository().MergeFacts(ctx, run.ID, facts, ""))

	loaded, err := store.RunRepository().GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, loaded.HasFact(models.FactConnectionAccepted))
	assert.True(t, loaded.UpdatedAt.Equal(run.UpdatedAt), "merge must not move the transition anchor")
}

func TestRunRepository_MergeFactsWakesMatchingWaiter(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	event := models.FactMessageReceived
	run := testutil.CreateTestRun("wf-1", "lead-1", "node-1")
	run.Status = models.RunStatusWaiting
	run.WaitingForEvent = &event
	require.NoError(t, store.RunRepository().Create(ctx, run))

	facts := map[string]any{
		models.FactMessageReceived: true,
		models.FactMessageBody:     "tell me more",
	}
	require.NoError(t, store.RunRepository().MergeFacts(ctx, run.ID, facts, models.FactMessageReceived))

	loaded, err := store.RunRepository().GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, loaded.Status)
	assert.Nil(t, loaded.WaitingForEvent)
	assert.Equal(t, "tell me more", loaded.FactString(models.FactMessageBody))
}

func TestRunRepository_MergeFactsLeavesOtherWaitersParked(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	event := models.FactConnectionAccepted
	run := testutil.CreateTestRun("wf-1", "lead-1", "node-1")
	run.Status = models.RunStatusWaiting
	run.WaitingForEvent = &event
	require.NoError(t, store.RunRepository().Create(ctx, run))

	facts := map[string]any{models.FactMessageReceived: true}
	require.NoError(t, store.RunRepository().MergeFacts(ctx, run.ID, facts, models.FactMessageReceived))

	loaded, err := store.RunRepository().GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusWaiting, loaded.Status)
	require.NotNil(t, loaded.WaitingForEvent)
	assert.True(t, loaded.HasFact(models.FactMessageReceived))
}

func TestRunRepository_DueRuns(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	running := testutil.CreateTestRun("wf-1", "lead-1", "node-1")

	pastWake := now.Add(-time.Minute)
	dueWaiter := testutil.CreateTestRun("wf-1", "lead-2", "node-1")
	dueWaiter.Status = models.RunStatusWaiting
	dueWaiter.WaitingUntil = &pastWake

	futureWake := now.Add(time.Hour)
	earlyWaiter := testutil.CreateTestRun("wf-1", "lead-3", "node-1")
	earlyWaiter.Status = models.RunStatusWaiting
	earlyWaiter.WaitingUntil = &futureWake

	event := models.FactConnectionAccepted
	eventWaiter := testutil.CreateTestRun("wf-1", "lead-4", "node-1")
	eventWaiter.Status = models.RunStatusWaiting
	eventWaiter.WaitingForEvent = &event

	completed := testutil.CreateTestRun("wf-1", "lead-5", "node-1")
	completed.Status = models.RunStatusCompleted

	for _, run := range []*models.WorkflowRun{running, dueWaiter, earlyWaiter, eventWaiter, completed} {
		require.NoError(t, store.RunRepository().Create(ctx, run))
	}

	due, err := store.RunRepository().DueRuns(ctx, now, 10)
	require.NoError(t, err)

	ids := make([]string, 0, len(due))
	for _, run := range due {
		ids = append(ids, run.ID)
	}

	assert.Len(t, due, 3)
	assert.Contains(t, ids, running.ID)
	assert.Contains(t, ids, dueWaiter.ID)
	assert.Contains(t, ids, eventWaiter.ID)
	assert.NotContains(t, ids, earlyWaiter.ID)
	assert.NotContains(t, ids, completed.ID)
}

func TestRunRepository_ListFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	a := testutil.CreateTestRun("wf-1", "lead-1", "node-1")
	b := testutil.CreateTestRun("wf-2", "lead-1", "node-1")
	c := testutil.CreateTestRun("wf-1", "lead-2", "node-1")
	c.Status = models.RunStatusFailed

	for _, run := range []*models.WorkflowRun{a, b, c} {
		require.NoError(t, store.RunRepository().Create(ctx, run))
	}

	byLead, err := store.RunRepository().List(ctx, persistence.ListRunsOptions{LeadID: "lead-1"})
	require.NoError(t, err)
	assert.Len(t, byLead, 2)

	failed := models.RunStatusFailed
	byStatus, err := store.RunRepository().List(ctx, persistence.ListRunsOptions{Status: &failed})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, c.ID, byStatus[0].ID)
}

func TestEventLogRepository_AppendOrder(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for _, action := range []string{models.LogActionExecute, models.LogActionDelayStart, models.LogActionWorkflowCompleted} {
		err := store.EventLogRepository().Append(ctx, &models.EventLogEntry{
			RunID:  "run-1",
			Action: action,
		})
		require.NoError(t, err)
	}

	entries, err := store.EventLogRepository().ListByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, models.LogActionExecute, entries[0].Action)
	assert.Equal(t, models.LogActionWorkflowCompleted, entries[2].Action)

	for _, entry := range entries {
		assert.NotEmpty(t, entry.ID)
		assert.False(t, entry.CreatedAt.IsZero())
	}
}

func TestLeadRepository_Roundtrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	lead := testutil.CreateTestLead()
	lead.Attributes["industry"] = "manufacturing"

	require.NoError(t, store.LeadRepository().Save(ctx, lead))

	loaded, err := store.LeadRepository().GetByID(ctx, lead.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "manufacturing", loaded.Field("industry"))
	assert.Equal(t, lead.Email, loaded.Email)
}
