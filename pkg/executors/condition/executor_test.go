package condition_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dripline/dripline/pkg/executors/condition"
	"github.com/dripline/dripline/pkg/mocks"
	"github.com/dripline/dripline/pkg/models"
	"github.com/dripline/dripline/pkg/persistence/file"
	"github.com/dripline/dripline/pkg/protocol"
	"github.com/dripline/dripline/pkg/testutil"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupExecutor(t *testing.T, checker protocol.ConnectionChecker) (*condition.Executor, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	return condition.NewExecutor(store.EventLogRepository(), checker, newTestLogger()), store
}

func newState(node *models.Node) protocol.ExecutionState {
	lead := testutil.CreateTestLead()
	run := testutil.CreateTestRun("wf-1", lead.ID, node.ID)

	return protocol.ExecutionState{
		Run:  run,
		Node: node,
		Lead: lead,
		Now:  time.Now().UTC(),
	}
}

func TestConnectionAccepted_FactPresent(t *testing.T) {
	executor, store := setupExecutor(t, nil)

	node := testutil.CreateTestNode(testutil.WithType(models.NodeTypeConditionConnectionAccepted))
	state := newState(node)
	state.Run.SetFact(models.FactConnectionAccepted, true)

	outcome, err := executor.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, protocol.OutcomeAdvanced, outcome.Status)
	assert.Equal(t, models.BranchYes, outcome.Branch)

	entries, err := store.EventLogRepository().ListByRun(context.Background(), state.Run.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.LogActionConditionYes, entries[0].Action)
}

func TestConnectionAccepted_PollConfirms(t *testing.T) {
	checker := &mocks.MockConnectionChecker{}
	checker.On("ConnectionAccepted", mock.Anything, mock.Anything).Return(true, nil)

	executor, _ := setupExecutor(t, checker)

	node := testutil.CreateTestNode(testutil.WithType(models.NodeTypeConditionConnectionAccepted))
	state := newState(node)

	outcome, err := executor.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, protocol.OutcomeAdvanced, outcome.Status)
	assert.Equal(t, models.BranchYes, outcome.Branch)
	assert.True(t, state.Run.HasFact(models.FactConnectionAccepted))
}

func TestConnectionAccepted_PollErrorWaits(t *testing.T) {
	checker := &mocks.MockConnectionChecker{}
	checker.On("ConnectionAccepted", mock.Anything, mock.Anything).
		Return(false, errors.New("proxy unavailable"))

	executor, _ := setupExecutor(t, checker)

	node := testutil.CreateTestNode(testutil.WithType(models.NodeTypeConditionConnectionAccepted))
	state := newState(node)

	outcome, err := executor.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, protocol.OutcomeSuspended, outcome.Status)
	require.NotNil(t, state.Run.WaitingForEvent)
	assert.Equal(t, models.FactConnectionAccepted, *state.Run.WaitingForEvent)
	assert.Nil(t, state.Run.WaitingUntil)
}

func TestConnectionAccepted_TimeoutTakesNoBranch(t *testing.T) {
	executor, _ := setupExecutor(t, nil)

	node := testutil.CreateTestNode(
		testutil.WithType(models.NodeTypeConditionConnectionAccepted),
		testutil.WithConfig(map[string]any{"timeout_days": 7}),
	)
	state := newState(node)
	state.Run.UpdatedAt = state.Now.Add(-8 * 24 * time.Hour)

	outcome, err := executor.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, protocol.OutcomeAdvanced, outcome.Status)
	assert.Equal(t, models.BranchNo, outcome.Branch)
}

func TestConnectionAccepted_NoTimeoutWaitsIndefinitely(t *testing.T) {
	executor, _ := setupExecutor(t, nil)

	node := testutil.CreateTestNode(testutil.WithType(models.NodeTypeConditionConnectionAccepted))
	state := newState(node)
	state.Run.UpdatedAt = state.Now.Add(-365 * 24 * time.Hour)

	outcome, err := executor.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, protocol.OutcomeSuspended, outcome.Status)
}

func TestMessageReceived_KeywordMatch(t *testing.T) {
	executor, _ := setupExecutor(t, nil)

	node := testutil.CreateTestNode(
		testutil.WithType(models.NodeTypeConditionMessageReceived),
		testutil.WithConfig(map[string]any{"keyword": "interested"}),
	)
	state := newState(node)
	state.Run.SetFact(models.FactMessageReceived, true)
	state.Run.SetFact(models.FactMessageBody, "Yes, I am INTERESTED in a demo")

	outcome, err := executor.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, protocol.OutcomeAdvanced, outcome.Status)
	assert.Equal(t, models.BranchYes, outcome.Branch)
}

func TestMessageReceived_KeywordMiss(t *testing.T) {
	executor, _ := setupExecutor(t, nil)

	node := testutil.CreateTestNode(
		testutil.WithType(models.NodeTypeConditionMessageReceived),
		testutil.WithConfig(map[string]any{"keyword": "pricing"}),
	)
	state := newState(node)
	state.Run.SetFact(models.FactMessageReceived, true)
	state.Run.SetFact(models.FactMessageBody, "not right now thanks")

	outcome, err := executor.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, protocol.OutcomeAdvanced, outcome.Status)
	assert.Equal(t, models.BranchNo, outcome.Branch)
}

func TestMessageReceived_NoFactWaitsOnEvent(t *testing.T) {
	executor, _ := setupExecutor(t, nil)

	node := testutil.CreateTestNode(testutil.WithType(models.NodeTypeConditionMessageReceived))
	state := newState(node)

	outcome, err := executor.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, protocol.OutcomeSuspended, outcome.Status)
	require.NotNil(t, state.Run.WaitingForEvent)
	assert.Equal(t, models.FactMessageReceived, *state.Run.WaitingForEvent)
}

func TestLeadAttribute_Operators(t *testing.T) {
	tests := []struct {
		name     string
		config   map[string]any
		expected string
	}{
		{
			name:     "equals case-insensitive",
			config:   map[string]any{"field": "company", "operator": "equals", "value": "analytical engines"},
			expected: models.BranchYes,
		},
		{
			name:     "contains",
			config:   map[string]any{"field": "title", "operator": "contains", "value": "gineer"},
			expected: models.BranchYes,
		},
		{
			name:     "starts_with miss",
			config:   map[string]any{"field": "first_name", "operator": "starts_with", "value": "Bo"},
			expected: models.BranchNo,
		},
		{
			name:     "ends_with",
			config:   map[string]any{"field": "email", "operator": "ends_with", "value": "@EXAMPLE.COM"},
			expected: models.BranchYes,
		},
		{
			name:     "is_empty on missing attribute",
			config:   map[string]any{"field": "industry", "operator": "is_empty"},
			expected: models.BranchYes,
		},
		{
			name:     "is_not_empty",
			config:   map[string]any{"field": "linkedin_url", "operator": "is_not_empty"},
			expected: models.BranchYes,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			executor, _ := setupExecutor(t, nil)

			node := testutil.CreateTestNode(
				testutil.WithType(models.NodeTypeConditionLeadAttribute),
				testutil.WithConfig(tc.config),
			)
			state := newState(node)

			outcome, err := executor.Execute(context.Background(), state)
			require.NoError(t, err)
			assert.Equal(t, protocol.OutcomeAdvanced, outcome.Status)
			assert.Equal(t, tc.expected, outcome.Branch)
		})
	}
}

func TestLeadAttribute_UnknownOperatorFails(t *testing.T) {
	executor, _ := setupExecutor(t, nil)

	node := testutil.CreateTestNode(
		testutil.WithType(models.NodeTypeConditionLeadAttribute),
		testutil.WithConfig(map[string]any{"field": "company", "operator": "matches_regex", "value": ".*"}),
	)
	state := newState(node)

	outcome, err := executor.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, protocol.OutcomeFailed, outcome.Status)
}

func TestElapsedTime_NotYetSuspendsWithWakeTime(t *testing.T) {
	executor, _ := setupExecutor(t, nil)

	node := testutil.CreateTestNode(
		testutil.WithType(models.NodeTypeConditionElapsedTime),
		testutil.WithConfig(map[string]any{"duration": 3, "unit": "days"}),
	)
	state := newState(node)
	state.Run.UpdatedAt = state.Now.Add(-24 * time.Hour)

	outcome, err := executor.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, protocol.OutcomeSuspended, outcome.Status)
	require.NotNil(t, state.Run.WaitingUntil)
	assert.Equal(t, state.Run.UpdatedAt.Add(3*24*time.Hour), *state.Run.WaitingUntil)
	assert.Nil(t, state.Run.WaitingForEvent)
}

func TestElapsedTime_ElapsedTakesYesBranch(t *testing.T) {
	executor, _ := setupExecutor(t, nil)

	node := testutil.CreateTestNode(
		testutil.WithType(models.NodeTypeConditionElapsedTime),
		testutil.WithConfig(map[string]any{"duration": 2, "unit": "hours"}),
	)
	state := newState(node)
	state.Run.UpdatedAt = state.Now.Add(-3 * time.Hour)

	outcome, err := executor.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, protocol.OutcomeAdvanced, outcome.Status)
	assert.Equal(t, models.BranchYes, outcome.Branch)
}

func TestUnknownConditionTypeFails(t *testing.T) {
	executor, _ := setupExecutor(t, nil)

	node := testutil.CreateTestNode(testutil.WithType("condition_moon_phase"))
	state := newState(node)

	outcome, err := executor.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, protocol.OutcomeFailed, outcome.Status)
}

func mockAnything() any {
	return testifyMatchLead{}
}

type testifyMatchLead struct{}
