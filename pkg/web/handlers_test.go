package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dripline/dripline/pkg/engine"
	"github.com/dripline/dripline/pkg/mocks"
	"github.com/dripline/dripline/pkg/models"
	"github.com/dripline/dripline/pkg/persistence/file"
	"github.com/dripline/dripline/pkg/registry"
	"github.com/dripline/dripline/pkg/services"
	"github.com/dripline/dripline/pkg/testutil"
	"github.com/dripline/dripline/pkg/web"
)

type fixedTicker struct {
	summary engine.TickSummary
}

func (f *fixedTicker) ProcessDueRuns(_ context.Context, _ time.Time) (engine.TickSummary, error) {
	return f.summary, nil
}

type testServer struct {
	app   *fiber.App
	store *file.Persistence
	bus   *mocks.MockEventBus
}

func newTestServer(t *testing.T, driver web.TickDriver) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store := file.NewPersistence(t.TempDir())
	reg := registry.NewRegistry(logger)
	bus := &mocks.MockEventBus{}

	handlers := web.NewAPIHandlers(
		services.NewWorkflow(store, reg),
		services.NewRun(store),
		services.NewSignal(bus, logger),
		driver,
		validator.New(),
	)

	app := fiber.New()
	app.Get("/workflows", handlers.GetWorkflows)
	app.Post("/workflows", handlers.SaveWorkflow)
	app.Get("/workflows/:id", handlers.GetWorkflow)
	app.Delete("/workflows/:id", handlers.DeleteWorkflow)
	app.Get("/runs", handlers.GetRuns)
	app.Post("/runs", handlers.StartRun)
	app.Get("/runs/:id", handlers.GetRun)
	app.Get("/runs/:id/timeline", handlers.GetRunTimeline)
	app.Post("/events", handlers.PostChannelEvent)
	app.Post("/engine/tick", handlers.Tick)
	app.Get("/health", handlers.HealthCheck)

	return &testServer{app: app, store: store, bus: bus}
}

func (s *testServer) request(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	return resp, raw
}

func workflowPayload() map[string]any {
	return map[string]any{
		"name": "LinkedIn warm outreach",
		"nodes": []map[string]any{
			{"id": "start", "type": models.NodeTypeTriggerStart},
			{"id": "task", "type": models.NodeTypeActionManualTask},
		},
		"edges": []map[string]any{
			{"id": "e1", "source": "start", "target": "task"},
		},
	}
}

func TestSaveWorkflow(t *testing.T) {
	server := newTestServer(t, nil)

	resp, raw := server.request(t, http.MethodPost, "/workflows", workflowPayload())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Workflow
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.WorkflowStatusActive, created.Status)

	resp, raw = server.request(t, http.MethodGet, "/workflows/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched models.Workflow
	require.NoError(t, json.Unmarshal(raw, &fetched))
	assert.Equal(t, created.ID, fetched.ID)
}

func TestSaveWorkflow_ValidationProblems(t *testing.T) {
	server := newTestServer(t, nil)

	// Name too short fails request validation.
	short := workflowPayload()
	short["name"] = "ab"
	resp, raw := server.request(t, http.MethodPost, "/workflows", short)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(raw), "Name")

	// Structurally invalid graph fails service validation.
	noTrigger := workflowPayload()
	noTrigger["nodes"] = []map[string]any{{"id": "task", "type": models.NodeTypeActionManualTask}}
	noTrigger["edges"] = []map[string]any{}
	resp, raw = server.request(t, http.MethodPost, "/workflows", noTrigger)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(raw), "trigger")
}

func TestGetWorkflow_NotFound(t *testing.T) {
	server := newTestServer(t, nil)

	resp, _ := server.request(t, http.MethodGet, "/workflows/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartRun_Lifecycle(t *testing.T) {
	server := newTestServer(t, nil)
	ctx := context.Background()

	resp, raw := server.request(t, http.MethodPost, "/workflows", workflowPayload())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var wf models.Workflow
	require.NoError(t, json.Unmarshal(raw, &wf))

	lead := testutil.CreateTestLead()
	require.NoError(t, server.store.LeadRepository().Save(ctx, lead))

	start := map[string]any{"workflow_id": wf.ID, "lead_id": lead.ID}
	resp, raw = server.request(t, http.MethodPost, "/runs", start)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var run models.WorkflowRun
	require.NoError(t, json.Unmarshal(raw, &run))
	assert.Equal(t, models.RunStatusRunning, run.Status)

	// Duplicate enrollment conflicts.
	resp, _ = server.request(t, http.MethodPost, "/runs", start)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, raw = server.request(t, http.MethodGet, "/runs/"+run.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw = server.request(t, http.MethodGet, fmt.Sprintf("/runs?lead_id=%s", lead.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Runs []*models.WorkflowRun `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(raw, &listing))
	assert.Len(t, listing.Runs, 1)

	resp, raw = server.request(t, http.MethodGet, "/runs/"+run.ID+"/timeline", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "entries")
}

func TestStartRun_UnknownWorkflow(t *testing.T) {
	server := newTestServer(t, nil)

	resp, _ := server.request(t, http.MethodPost, "/runs", map[string]any{
		"workflow_id": "missing", "lead_id": "someone",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPostChannelEvent(t *testing.T) {
	server := newTestServer(t, nil)
	server.bus.On("Publish", mock.Anything, "lead-1", mock.Anything).Return(nil)

	resp, raw := server.request(t, http.MethodPost, "/events", map[string]any{
		"event_type": "channel.message.received",
		"lead_id":    "lead-1",
		"channel":    "linkedin",
		"body":       "tell me more",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Contains(t, string(raw), "event_id")

	// Unknown event types are a 400, not a silent drop.
	resp, _ = server.request(t, http.MethodPost, "/events", map[string]any{
		"event_type": "channel.smoke.signal",
		"lead_id":    "lead-1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTick(t *testing.T) {
	driver := &fixedTicker{summary: engine.TickSummary{Picked: 3, Completed: 1}}
	server := newTestServer(t, driver)

	resp, raw := server.request(t, http.MethodPost, "/engine/tick", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary engine.TickSummary
	require.NoError(t, json.Unmarshal(raw, &summary))
	assert.Equal(t, 3, summary.Picked)
	assert.Equal(t, 1, summary.Completed)
}

func TestTick_NotHosted(t *testing.T) {
	server := newTestServer(t, nil)

	resp, _ := server.request(t, http.MethodPost, "/engine/tick", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	server := newTestServer(t, nil)

	resp, raw := server.request(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "healthy")
}
