package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/dripline/dripline/pkg/engine"
	"github.com/dripline/dripline/pkg/eventbus"
	"github.com/dripline/dripline/pkg/ingest"
	"github.com/dripline/dripline/pkg/persistence"
	"github.com/dripline/dripline/pkg/registry"
	"github.com/dripline/dripline/pkg/services"
	"github.com/dripline/dripline/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	validate    *validator.Validate

	// hostEngine runs the driver and ingestor in-process. Used with the
	// in-memory event bus, where no separate daemons exist.
	hostEngine bool
	baseCtx    context.Context
}

func NewAPI(
	ctx context.Context,
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	hostEngine bool,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		hostEngine:  hostEngine,
		baseCtx:     ctx,
	}
}

func (a *API) App() (*fiber.App, error) {
	workflowService := services.NewWorkflow(a.persistence, a.registry)
	runService := services.NewRun(a.persistence)
	signalService := services.NewSignal(a.eventBus, a.logger)

	var driver web.TickDriver

	if a.hostEngine {
		driver = engine.NewDriver(a.persistence, a.registry, engine.NoopLocker{}, engine.Config{}, nil, a.logger)

		ingestor := ingest.NewIngestor(a.persistence, a.logger)

		err := ingestor.RegisterHandlers(a.eventBus)
		if err != nil {
			return nil, err
		}

		err = a.eventBus.Subscribe(a.baseCtx)
		if err != nil {
			return nil, err
		}
	}

	handlers := web.NewAPIHandlers(workflowService, runService, signalService, driver, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Dripline API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.SaveWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)

	r := app.Group("/runs")
	r.Get("/", handlers.GetRuns)
	r.Post("/", handlers.StartRun)
	r.Get("/:id", handlers.GetRun)
	r.Get("/:id/timeline", handlers.GetRunTimeline)

	app.Post("/events", handlers.PostChannelEvent)
	app.Post("/engine/tick", handlers.Tick)
	app.Get("/health", handlers.HealthCheck)

	return app, nil
}

func (a *API) Start(port int) error {
	app, err := a.App()
	if err != nil {
		return err
	}

	return app.Listen(":" + strconv.Itoa(port))
}
