// Package main provides the dripline API server.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/dripline/dripline/pkg/cmd"
	"github.com/dripline/dripline/pkg/config"
	"github.com/dripline/dripline/pkg/log"
)

const defaultPort = 9080

func main() {
	command := &cli.Command{
		Name:                  "dripline-api",
		Usage:                 "Manage outreach workflows, runs and channel webhooks",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker addresses",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "linkedin-proxy-url",
				Usage:   "Base URL of the LinkedIn automation proxy",
				Sources: cli.EnvVars("LINKEDIN_PROXY_URL"),
			},
			&cli.StringFlag{
				Name:    "linkedin-api-key",
				Usage:   "API key for the LinkedIn automation proxy",
				Sources: cli.EnvVars("LINKEDIN_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "seed-file",
				Usage:   "YAML file of workflows and leads loaded into the store at startup",
				Sources: cli.EnvVars("SEED_FILE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("dripline-api")
			logger.InfoContext(ctx, "Initializing dripline API")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), "dripline-api", logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			if seedFile := command.String("seed-file"); seedFile != "" {
				workflows, leads, err := config.LoadSeedFile(seedFile)
				if err != nil {
					return err
				}

				err = config.ApplySeed(ctx, persistence, workflows, leads)
				if err != nil {
					return err
				}

				logger.InfoContext(ctx, "Seed file applied",
					"workflows", len(workflows),
					"leads", len(leads),
				)
			}

			registry := cmd.NewRegistry(logger, persistence, cmd.ChannelConfig{
				LinkedInBaseURL: command.String("linkedin-proxy-url"),
				LinkedInAPIKey:  command.String("linkedin-api-key"),
			})

			api := NewAPI(ctx, logger, persistence, registry, eventBus, command.String("event-bus") == "gochannel")

			return api.Start(command.Int("port"))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
