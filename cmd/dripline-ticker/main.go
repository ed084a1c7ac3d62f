// Package main provides the dripline ticker: the daemon that periodically
// advances due workflow runs.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/dripline/dripline/pkg/log"
)

func main() {
	cmd := &cli.Command{
		Name:                  "dripline-ticker",
		Usage:                 "Advance due outreach workflow runs on a schedule",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for cross-instance run locks (optional for single instances)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "schedule",
				Usage:   "Cron expression for the tick cadence",
				Value:   "* * * * *",
				Sources: cli.EnvVars("TICK_SCHEDULE"),
			},
			&cli.IntFlag{
				Name:    "batch-size",
				Usage:   "Maximum due runs picked up per tick",
				Value:   50,
				Sources: cli.EnvVars("TICK_BATCH_SIZE"),
			},
			&cli.IntFlag{
				Name:    "max-steps",
				Usage:   "Maximum node advancements for one run within one tick",
				Value:   25,
				Sources: cli.EnvVars("TICK_MAX_STEPS"),
			},
			&cli.DurationFlag{
				Name:    "run-pacing",
				Usage:   "Pause between runs in a batch to spread outbound channel calls",
				Sources: cli.EnvVars("TICK_RUN_PACING"),
			},
			&cli.BoolFlag{
				Name:  "once",
				Usage: "Run a single tick and exit",
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
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			return runTicker(ctx, command)
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
