package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/kailas-cloud/vecmigrate/internal/config"
	"github.com/kailas-cloud/vecmigrate/internal/version"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "vecmigrate:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "vecmigrate",
		Usage:   "Copy a search index into a new index with vector fields populated",
		Version: fmt.Sprintf("%s (%s)", version.Version, version.Commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Environment: selects config/<env>.yaml and the log format (local, dev, docker, prod)",
				EnvVars: []string{"ENV"},
				Value:   "local",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file (overrides --env lookup)",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file loaded before the config",
				Value: config.DefaultEnvFile,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error); defaults to logging.level",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write logs to this file instead of stderr",
			},
		},
		DefaultCommand: "migrate",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Transfer the schema, copy and enrich every document, then compare counts",
				Action: migrateCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-progress",
						Usage: "Disable the progress bar",
					},
					&cli.BoolFlag{
						Name:  "skip-verify",
						Usage: "Skip the document count comparison",
					},
				},
			},
			{
				Name:   "schema",
				Usage:  "Create or update the target index from the source schema only",
				Action: schemaCommand,
			},
			{
				Name:   "verify",
				Usage:  "Compare the document counts of source and target",
				Action: verifyCommand,
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "settle",
						Usage: "Wait before counting the target (defaults to migration.settle_sec)",
					},
				},
			},
			{
				Name:  "audit",
				Usage: "Inspect the audit trail of past runs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Audit trail file (defaults to audit.path)",
					},
				},
				Subcommands: []*cli.Command{
					{
						Name:   "runs",
						Usage:  "List recorded run ids",
						Action: auditRunsCommand,
					},
					{
						Name:      "show",
						Usage:     "Print the summary, pages and failures of one run",
						ArgsUsage: "<run-id>",
						Action:    auditShowCommand,
					},
				},
			},
		},
	}
}
