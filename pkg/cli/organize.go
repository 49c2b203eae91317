package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v3"
)

func organizeCommand() *cli.Command {
	var cfg config
	var dryRun bool

	flags := append(globalFlags(&cfg), organizerFlags(&cfg)...)
	flags = append(flags, &cli.BoolFlag{
		Name:        "dry-run",
		Aliases:     []string{"n"},
		Usage:       "Classify and report, but do not move anything",
		Sources:     cli.EnvVars("DRIVEMAID_DRY_RUN"),
		Destination: &dryRun,
	})

	return &cli.Command{
		Name:  "organize",
		Usage: "Run one batch pass over the root folder",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.newLogger(ctx)
			if err != nil {
				return err
			}

			drv, err := cfg.newDrive(ctx)
			if err != nil {
				return err
			}

			org, err := cfg.newOrganizer(ctx, drv, dryRun)
			if err != nil {
				return err
			}

			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			sp.Suffix = " setting up category folders..."
			sp.Start()
			err = org.SetupFolders(ctx)
			sp.Stop()
			if err != nil {
				return err
			}

			stats, err := org.Run(ctx)
			if err != nil {
				return err
			}

			mode := "live"
			if dryRun {
				mode = "dry run"
			}
			fmt.Printf("\n%s finished: %d files, %d organized, %d skipped, %d errors\n",
				mode, stats.Total, stats.Organized, stats.Skipped, stats.Errors)

			return nil
		},
	}
}
