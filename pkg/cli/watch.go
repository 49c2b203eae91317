package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func watchCommand() *cli.Command {
	var cfg config
	var callbackURL string

	flags := append(globalFlags(&cfg),
		&cli.StringFlag{
			Name:        "callback-url",
			Usage:       "Publicly reachable HTTPS base URL for Drive push notifications",
			Sources:     cli.EnvVars("DRIVEMAID_CALLBACK_URL"),
			Destination: &callbackURL,
		},
	)

	return &cli.Command{
		Name:  "watch",
		Usage: "Register a push notification channel for the root folder",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if callbackURL == "" {
				return goerr.New("callback-url is required")
			}

			ctx, err := cfg.newLogger(ctx)
			if err != nil {
				return err
			}

			drv, err := cfg.newDrive(ctx)
			if err != nil {
				return err
			}

			channel, err := drv.Watch(ctx, cfg.root, callbackURL+"/webhook/drive")
			if err != nil {
				return err
			}

			fmt.Printf("channel registered\n  id:          %s\n  resource id: %s\n  expires:     %s\n",
				channel.ID, channel.ResourceID, channel.Expiration)

			return nil
		},
	}
}

func unwatchCommand() *cli.Command {
	var cfg config
	var channelID string
	var resourceID string

	flags := append(globalFlags(&cfg),
		&cli.StringFlag{
			Name:        "channel-id",
			Usage:       "Channel ID returned by watch",
			Destination: &channelID,
		},
		&cli.StringFlag{
			Name:        "resource-id",
			Usage:       "Resource ID returned by watch",
			Destination: &resourceID,
		},
	)

	return &cli.Command{
		Name:  "unwatch",
		Usage: "Stop a push notification channel",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if channelID == "" || resourceID == "" {
				return goerr.New("channel-id and resource-id are required")
			}

			ctx, err := cfg.newLogger(ctx)
			if err != nil {
				return err
			}

			drv, err := cfg.newDrive(ctx)
			if err != nil {
				return err
			}

			if err := drv.StopChannel(ctx, channelID, resourceID); err != nil {
				return err
			}

			fmt.Println("channel stopped")
			return nil
		},
	}
}
