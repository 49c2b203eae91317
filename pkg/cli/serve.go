package cli

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/kadoten/drivemaid/pkg/organize"
	"github.com/kadoten/drivemaid/pkg/server"
	"github.com/kadoten/drivemaid/pkg/utils/logging"
)

func serveCommand() *cli.Command {
	var cfg config
	var addr string
	var callbackURL string

	flags := append(globalFlags(&cfg), organizerFlags(&cfg)...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address",
			Value:       ":8080",
			Sources:     cli.EnvVars("DRIVEMAID_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "callback-url",
			Usage:       "Publicly reachable HTTPS base URL for Drive push notifications",
			Sources:     cli.EnvVars("DRIVEMAID_CALLBACK_URL"),
			Destination: &callbackURL,
		},
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the webhook server and reconcile on Drive notifications",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if callbackURL == "" {
				return goerr.New("callback-url is required")
			}
			if !strings.HasPrefix(callbackURL, "https://") {
				return goerr.New("callback-url must be HTTPS", goerr.V("url", callbackURL))
			}

			ctx, err := cfg.newLogger(ctx)
			if err != nil {
				return err
			}
			logger := logging.From(ctx)

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			drv, err := cfg.newDrive(ctx)
			if err != nil {
				return err
			}

			org, err := cfg.newOrganizer(ctx, drv, false)
			if err != nil {
				return err
			}
			if err := org.SetupFolders(ctx); err != nil {
				return err
			}

			rec := organize.NewReconciler(org)
			rec.Start(ctx)

			address := strings.TrimSuffix(callbackURL, "/") + "/webhook/drive"
			channel, err := drv.Watch(ctx, cfg.root, address)
			if err != nil {
				return err
			}
			logger.Info("watch channel registered",
				"channel_id", channel.ID,
				"resource_id", channel.ResourceID,
				"expires", channel.Expiration,
			)

			srv := server.New(rec)
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Listen(addr)
			}()
			logger.Info("webhook server listening", "addr", addr, "callback", address)

			// catch up on anything that changed while we were down
			rec.Trigger()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")

			// channel teardown gets a fresh context; ctx is already cancelled
			stopCtx := context.Background()
			if err := drv.StopChannel(stopCtx, channel.ID, channel.ResourceID); err != nil {
				logger.Warn("failed to stop watch channel", "error", err)
			}
			if err := srv.Shutdown(); err != nil {
				logger.Warn("failed to shut down server", "error", err)
			}
			rec.Wait()

			return nil
		},
	}
}
