package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "drivemaid",
		Usage: "Sort Google Drive files into topical folders with an LLM",
		Commands: []*cli.Command{
			organizeCommand(),
			serveCommand(),
			watchCommand(),
			unwatchCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
