package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/nbctl/pkg/log"
	"github.com/dukex/nbctl/pkg/realtime"
	cli "github.com/urfave/cli/v3"
)

func monitorCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "monitor",
		Usage: "Print the messages of a realtime connection",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "endpoint",
				Aliases: []string{"e"},
				Usage:   "Realtime websocket endpoint",
				Value:   realtime.DefaultEndpoint,
				Sources: cli.EnvVars("WS_ENDPOINT"),
			},
			&cli.StringSliceFlag{
				Name:    "notebook",
				Aliases: []string{"n"},
				Usage:   "Subscribe to this notebook; repeatable",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			monitor := realtime.NewMonitor(
				command.String("endpoint"),
				a.cfg.Token,
				command.StringSlice("notebook"),
				log.WithModule("realtime"),
			)

			return monitor.Run(ctx, a.stdout)
		},
	}
}
