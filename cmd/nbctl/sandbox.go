package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dukex/nbctl/pkg/cmd"
	"github.com/dukex/nbctl/pkg/log"
	"github.com/dukex/nbctl/pkg/sandbox"
	cli "github.com/urfave/cli/v3"
)

func sandboxCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "sandbox",
		Usage: "Run a local notebook service",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Start the sandbox service",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "Listen address (default from the config file, :8080)",
						Sources: cli.EnvVars("NBCTL_SANDBOX_ADDR"),
					},
					&cli.StringFlag{
						Name:    "storage",
						Usage:   "Storage URL, file://<dir> or redis://<host>",
						Sources: cli.EnvVars("NBCTL_SANDBOX_STORAGE"),
					},
					&cli.StringFlag{
						Name:    "sandbox-token",
						Usage:   "Bearer token required by the sandbox API",
						Sources: cli.EnvVars("NBCTL_SANDBOX_TOKEN"),
					},
					&cli.StringFlag{
						Name:    "public-url",
						Usage:   "Base of the notebook URLs handed out by the sandbox",
						Sources: cli.EnvVars("NBCTL_SANDBOX_PUBLIC_URL"),
					},
				},
				Action: a.runSandbox,
			},
		},
	}
}

func (a *app) runSandbox(ctx context.Context, command *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings := a.cfg.Sandbox

	for flag, target := range map[string]*string{
		"addr":          &settings.Addr,
		"storage":       &settings.Storage,
		"sandbox-token": &settings.Token,
		"public-url":    &settings.PublicURL,
	} {
		if value := command.String(flag); value != "" {
			*target = value
		}
	}

	if settings.PublicURL == "" {
		settings.PublicURL = publicURL(settings.Addr)
	}

	logger := log.WithModule("sandbox")

	persistence, err := cmd.NewPersistence(ctx, settings.Storage)
	if err != nil {
		return err
	}

	defer func() {
		if err := persistence.Close(context.Background()); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	server, err := sandbox.NewServer(logger, persistence, sandbox.Options{
		Token:       settings.Token,
		PublicURL:   settings.PublicURL,
		DataSources: settings.DataSources,
	})
	if err != nil {
		return err
	}

	return server.Start(ctx, settings.Addr)
}

// publicURL derives the URL clients reach a listen address at.
func publicURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr + "/"
	}

	return "http://" + addr + "/"
}
