package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dukex/nbctl/pkg/api"
	"github.com/dukex/nbctl/pkg/arguments"
	"github.com/dukex/nbctl/pkg/cmd"
	"github.com/dukex/nbctl/pkg/config"
	"github.com/dukex/nbctl/pkg/log"
	"github.com/dukex/nbctl/pkg/printer"
	"github.com/dukex/nbctl/pkg/services"
	"github.com/dukex/nbctl/pkg/template"
	cli "github.com/urfave/cli/v3"
)

var errMissingArgument = errors.New("missing command argument")

// app carries the state shared by the commands of one invocation.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg      *config.Config
	logger   *slog.Logger
	noColor  bool
	shutdown func(context.Context)
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		shutdown: func(context.Context) {},
	}
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:                  "nbctl",
		Usage:                 "Manage notebooks, templates and triggers",
		EnableShellCompletion:     true,
		DisableSliceFlagSeparator: true,
		Writer:                    a.stdout,
		ErrWriter:                 a.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "Base URL of the notebook service",
				Sources: cli.EnvVars("NBCTL_BASE_URL"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "API token",
				Sources: cli.EnvVars("NBCTL_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "workspace",
				Aliases: []string{"w"},
				Usage:   "Workspace ID",
				Sources: cli.EnvVars("NBCTL_WORKSPACE"),
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to the configuration file (default $XDG_CONFIG_HOME/nbctl/config.yaml)",
				Sources: cli.EnvVars("NBCTL_CONFIG"),
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "Timeout of remote calls",
				Sources: cli.EnvVars("NBCTL_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("NBCTL_LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "otel",
				Usage:   "Export traces with OTLP/HTTP",
				Sources: cli.EnvVars("NBCTL_OTEL"),
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable coloured output",
			},
		},
		Before: a.before,
		After: func(ctx context.Context, _ *cli.Command) error {
			a.shutdown(ctx)

			return nil
		},
		Commands: []*cli.Command{
			templatesCommand(a),
			triggersCommand(a),
			monitorCommand(a),
			sandboxCommand(a),
		},
	}
}

func (a *app) before(ctx context.Context, command *cli.Command) (context.Context, error) {
	log.SetupWriter(a.stderr, command.String("log-level"))
	a.logger = log.WithModule("nbctl")
	a.noColor = command.Bool("no-color")

	cfg, err := loadConfig(command.String("config"))
	if err != nil {
		return ctx, err
	}

	cfg.Apply(config.Overrides{
		BaseURL:     command.String("base-url"),
		Token:       command.String("token"),
		WorkspaceID: command.String("workspace"),
		Timeout:     command.Duration("timeout"),
	})

	if err := cfg.Validate(); err != nil {
		return ctx, err
	}

	a.cfg = cfg
	a.shutdown = cmd.SetupTracing(ctx, command.Bool("otel"), "nbctl", a.logger)

	return ctx, nil
}

// loadConfig reads an explicitly named file, or the default file when it exists.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path, true)
	}

	defaultPath, err := config.DefaultPath()
	if err != nil {
		return config.Default(), nil
	}

	return config.Load(defaultPath, false)
}

func (a *app) printer() *printer.Printer {
	return printer.New(a.stdout, a.noColor)
}

// remote bundles the collaborators of the commands that talk to the service.
type remote struct {
	client    *api.Client
	loader    *services.Loader
	expander  *services.Expander
	templates *services.Templates
	triggers  *services.Triggers
	converter *services.Converter
}

func (a *app) remote() (*remote, error) {
	client, err := api.New(a.cfg.BaseURL,
		api.WithToken(a.cfg.Token),
		api.WithWorkspace(a.cfg.WorkspaceID),
		api.WithTimeout(a.cfg.Timeout),
		api.WithLogger(log.WithModule("api_client")),
	)
	if err != nil {
		return nil, err
	}

	loader := services.NewLoader(client, a.logger)

	expander, err := services.NewExpander(loader, client, template.NewEngine(), a.logger)
	if err != nil {
		return nil, err
	}

	return &remote{
		client:    client,
		loader:    loader,
		expander:  expander,
		templates: services.NewTemplates(client, loader, expander, a.logger),
		triggers:  services.NewTriggers(client, loader, a.logger),
		converter: services.NewConverter(client, a.logger),
	}, nil
}

// argumentFlags returns the flags read by commandArguments, plus extra.
func argumentFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		&cli.StringSliceFlag{
			Name:    "arg",
			Aliases: []string{"a"},
			Usage:   "Template argument as name=value; the value is parsed as JSON when possible",
		},
		&cli.StringFlag{
			Name:  "args",
			Usage: "Template arguments as a JSON object or name:value pairs separated by , or ;",
		},
	}, extra...)
}

// commandArguments merges --args with the --arg flags, which win.
func commandArguments(command *cli.Command) (arguments.Map, error) {
	base := arguments.Map{}

	if blob := command.String("args"); blob != "" {
		parsed, err := arguments.ParseBlob(blob)
		if err != nil {
			return nil, err
		}

		base = parsed
	}

	flags, err := arguments.FromFlags(command.StringSlice("arg"))
	if err != nil {
		return nil, err
	}

	return arguments.Merge(base, flags), nil
}

func requireArg(command *cli.Command, name string) (string, error) {
	value := command.Args().First()
	if value == "" {
		return "", fmt.Errorf("%w: %s", errMissingArgument, name)
	}

	return value, nil
}
