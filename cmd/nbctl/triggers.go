package main

import (
	"context"

	"github.com/dukex/nbctl/pkg/services"
	cli "github.com/urfave/cli/v3"
)

func triggersCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:    "triggers",
		Aliases: []string{"trigger"},
		Usage:   "Create, inspect and invoke webhook triggers",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a trigger for a template",
				ArgsUsage: "<template name, https URL or file>",
				Flags: argumentFlags(&cli.StringFlag{
					Name:  "title",
					Usage: "Trigger title (default derived from the template)",
				}),
				Action: a.createTrigger,
			},
			{
				Name:      "get",
				Usage:     "Show a trigger",
				ArgsUsage: "<trigger ID or URL>",
				Action:    a.getTrigger,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List the triggers of the workspace",
				Action:  a.listTriggers,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm", "remove"},
				Usage:     "Delete a trigger",
				ArgsUsage: "<trigger ID or URL>",
				Action:    a.deleteTrigger,
			},
			{
				Name:      "invoke",
				Usage:     "Invoke a trigger and create a notebook",
				ArgsUsage: "<trigger ID or URL>",
				Flags: argumentFlags(&cli.StringFlag{
					Name:  "secret-key",
					Usage: "Secret key of the trigger",
				}),
				Action: a.invokeTrigger,
			},
		},
	}
}

func (a *app) createTrigger(ctx context.Context, command *cli.Command) error {
	ref, err := requireArg(command, "template")
	if err != nil {
		return err
	}

	args, err := commandArguments(command)
	if err != nil {
		return err
	}

	r, err := a.remote()
	if err != nil {
		return err
	}

	created, err := r.triggers.Create(ctx, services.CreateTriggerRequest{
		Title:            command.String("title"),
		Template:         ref,
		DefaultArguments: args,
	})
	if err != nil {
		return err
	}

	p := a.printer()
	p.Success("Trigger %q created", created.Trigger.Title)
	p.Println("Webhook URL:", created.WebhookURL)
	p.Println("Secret URL: ", created.SecretWebhookURL)
	p.Warning("The secret URL is only shown once.")

	return nil
}

func (a *app) getTrigger(ctx context.Context, command *cli.Command) error {
	ref, err := requireArg(command, "trigger")
	if err != nil {
		return err
	}

	r, err := a.remote()
	if err != nil {
		return err
	}

	trigger, err := r.triggers.Get(ctx, ref)
	if err != nil {
		return err
	}

	a.printer().Trigger(trigger, r.client.TriggerWebhookURL(trigger.ID))

	return nil
}

func (a *app) listTriggers(ctx context.Context, _ *cli.Command) error {
	r, err := a.remote()
	if err != nil {
		return err
	}

	triggers, err := r.triggers.List(ctx)
	if err != nil {
		return err
	}

	a.printer().Triggers(triggers, r.client.TriggerWebhookURL)

	return nil
}

func (a *app) deleteTrigger(ctx context.Context, command *cli.Command) error {
	ref, err := requireArg(command, "trigger")
	if err != nil {
		return err
	}

	r, err := a.remote()
	if err != nil {
		return err
	}

	if err := r.triggers.Delete(ctx, ref); err != nil {
		return err
	}

	a.printer().Success("Trigger deleted")

	return nil
}

func (a *app) invokeTrigger(ctx context.Context, command *cli.Command) error {
	ref, err := requireArg(command, "trigger")
	if err != nil {
		return err
	}

	args, err := commandArguments(command)
	if err != nil {
		return err
	}

	r, err := a.remote()
	if err != nil {
		return err
	}

	resp, err := r.triggers.Invoke(ctx, ref, args, command.String("secret-key"))
	if err != nil {
		return err
	}

	a.printer().Success("Notebook created: %s", resp.NotebookURL)

	return nil
}
