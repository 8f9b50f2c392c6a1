package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dukex/nbctl/pkg/models"
	"github.com/dukex/nbctl/pkg/services"
	"github.com/dukex/nbctl/pkg/template"
	cli "github.com/urfave/cli/v3"
)

const stdinMarker = "-"

func templatesCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:    "templates",
		Aliases: []string{"template", "t"},
		Usage:   "Expand, convert and manage notebook templates",
		Commands: []*cli.Command{
			{
				Name:      "expand",
				Aliases:   []string{"e"},
				Usage:     "Expand a template into a notebook",
				ArgsUsage: "<template name, URL or file>",
				Flags: argumentFlags(&cli.BoolFlag{
					Name:  "create",
					Usage: "Create the notebook instead of printing the payload",
				}),
				Action: a.expandTemplate,
			},
			{
				Name:      "convert",
				Usage:     "Convert a notebook into a template",
				ArgsUsage: "<notebook ID or URL, or - for JSON on stdin>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write the template to this file"},
					&cli.BoolFlag{Name: "create", Usage: "Upload the template to the workspace"},
					&cli.StringFlag{Name: "template-name", Usage: "Name of the uploaded template (default derived from the title)"},
					&cli.StringFlag{Name: "description", Usage: "Description of the uploaded template"},
				},
				Action: a.convertNotebook,
			},
			{
				Name:  "init",
				Usage: "Write a starter template",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "template" + template.Extension, Usage: "Output file"},
					&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing file"},
				},
				Action: a.initTemplate,
			},
			{
				Name:      "create",
				Usage:     "Upload a template from a file or URL",
				ArgsUsage: "<file or URL>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Template name (default derived from the file name)"},
					&cli.StringFlag{Name: "description", Usage: "Template description"},
				},
				Action: a.createTemplate,
			},
			{
				Name:      "get",
				Usage:     "Show an uploaded template",
				ArgsUsage: "<name or URL>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "body", Usage: "Print only the template body"},
				},
				Action: a.getTemplate,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List the templates of the workspace",
				Action:  a.listTemplates,
			},
			{
				Name:      "update",
				Usage:     "Update an uploaded template",
				ArgsUsage: "<name or URL>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "File or URL with the new body"},
					&cli.StringFlag{Name: "description", Usage: "New description"},
				},
				Action: a.updateTemplate,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm", "delete"},
				Usage:     "Remove an uploaded template",
				ArgsUsage: "<name or URL>",
				Action:    a.removeTemplate,
			},
			{
				Name:      "validate",
				Usage:     "List the parameters of a template and dry-run it",
				ArgsUsage: "<template name, URL or file>",
				Flags:     argumentFlags(),
				Action:    a.validateTemplate,
			},
		},
	}
}

func (a *app) expandTemplate(ctx context.Context, command *cli.Command) error {
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

	create := command.Bool("create")

	result, err := r.expander.Expand(ctx, services.ExpandRequest{Template: ref, Arguments: args, Create: create})
	if err != nil {
		return err
	}

	if !create {
		a.printer().Raw(result.Payload)

		return nil
	}

	a.printer().Success("Notebook created: %s", result.NotebookURL)

	return nil
}

func (a *app) convertNotebook(ctx context.Context, command *cli.Command) error {
	ref, err := requireArg(command, "notebook")
	if err != nil {
		return err
	}

	r, err := a.remote()
	if err != nil {
		return err
	}

	var conversion *services.Conversion

	if ref == stdinMarker {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return fmt.Errorf("failed to read notebook from stdin: %w", err)
		}

		conversion, err = r.converter.ConvertJSON(data)
		if err != nil {
			return err
		}
	} else {
		conversion, err = r.converter.Convert(ctx, ref)
		if err != nil {
			return err
		}
	}

	p := a.printer()

	if command.Bool("create") {
		name := command.String("template-name")
		if name == "" {
			name = conversion.SuggestedName
		}

		if name == "" {
			return errors.New("no template name can be derived from the notebook title, use --template-name")
		}

		tmpl, err := r.templates.Upload(ctx, models.NewTemplate{
			Name:        name,
			Description: command.String("description"),
			Body:        conversion.Body,
		})
		if err != nil {
			return err
		}

		p.Success("Template %s uploaded: %s", tmpl.Name, r.client.TemplatesURL()+tmpl.Name)

		return nil
	}

	if out := command.String("out"); out != "" {
		if err := os.WriteFile(out, []byte(conversion.Body), 0o644); err != nil {
			return fmt.Errorf("failed to write template: %w", err)
		}

		p.Success("Template written to %s", out)

		return nil
	}

	p.Raw([]byte(conversion.Body))

	return nil
}

func (a *app) initTemplate(_ context.Context, command *cli.Command) error {
	out := command.String("out")

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if command.Bool("force") {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	f, err := os.OpenFile(out, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s already exists, use --force to overwrite it", out)
		}

		return err
	}

	if _, err := f.WriteString(template.Starter); err != nil {
		_ = f.Close()

		return err
	}

	if err := f.Close(); err != nil {
		return err
	}

	a.printer().Success("Starter template written to %s", out)

	return nil
}

func (a *app) createTemplate(ctx context.Context, command *cli.Command) error {
	source, err := requireArg(command, "source")
	if err != nil {
		return err
	}

	r, err := a.remote()
	if err != nil {
		return err
	}

	tmpl, err := r.templates.Create(ctx, services.CreateTemplateRequest{
		Name:        command.String("name"),
		Description: command.String("description"),
		Source:      source,
	})
	if err != nil {
		return err
	}

	a.printer().Success("Template %s created", tmpl.Name)

	return nil
}

func (a *app) getTemplate(ctx context.Context, command *cli.Command) error {
	ref, err := requireArg(command, "template")
	if err != nil {
		return err
	}

	r, err := a.remote()
	if err != nil {
		return err
	}

	tmpl, err := r.templates.Get(ctx, ref)
	if err != nil {
		return err
	}

	if command.Bool("body") {
		a.printer().Raw([]byte(tmpl.Body))

		return nil
	}

	a.printer().Template(tmpl)

	return nil
}

func (a *app) listTemplates(ctx context.Context, _ *cli.Command) error {
	r, err := a.remote()
	if err != nil {
		return err
	}

	templates, err := r.templates.List(ctx)
	if err != nil {
		return err
	}

	a.printer().Templates(templates)

	return nil
}

func (a *app) updateTemplate(ctx context.Context, command *cli.Command) error {
	ref, err := requireArg(command, "template")
	if err != nil {
		return err
	}

	req := services.UpdateTemplateRequest{
		Name:   ref,
		Source: command.String("source"),
	}

	if command.IsSet("description") {
		description := command.String("description")
		req.Description = &description
	}

	if req.Source == "" && req.Description == nil {
		return errors.New("nothing to update, use --source or --description")
	}

	r, err := a.remote()
	if err != nil {
		return err
	}

	tmpl, err := r.templates.Update(ctx, req)
	if err != nil {
		return err
	}

	a.printer().Success("Template %s updated", tmpl.Name)

	return nil
}

func (a *app) removeTemplate(ctx context.Context, command *cli.Command) error {
	ref, err := requireArg(command, "template")
	if err != nil {
		return err
	}

	r, err := a.remote()
	if err != nil {
		return err
	}

	if err := r.templates.Remove(ctx, ref); err != nil {
		return err
	}

	a.printer().Success("Template %s removed", ref)

	return nil
}

func (a *app) validateTemplate(ctx context.Context, command *cli.Command) error {
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

	report, err := r.templates.Validate(ctx, ref, args)
	if err != nil {
		return err
	}

	p := a.printer()
	p.Step("Template %s", report.Source)
	p.Parameters(report.Parameters)
	p.Raw(report.Payload)

	return nil
}
