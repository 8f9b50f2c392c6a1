// Package printer renders command output for the terminal.
package printer

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dukex/nbctl/pkg/models"
	"github.com/fatih/color"
)

// Printer writes coloured, human readable output to a writer.
type Printer struct {
	out    io.Writer
	green  *color.Color
	yellow *color.Color
	red    *color.Color
	cyan   *color.Color
	bold   *color.Color
}

// New returns a printer for out. Colours follow the fatih/color defaults
// (NO_COLOR, terminal detection) unless noColor is set.
func New(out io.Writer, noColor bool) *Printer {
	p := &Printer{
		out:    out,
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed, color.Bold),
		cyan:   color.New(color.FgCyan),
		bold:   color.New(color.Bold),
	}

	if noColor {
		for _, c := range []*color.Color{p.green, p.yellow, p.red, p.cyan, p.bold} {
			c.DisableColor()
		}
	}

	return p
}

// Success prints a message in green with a checkmark prefix.
func (p *Printer) Success(format string, a ...any) {
	p.green.Fprintf(p.out, "✓ %s\n", fmt.Sprintf(format, a...))
}

// Warning prints a message in yellow.
func (p *Printer) Warning(format string, a ...any) {
	p.yellow.Fprintf(p.out, "⚠️  %s\n", fmt.Sprintf(format, a...))
}

// Step prints a step of a multi-step operation.
func (p *Printer) Step(format string, a ...any) {
	p.cyan.Fprintf(p.out, "→ %s\n", fmt.Sprintf(format, a...))
}

// Error prints err in red.
func (p *Printer) Error(err error) {
	p.red.Fprintf(p.out, "Error: %s\n", err)
}

func (p *Printer) Println(a ...any) {
	fmt.Fprintln(p.out, a...)
}

// Raw writes data followed by a newline when data does not end with one.
func (p *Printer) Raw(data []byte) {
	_, _ = p.out.Write(data)

	if len(data) == 0 || data[len(data)-1] != '\n' {
		fmt.Fprintln(p.out)
	}
}

// Triggers prints a table of triggers with their webhook URLs.
func (p *Printer) Triggers(triggers []models.Trigger, webhookURL func(id string) string) {
	if len(triggers) == 0 {
		fmt.Fprintln(p.out, "(No active triggers found)")

		return
	}

	tw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tID\tTEMPLATE\tUPDATED\tURL")

	for _, t := range triggers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.Title, t.ID, templateOf(&t), timestamp(t.UpdatedAt), webhookURL(t.ID))
	}

	_ = tw.Flush()
}

// Trigger prints the details of a single trigger.
func (p *Printer) Trigger(t *models.Trigger, webhookURL string) {
	p.bold.Fprintln(p.out, t.Title)

	tw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  ID:\t%s\n", t.ID)
	fmt.Fprintf(tw, "  Template:\t%s\n", templateOf(t))
	fmt.Fprintf(tw, "  Webhook URL:\t%s\n", webhookURL)

	if len(t.DefaultArguments) > 0 {
		fmt.Fprintf(tw, "  Default arguments:\t%s\n", formatArguments(t.DefaultArguments))
	}

	fmt.Fprintf(tw, "  Updated:\t%s\n", timestamp(t.UpdatedAt))
	_ = tw.Flush()
}

// Templates prints a table of template summaries.
func (p *Printer) Templates(templates []models.TemplateSummary) {
	if len(templates) == 0 {
		fmt.Fprintln(p.out, "(No templates found)")

		return
	}

	tw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDESCRIPTION\tUPDATED")

	for _, t := range templates {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Name, t.Description, timestamp(t.UpdatedAt))
	}

	_ = tw.Flush()
}

// Template prints a template and its parameters.
func (p *Printer) Template(t *models.Template) {
	p.bold.Fprintln(p.out, t.Name)

	if t.Description != "" {
		fmt.Fprintf(p.out, "  %s\n", t.Description)
	}

	p.Parameters(t.Parameters)
}

// Parameters prints the parameters a template accepts.
func (p *Printer) Parameters(params []models.TemplateParameter) {
	if len(params) == 0 {
		fmt.Fprintln(p.out, "(No parameters)")

		return
	}

	tw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PARAMETER\tTYPE\tDEFAULT")

	for _, param := range params {
		def := "(required)"
		if !param.Required() {
			def = fmt.Sprintf("%v", param.Default)
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\n", param.Name, param.Type, def)
	}

	_ = tw.Flush()
}

func templateOf(t *models.Trigger) string {
	switch {
	case t.TemplateName != "":
		return t.TemplateName
	case t.TemplateURL != "":
		return t.TemplateURL
	default:
		return "(inline)"
	}
}

func formatArguments(args map[string]any) string {
	parts := make([]string, 0, len(args))
	for k, v := range args {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}

	slices.Sort(parts)

	return strings.Join(parts, ", ")
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	return t.Local().Format(time.RFC3339)
}
