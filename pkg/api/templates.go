package api

import (
	"context"
	"net/http"

	"github.com/dukex/nbctl/pkg/models"
	"github.com/dukex/nbctl/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
)

// TemplateByName fetches an uploaded template from the client workspace.
func (c *Client) TemplateByName(ctx context.Context, name string) (*models.Template, error) {
	var tmpl models.Template

	err := c.do(ctx, request{
		op:        "TemplateByName",
		method:    http.MethodGet,
		path:      c.workspacePath("templates", name),
		workspace: true,
		notFound:  ErrTemplateNotFound,
		attrs:     []attribute.KeyValue{attribute.String(otelhelper.TemplateNameKey, name)},
	}, &tmpl)
	if err != nil {
		return nil, err
	}

	return &tmpl, nil
}

func (c *Client) ListTemplates(ctx context.Context) ([]models.TemplateSummary, error) {
	templates := []models.TemplateSummary{}

	err := c.do(ctx, request{
		op:        "ListTemplates",
		method:    http.MethodGet,
		path:      c.workspacePath("templates"),
		workspace: true,
	}, &templates)
	if err != nil {
		return nil, err
	}

	return templates, nil
}

func (c *Client) CreateTemplate(ctx context.Context, tmpl models.NewTemplate) (*models.Template, error) {
	var created models.Template

	err := c.do(ctx, request{
		op:        "CreateTemplate",
		method:    http.MethodPost,
		path:      c.workspacePath("templates"),
		body:      tmpl,
		workspace: true,
		attrs:     []attribute.KeyValue{attribute.String(otelhelper.TemplateNameKey, tmpl.Name)},
	}, &created)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (c *Client) UpdateTemplate(ctx context.Context, name string, update models.UpdateTemplate) (*models.Template, error) {
	var updated models.Template

	err := c.do(ctx, request{
		op:        "UpdateTemplate",
		method:    http.MethodPatch,
		path:      c.workspacePath("templates", name),
		body:      update,
		workspace: true,
		notFound:  ErrTemplateNotFound,
		attrs:     []attribute.KeyValue{attribute.String(otelhelper.TemplateNameKey, name)},
	}, &updated)
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

func (c *Client) DeleteTemplate(ctx context.Context, name string) error {
	return c.do(ctx, request{
		op:        "DeleteTemplate",
		method:    http.MethodDelete,
		path:      c.workspacePath("templates", name),
		workspace: true,
		notFound:  ErrTemplateNotFound,
		attrs:     []attribute.KeyValue{attribute.String(otelhelper.TemplateNameKey, name)},
	}, nil)
}

// FetchTemplateURL downloads template source from an arbitrary URL. No
// credentials are sent.
func (c *Client) FetchTemplateURL(ctx context.Context, templateURL string) (string, error) {
	raw, err := c.send(ctx, request{
		op:        "FetchTemplateURL",
		method:    http.MethodGet,
		url:       templateURL,
		anonymous: true,
		notFound:  ErrTemplateNotFound,
	})
	if err != nil {
		return "", err
	}

	return string(raw), nil
}
