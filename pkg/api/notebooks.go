package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dukex/nbctl/pkg/models"
	"github.com/dukex/nbctl/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
)

// Notebook fetches a notebook by ID.
func (c *Client) Notebook(ctx context.Context, id string) (*models.Notebook, error) {
	var nb models.Notebook

	err := c.do(ctx, request{
		op:       "Notebook",
		method:   http.MethodGet,
		path:     "api/notebooks/" + url.PathEscape(id),
		notFound: ErrNotebookNotFound,
		attrs:    []attribute.KeyValue{attribute.String(otelhelper.NotebookIDKey, id)},
	}, &nb)
	if err != nil {
		return nil, err
	}

	return &nb, nil
}

// CreateNotebook creates a notebook in the client workspace.
func (c *Client) CreateNotebook(ctx context.Context, nb models.NewNotebook) (*models.Notebook, error) {
	var created models.Notebook

	err := c.do(ctx, request{
		op:        "CreateNotebook",
		method:    http.MethodPost,
		path:      c.workspacePath("notebooks"),
		body:      nb,
		workspace: true,
		attrs:     []attribute.KeyValue{attribute.String(otelhelper.WorkspaceIDKey, c.workspaceID)},
	}, &created)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

// ProxyDataSources lists the proxied data sources of the client workspace.
func (c *Client) ProxyDataSources(ctx context.Context) ([]models.ProxyDataSource, error) {
	dataSources := []models.ProxyDataSource{}

	err := c.do(ctx, request{
		op:        "ProxyDataSources",
		method:    http.MethodGet,
		path:      c.workspacePath("data_sources"),
		workspace: true,
		attrs:     []attribute.KeyValue{attribute.String(otelhelper.WorkspaceIDKey, c.workspaceID)},
	}, &dataSources)
	if err != nil {
		return nil, err
	}

	return dataSources, nil
}
