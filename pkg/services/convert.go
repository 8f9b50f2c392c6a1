package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/dukex/nbctl/pkg/api"
	"github.com/dukex/nbctl/pkg/identifier"
	"github.com/dukex/nbctl/pkg/models"
	"github.com/dukex/nbctl/pkg/template"
)

// Conversion is a template generated from a notebook.
type Conversion struct {
	Body          string
	SuggestedName string // empty when the title yields no valid name
	NotebookID    string
	NotebookURL   string
	Title         string
}

// ConvertNotebook turns nb into template source. Image cells that reference
// an uploaded file are rewritten to point at the file URL so the template
// does not depend on the source notebook's storage.
func ConvertNotebook(nb *models.Notebook, baseURL string) (*Conversion, error) {
	base := api.NormalizeBaseURL(baseURL)
	rewritten := RewriteImageURLs(nb, base)

	body, err := template.FromNotebook(rewritten.ToNewNotebook())
	if err != nil {
		return nil, err
	}

	notebookURL := base + "notebook/" + url.PathEscape(nb.ID)

	return &Conversion{
		Body:          template.Comment("Generated from notebook: "+notebookURL) + body,
		SuggestedName: identifier.SlugName(nb.Title),
		NotebookID:    nb.ID,
		NotebookURL:   notebookURL,
		Title:         nb.Title,
	}, nil
}

// RewriteImageURLs returns a copy of nb where every image cell with a file
// ID and no URL gets the file URL instead. Applying it twice changes nothing.
func RewriteImageURLs(nb *models.Notebook, baseURL string) *models.Notebook {
	base := api.NormalizeBaseURL(baseURL)

	clone := *nb
	clone.Cells = make([]models.Cell, len(nb.Cells))

	for i, cell := range nb.Cells {
		if cell.Type == models.CellTypeImage && cell.URL == "" && cell.FileID != "" {
			cell.URL = base + "api/notebooks/" + url.PathEscape(nb.ID) + "/files/" + url.PathEscape(cell.FileID)
			cell.FileID = ""
		}

		clone.Cells[i] = cell
	}

	return &clone
}

// NotebookReader fetches notebooks from the service.
type NotebookReader interface {
	Notebook(ctx context.Context, id string) (*models.Notebook, error)
	BaseURL() string
}

// Converter fetches notebooks and converts them to templates.
type Converter struct {
	notebooks NotebookReader
	logger    *slog.Logger
}

func NewConverter(notebooks NotebookReader, logger *slog.Logger) *Converter {
	return &Converter{
		notebooks: notebooks,
		logger:    logger.With("module", "converter"),
	}
}

// Convert fetches the notebook named by ref, a bare ID or a notebook URL.
func (c *Converter) Convert(ctx context.Context, ref string) (*Conversion, error) {
	id, err := identifier.NotebookID(ref)
	if err != nil {
		return nil, newOperationError("convert", ref, err)
	}

	c.logger.DebugContext(ctx, "fetching notebook", "notebook_id", id)

	nb, err := c.notebooks.Notebook(ctx, id)
	if err != nil {
		return nil, newOperationError("convert", ref, err)
	}

	conversion, err := ConvertNotebook(nb, c.notebooks.BaseURL())
	if err != nil {
		return nil, newOperationError("convert", ref, err)
	}

	c.logger.InfoContext(ctx, "converted notebook", "notebook_id", id, "cells", len(nb.Cells))

	return conversion, nil
}

// ConvertJSON converts a notebook document, as exported by the service.
func (c *Converter) ConvertJSON(data []byte) (*Conversion, error) {
	var nb models.Notebook
	if err := json.Unmarshal(data, &nb); err != nil {
		return nil, newOperationError("convert", "stdin", fmt.Errorf("invalid notebook JSON: %w", err))
	}

	conversion, err := ConvertNotebook(&nb, c.notebooks.BaseURL())
	if err != nil {
		return nil, newOperationError("convert", "stdin", err)
	}

	return conversion, nil
}
