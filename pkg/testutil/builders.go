// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"encoding/base64"

	"github.com/dukex/nbctl/pkg/models"
	"github.com/google/uuid"
)

// NewID returns a random 22 character identifier.
func NewID() string {
	id := uuid.New()

	return base64.RawURLEncoding.EncodeToString(id[:])
}

// CreateTestNotebook creates a test Notebook with default values that can be overridden.
func CreateTestNotebook(overrides ...func(*models.Notebook)) *models.Notebook {
	nb := &models.Notebook{
		ID:          NewID(),
		WorkspaceID: "ws1",
		Title:       "Test Notebook",
		TimeRange:   models.TimeRange{From: 1000, To: 2000},
		Cells: []models.Cell{
			{ID: "heading", Type: models.CellTypeHeading, HeadingType: "h1", Content: "Test"},
			{ID: "text", Type: models.CellTypeText, Content: "hello"},
		},
		Labels: []models.Label{{Key: "team", Value: "sre"}},
	}

	for _, override := range overrides {
		override(nb)
	}

	return nb
}

// WithImageFile adds an image cell that references an uploaded file.
func WithImageFile(fileID string) func(*models.Notebook) {
	return func(nb *models.Notebook) {
		nb.Cells = append(nb.Cells, models.Cell{ID: "image-" + fileID, Type: models.CellTypeImage, FileID: fileID})
	}
}

// CreateTestTrigger creates a test Trigger bound to a template name.
func CreateTestTrigger(overrides ...func(*models.Trigger)) *models.Trigger {
	trigger := &models.Trigger{
		ID:           NewID(),
		Title:        "Test Trigger",
		TemplateName: "incident",
	}

	for _, override := range overrides {
		override(trigger)
	}

	return trigger
}
