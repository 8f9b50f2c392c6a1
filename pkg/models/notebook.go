// Package models defines the notebook, template and trigger entities exchanged with the notebook service.
package models

import (
	"encoding/json"
	"time"
)

// CellType names the kind of content a cell holds.
type CellType string

const (
	CellTypeText       CellType = "text"
	CellTypeHeading    CellType = "heading"
	CellTypeImage      CellType = "image"
	CellTypeCode       CellType = "code"
	CellTypeCheckbox   CellType = "checkbox"
	CellTypeListItem   CellType = "list_item"
	CellTypeDivider    CellType = "divider"
	CellTypeProvider   CellType = "provider"
	CellTypeTimeline   CellType = "timeline"
	CellTypeDiscussion CellType = "discussion"
)

// TimeRange is the time window a notebook investigates, in seconds.
type TimeRange struct {
	From float64 `json:"from"`
	To   float64 `json:"to"   validate:"gtefield=From"`
}

// Label is a key/value tag attached to a notebook.
type Label struct {
	Key   string `json:"key"             validate:"required"`
	Value string `json:"value,omitempty"`
}

// Cell is a single content unit inside a notebook. Fields that are not
// modelled explicitly are kept in Extra so that a cell survives a
// decode/encode cycle unchanged.
type Cell struct {
	ID          string         `json:"id"`
	Type        CellType       `json:"type"                   validate:"required"`
	Content     string         `json:"content,omitempty"`
	HeadingType string         `json:"heading_type,omitempty"`
	URL         string         `json:"url,omitempty"`
	FileID      string         `json:"file_id,omitempty"`
	ReadOnly    *bool          `json:"read_only,omitempty"`
	Extra       map[string]any `json:"-"`
}

var cellFields = map[string]struct{}{
	"id":           {},
	"type":         {},
	"content":      {},
	"heading_type": {},
	"url":          {},
	"file_id":      {},
	"read_only":    {},
}

// MarshalJSON implements the json.Marshaler interface.
func (c Cell) MarshalJSON() ([]byte, error) {
	type Alias Cell

	known, err := json.Marshal(Alias(c))
	if err != nil {
		return nil, err
	}

	if len(c.Extra) == 0 {
		return known, nil
	}

	merged := make(map[string]any, len(c.Extra)+len(cellFields))
	for k, v := range c.Extra {
		merged[k] = v
	}

	var fields map[string]any
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}

	for k, v := range fields {
		merged[k] = v
	}

	return json.Marshal(merged)
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (c *Cell) UnmarshalJSON(data []byte) error {
	type Alias Cell

	var alias Alias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for k, v := range raw {
		if _, known := cellFields[k]; known {
			continue
		}

		if alias.Extra == nil {
			alias.Extra = make(map[string]any)
		}

		alias.Extra[k] = v
	}

	*c = Cell(alias)

	return nil
}

// NewNotebook is the notebook-creation payload accepted by the service.
type NewNotebook struct {
	Title       string         `json:"title"                  validate:"required"`
	TimeRange   TimeRange      `json:"time_range"`
	Cells       []Cell         `json:"cells"                  validate:"dive"`
	Labels      []Label        `json:"labels"                 validate:"dive"`
	DataSources map[string]any `json:"data_sources,omitempty"`
}

// Notebook is a notebook as stored by the service.
type Notebook struct {
	ID          string         `json:"id"`
	WorkspaceID string         `json:"workspace_id,omitempty"`
	Title       string         `json:"title"`
	TimeRange   TimeRange      `json:"time_range"`
	Cells       []Cell         `json:"cells"`
	Labels      []Label        `json:"labels"`
	DataSources map[string]any `json:"data_sources,omitempty"`
	Revision    int            `json:"revision"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ToNewNotebook strips the server-assigned fields from a notebook.
func (n *Notebook) ToNewNotebook() NewNotebook {
	cells := make([]Cell, len(n.Cells))
	copy(cells, n.Cells)

	labels := make([]Label, len(n.Labels))
	copy(labels, n.Labels)

	return NewNotebook{
		Title:       n.Title,
		TimeRange:   n.TimeRange,
		Cells:       cells,
		Labels:      labels,
		DataSources: n.DataSources,
	}
}

// ProxyDataSource describes a data source reachable through a proxy in the workspace.
type ProxyDataSource struct {
	Name  string       `json:"name"`
	Type  string       `json:"type"`
	Proxy ProxySummary `json:"proxy"`
}

// ProxySummary identifies the proxy serving a data source.
type ProxySummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
