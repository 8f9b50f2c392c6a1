package models

import "time"

// TemplateParameter describes an argument a template accepts.
type TemplateParameter struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Default any    `json:"default,omitempty"`
}

// Required reports whether the parameter has no default value.
func (p TemplateParameter) Required() bool {
	return p.Default == nil
}

// Template is a parameterized notebook source uploaded to a workspace.
type Template struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Body        string              `json:"body"`
	Parameters  []TemplateParameter `json:"parameters"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// TemplateSummary is the list representation of a template.
type TemplateSummary struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewTemplate is the payload for uploading a template.
type NewTemplate struct {
	Name        string `json:"name"        validate:"required,template_name"`
	Description string `json:"description"`
	Body        string `json:"body"        validate:"required"`
}

// UpdateTemplate is the payload for a partial template update.
type UpdateTemplate struct {
	Description *string `json:"description,omitempty"`
	Body        *string `json:"body,omitempty"        validate:"omitempty,min=1"`
}
