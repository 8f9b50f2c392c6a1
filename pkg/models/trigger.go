package models

import (
	"errors"
	"time"
)

// ErrTriggerSecretUnavailable is returned when a secret key is requested from
// a trigger that was not just created. The key is only revealed once.
var ErrTriggerSecretUnavailable = errors.New("trigger secret key is only available at creation")

// TriggerShape is implemented by the two shapes a trigger can take: a plain
// Trigger returned by reads, and a TriggerWithSecret returned by creation.
type TriggerShape interface {
	Base() *Trigger
	isTriggerShape()
}

// Trigger binds a webhook endpoint to a template.
type Trigger struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	TemplateName     string         `json:"template_name,omitempty"`
	TemplateURL      string         `json:"template_url,omitempty"`
	TemplateBody     string         `json:"template_body,omitempty"`
	DefaultArguments map[string]any `json:"default_arguments,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (t *Trigger) Base() *Trigger { return t }

func (*Trigger) isTriggerShape() {}

// TriggerWithSecret is the creation result of a trigger. It is the only value
// that ever carries the secret key.
type TriggerWithSecret struct {
	Trigger

	SecretKey string `json:"secret_key"`
}

func (t *TriggerWithSecret) Base() *Trigger { return &t.Trigger }

func (*TriggerWithSecret) isTriggerShape() {}

// SecretKey returns the secret of a freshly created trigger.
func SecretKey(shape TriggerShape) (string, error) {
	withSecret, ok := shape.(*TriggerWithSecret)
	if !ok || withSecret.SecretKey == "" {
		return "", ErrTriggerSecretUnavailable
	}

	return withSecret.SecretKey, nil
}

// NewTrigger is the payload for creating a trigger. Exactly one of
// TemplateName, TemplateBody and TemplateURL must be set.
type NewTrigger struct {
	Title            string         `json:"title"`
	TemplateName     string         `json:"template_name,omitempty" validate:"omitempty,template_name"`
	TemplateBody     string         `json:"template_body,omitempty"`
	TemplateURL      string         `json:"template_url,omitempty"  validate:"omitempty,url,startswith=https://"`
	DefaultArguments map[string]any `json:"default_arguments,omitempty"`
}

// ErrInvalidTriggerTemplate is returned when a NewTrigger does not reference exactly one template.
var ErrInvalidTriggerTemplate = errors.New("trigger requires exactly one of template name, template body or template url")

// CheckTemplateReference enforces the mutual exclusion of the template fields.
func (t *NewTrigger) CheckTemplateReference() error {
	set := 0

	for _, field := range []string{t.TemplateName, t.TemplateBody, t.TemplateURL} {
		if field != "" {
			set++
		}
	}

	if set != 1 {
		return ErrInvalidTriggerTemplate
	}

	return nil
}

// TriggerInvokeResponse is returned by a webhook invocation.
type TriggerInvokeResponse struct {
	NotebookID    string `json:"notebook_id"`
	NotebookTitle string `json:"notebook_title"`
	NotebookURL   string `json:"notebook_url"`
}
