package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dukex/nbctl/pkg/arguments"
	"github.com/dukex/nbctl/pkg/identifier"
	"github.com/dukex/nbctl/pkg/models"
	"github.com/go-playground/validator/v10"
)

// TriggerAPI is the subset of the service API used for triggers.
type TriggerAPI interface {
	CreateTrigger(ctx context.Context, trigger models.NewTrigger) (*models.TriggerWithSecret, error)
	Trigger(ctx context.Context, id string) (*models.Trigger, error)
	ListTriggers(ctx context.Context) ([]models.Trigger, error)
	DeleteTrigger(ctx context.Context, id string) error
	InvokeTrigger(ctx context.Context, id, secret string, args map[string]any) (*models.TriggerInvokeResponse, error)
	TriggerWebhookURL(id string) string
	TriggerSecretURL(id, secret string) string
}

// CreateTriggerRequest asks for a trigger bound to Template, which may be a
// template name, a template URL or a local template file.
type CreateTriggerRequest struct {
	Title            string
	Template         string
	DefaultArguments arguments.Map
}

// CreatedTrigger is a newly created trigger with its invocation URLs.
type CreatedTrigger struct {
	Trigger          *models.TriggerWithSecret
	WebhookURL       string
	SecretWebhookURL string
}

// Triggers manages webhook triggers.
type Triggers struct {
	api      TriggerAPI
	loader   *Loader
	validate *validator.Validate
	logger   *slog.Logger
}

func NewTriggers(triggerAPI TriggerAPI, loader *Loader, logger *slog.Logger) *Triggers {
	return &Triggers{
		api:      triggerAPI,
		loader:   loader,
		validate: models.NewValidator(),
		logger:   logger.With("module", "triggers"),
	}
}

// Create binds a new trigger to the referenced template.
func (s *Triggers) Create(ctx context.Context, req CreateTriggerRequest) (*CreatedTrigger, error) {
	source, err := s.loader.Resolve(req.Template)
	if err != nil {
		return nil, newOperationError("trigger.create", req.Template, err)
	}

	title := req.Title
	if title == "" {
		title = "Trigger for " + source.String()
	}

	payload := models.NewTrigger{
		Title:            title,
		DefaultArguments: req.DefaultArguments,
	}

	switch source.Kind {
	case SourceUploaded:
		payload.TemplateName = source.Name
	case SourceRemoteURL:
		if source.Insecure() {
			return nil, newOperationError("trigger.create", req.Template, ErrInsecureTemplateURL)
		}

		payload.TemplateURL = source.URL
	case SourceLocalFile:
		loaded, err := s.loader.Load(ctx, source)
		if err != nil {
			return nil, newOperationError("trigger.create", req.Template, err)
		}

		payload.TemplateBody = loaded.Body
	}

	if err := payload.CheckTemplateReference(); err != nil {
		return nil, newOperationError("trigger.create", req.Template, err)
	}

	if err := s.validate.Struct(payload); err != nil {
		return nil, newOperationError("trigger.create", req.Template, fmt.Errorf("invalid trigger: %w", err))
	}

	created, err := s.api.CreateTrigger(ctx, payload)
	if err != nil {
		return nil, newOperationError("trigger.create", req.Template, err)
	}

	secret, err := models.SecretKey(created)
	if err != nil {
		return nil, newOperationError("trigger.create", req.Template, err)
	}

	s.logger.InfoContext(ctx, "trigger created", "trigger_id", created.ID, "source", source.Kind.String())

	return &CreatedTrigger{
		Trigger:          created,
		WebhookURL:       s.api.TriggerWebhookURL(created.ID),
		SecretWebhookURL: s.api.TriggerSecretURL(created.ID, secret),
	}, nil
}

// Get fetches the trigger named by ref, a bare ID or a trigger URL.
func (s *Triggers) Get(ctx context.Context, ref string) (*models.Trigger, error) {
	id, err := triggerRef(ref)
	if err != nil {
		return nil, newOperationError("trigger.get", ref, err)
	}

	trigger, err := s.api.Trigger(ctx, id)
	if err != nil {
		return nil, newOperationError("trigger.get", ref, err)
	}

	return trigger, nil
}

// List returns the workspace triggers, most recently updated first.
func (s *Triggers) List(ctx context.Context) ([]models.Trigger, error) {
	triggers, err := s.api.ListTriggers(ctx)
	if err != nil {
		return nil, newOperationError("trigger.list", "", err)
	}

	sort.SliceStable(triggers, func(i, j int) bool {
		return triggers[i].UpdatedAt.After(triggers[j].UpdatedAt)
	})

	return triggers, nil
}

func (s *Triggers) Delete(ctx context.Context, ref string) error {
	id, err := triggerRef(ref)
	if err != nil {
		return newOperationError("trigger.delete", ref, err)
	}

	if err := s.api.DeleteTrigger(ctx, id); err != nil {
		return newOperationError("trigger.delete", ref, err)
	}

	s.logger.InfoContext(ctx, "trigger deleted", "trigger_id", id)

	return nil
}

// Invoke fires the trigger without credentials. secret, or the secret
// embedded in a secret URL reference, selects the secret endpoint.
func (s *Triggers) Invoke(ctx context.Context, ref string, args arguments.Map, secret string) (*models.TriggerInvokeResponse, error) {
	id, urlSecret, ok := identifier.TriggerSecretURL(ref)
	if !ok {
		var err error

		id, err = identifier.TriggerID(ref)
		if err != nil {
			return nil, newOperationError("trigger.invoke", ref, err)
		}
	}

	if secret == "" {
		secret = urlSecret
	}

	resp, err := s.api.InvokeTrigger(ctx, id, secret, args)
	if err != nil {
		return nil, newOperationError("trigger.invoke", ref, err)
	}

	s.logger.InfoContext(ctx, "trigger invoked", "trigger_id", id, "notebook_id", resp.NotebookID)

	return resp, nil
}

// triggerRef accepts any trigger URL, including one that carries the secret.
func triggerRef(ref string) (string, error) {
	if id, _, ok := identifier.TriggerSecretURL(ref); ok {
		return id, nil
	}

	return identifier.TriggerID(ref)
}
