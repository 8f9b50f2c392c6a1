package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dukex/nbctl/pkg/api"
	"github.com/dukex/nbctl/pkg/arguments"
	"github.com/dukex/nbctl/pkg/identifier"
	"github.com/dukex/nbctl/pkg/models"
	"github.com/dukex/nbctl/pkg/template"
	"github.com/go-playground/validator/v10"
)

// TemplateAPI is the subset of the service API used to manage templates.
type TemplateAPI interface {
	TemplateFetcher
	ListTemplates(ctx context.Context) ([]models.TemplateSummary, error)
	CreateTemplate(ctx context.Context, tmpl models.NewTemplate) (*models.Template, error)
	UpdateTemplate(ctx context.Context, name string, update models.UpdateTemplate) (*models.Template, error)
	DeleteTemplate(ctx context.Context, name string) error
}

// CreateTemplateRequest uploads the template at Source, a local file or a
// URL. An empty Name is derived from the file name.
type CreateTemplateRequest struct {
	Name        string
	Description string
	Source      string
}

// UpdateTemplateRequest changes the description and/or the body of an
// uploaded template. An empty Source keeps the current body.
type UpdateTemplateRequest struct {
	Name        string
	Description *string
	Source      string
}

// TemplateReport is the result of validating a template.
type TemplateReport struct {
	Source     TemplateSource
	Parameters []models.TemplateParameter
	Payload    []byte
	Notebook   *models.NewNotebook
}

// Templates manages uploaded templates.
type Templates struct {
	api      TemplateAPI
	loader   *Loader
	expander *Expander
	validate *validator.Validate
	logger   *slog.Logger
}

func NewTemplates(templateAPI TemplateAPI, loader *Loader, expander *Expander, logger *slog.Logger) *Templates {
	return &Templates{
		api:      templateAPI,
		loader:   loader,
		expander: expander,
		validate: models.NewValidator(),
		logger:   logger.With("module", "templates"),
	}
}

// Create uploads a template read from a local file or a URL.
func (s *Templates) Create(ctx context.Context, req CreateTemplateRequest) (*models.Template, error) {
	body, source, err := s.loadSource(ctx, req.Source)
	if err != nil {
		return nil, newOperationError("template.create", req.Source, err)
	}

	name := req.Name
	if name == "" {
		name = nameFromSource(source)
	}

	return s.create(ctx, models.NewTemplate{Name: name, Description: req.Description, Body: body})
}

// Upload creates the template, or replaces the body and description of the
// template with the same name.
func (s *Templates) Upload(ctx context.Context, tmpl models.NewTemplate) (*models.Template, error) {
	if err := identifier.ValidateName(tmpl.Name); err != nil {
		return nil, newOperationError("template.upload", tmpl.Name, err)
	}

	_, err := s.api.TemplateByName(ctx, tmpl.Name)

	switch {
	case err == nil:
		updated, err := s.api.UpdateTemplate(ctx, tmpl.Name, models.UpdateTemplate{
			Description: &tmpl.Description,
			Body:        &tmpl.Body,
		})
		if err != nil {
			return nil, newOperationError("template.upload", tmpl.Name, err)
		}

		s.logger.InfoContext(ctx, "template updated", "name", tmpl.Name)

		return updated, nil
	case api.IsNotFound(err):
		return s.create(ctx, tmpl)
	default:
		return nil, newOperationError("template.upload", tmpl.Name, err)
	}
}

func (s *Templates) create(ctx context.Context, tmpl models.NewTemplate) (*models.Template, error) {
	if err := identifier.ValidateName(tmpl.Name); err != nil {
		return nil, newOperationError("template.create", tmpl.Name, err)
	}

	if err := s.validate.Struct(tmpl); err != nil {
		return nil, newOperationError("template.create", tmpl.Name, fmt.Errorf("invalid template: %w", err))
	}

	if _, err := template.Parameters(tmpl.Body); err != nil {
		return nil, newOperationError("template.create", tmpl.Name, &EvaluationError{Reason: ReasonEngine, Err: err})
	}

	created, err := s.api.CreateTemplate(ctx, tmpl)
	if err != nil {
		return nil, newOperationError("template.create", tmpl.Name, err)
	}

	s.logger.InfoContext(ctx, "template created", "name", created.Name)

	return created, nil
}

// Get fetches an uploaded template by name or template URL.
func (s *Templates) Get(ctx context.Context, ref string) (*models.Template, error) {
	name, err := s.name(ref)
	if err != nil {
		return nil, newOperationError("template.get", ref, err)
	}

	tmpl, err := s.api.TemplateByName(ctx, name)
	if err != nil {
		return nil, newOperationError("template.get", ref, err)
	}

	return tmpl, nil
}

func (s *Templates) List(ctx context.Context) ([]models.TemplateSummary, error) {
	templates, err := s.api.ListTemplates(ctx)
	if err != nil {
		return nil, newOperationError("template.list", "", err)
	}

	return templates, nil
}

func (s *Templates) Update(ctx context.Context, req UpdateTemplateRequest) (*models.Template, error) {
	name, err := s.name(req.Name)
	if err != nil {
		return nil, newOperationError("template.update", req.Name, err)
	}

	update := models.UpdateTemplate{Description: req.Description}

	if req.Source != "" {
		body, _, err := s.loadSource(ctx, req.Source)
		if err != nil {
			return nil, newOperationError("template.update", req.Name, err)
		}

		update.Body = &body
	}

	if err := s.validate.Struct(update); err != nil {
		return nil, newOperationError("template.update", req.Name, fmt.Errorf("invalid template: %w", err))
	}

	updated, err := s.api.UpdateTemplate(ctx, name, update)
	if err != nil {
		return nil, newOperationError("template.update", req.Name, err)
	}

	return updated, nil
}

func (s *Templates) Remove(ctx context.Context, ref string) error {
	name, err := s.name(ref)
	if err != nil {
		return newOperationError("template.remove", ref, err)
	}

	if err := s.api.DeleteTemplate(ctx, name); err != nil {
		return newOperationError("template.remove", ref, err)
	}

	s.logger.InfoContext(ctx, "template removed", "name", name)

	return nil
}

// Validate loads the referenced template, lists its parameters and dry-runs it with args.
func (s *Templates) Validate(ctx context.Context, ref string, args arguments.Map) (*TemplateReport, error) {
	loaded, err := s.loader.LoadReference(ctx, ref)
	if err != nil {
		return nil, newOperationError("template.validate", ref, err)
	}

	params, err := template.Parameters(loaded.Body)
	if err != nil {
		return nil, newOperationError("template.validate", ref, &EvaluationError{Reason: ReasonEngine, Err: err})
	}

	report := &TemplateReport{Source: loaded.Source, Parameters: params}

	nb, payload, err := s.expander.Render(ctx, loaded.Body, args, false)
	if err != nil {
		return report, newOperationError("template.validate", ref, err)
	}

	report.Notebook = nb
	report.Payload = payload

	return report, nil
}

func (s *Templates) name(ref string) (string, error) {
	if name, ok := identifier.NameFromURL(ref, s.api.TemplatesURL()); ok {
		return name, nil
	}

	if err := identifier.ValidateName(ref); err != nil {
		return "", err
	}

	return ref, nil
}

func (s *Templates) loadSource(ctx context.Context, ref string) (string, TemplateSource, error) {
	source, err := s.loader.Resolve(ref)
	if err != nil {
		return "", TemplateSource{}, err
	}

	if source.Kind == SourceUploaded {
		return "", source, fmt.Errorf("%w: %q names an uploaded template", ErrTemplateSourceRequired, ref)
	}

	loaded, err := s.loader.Load(ctx, source)
	if err != nil {
		return "", source, err
	}

	return loaded.Body, source, nil
}

func nameFromSource(source TemplateSource) string {
	base := source.Path
	if source.Kind == SourceRemoteURL {
		base = source.URL
	}

	base = filepath.Base(base)

	return identifier.SlugName(strings.TrimSuffix(base, filepath.Ext(base)))
}
