package sandbox

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/nbctl/pkg/arguments"
	"github.com/dukex/nbctl/pkg/models"
	"github.com/dukex/nbctl/pkg/persistence"
	"github.com/dukex/nbctl/pkg/template"
	"github.com/gofiber/fiber/v3"
)

func (s *Server) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := http.StatusOK
	repository := "ok"

	if err := s.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
		repository = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository": repository,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) GetNotebook(c fiber.Ctx) error {
	notebook, err := s.persistence.Notebooks().ByID(c.Context(), c.Params("id"))
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "notebook_not_found", "notebook not found")
		}

		return internalError(c, err)
	}

	return c.JSON(notebook)
}

func (s *Server) CreateNotebook(c fiber.Ctx) error {
	var req models.NewNotebook
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := s.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	notebook, err := s.saveNotebook(c.Context(), c.Params("workspace"), req)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(notebook)
}

func (s *Server) saveNotebook(ctx context.Context, workspaceID string, req models.NewNotebook) (*models.Notebook, error) {
	cells := make([]models.Cell, len(req.Cells))
	for i, cell := range req.Cells {
		if cell.ID == "" {
			cell.ID = s.newID()
		}

		cells[i] = cell
	}

	labels := req.Labels
	if labels == nil {
		labels = []models.Label{}
	}

	notebook := &models.Notebook{
		ID:          s.newID(),
		WorkspaceID: workspaceID,
		Title:       req.Title,
		TimeRange:   req.TimeRange,
		Cells:       cells,
		Labels:      labels,
		DataSources: req.DataSources,
	}

	if err := s.persistence.Notebooks().Save(ctx, notebook); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "notebook created", "notebook_id", notebook.ID, "workspace_id", workspaceID)

	return notebook, nil
}

func (s *Server) ListDataSources(c fiber.Ctx) error {
	return c.JSON(s.dataSources)
}

func (s *Server) ListTemplates(c fiber.Ctx) error {
	templates, err := s.persistence.Templates().List(c.Context(), c.Params("workspace"))
	if err != nil {
		return internalError(c, err)
	}

	summaries := make([]models.TemplateSummary, 0, len(templates))
	for _, t := range templates {
		summaries = append(summaries, models.TemplateSummary{
			Name:        t.Name,
			Description: t.Description,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		})
	}

	return c.JSON(summaries)
}

func (s *Server) GetTemplate(c fiber.Ctx) error {
	tmpl, err := s.persistence.Templates().ByName(c.Context(), c.Params("workspace"), c.Params("name"))
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "template_not_found", "template not found")
		}

		return internalError(c, err)
	}

	return c.JSON(tmpl)
}

func (s *Server) CreateTemplate(c fiber.Ctx) error {
	var req models.NewTemplate
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := s.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	params, err := template.Parameters(req.Body)
	if err != nil {
		return badRequest(c, err.Error())
	}

	tmpl := &models.Template{
		Name:        req.Name,
		Description: req.Description,
		Body:        req.Body,
		Parameters:  params,
	}

	if err := s.persistence.Templates().Create(c.Context(), c.Params("workspace"), tmpl); err != nil {
		return handleStoreError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(tmpl)
}

func (s *Server) UpdateTemplate(c fiber.Ctx) error {
	var req models.UpdateTemplate
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := s.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workspaceID := c.Params("workspace")

	existing, err := s.persistence.Templates().ByName(c.Context(), workspaceID, c.Params("name"))
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "template_not_found", "template not found")
		}

		return internalError(c, err)
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.Body != nil {
		params, err := template.Parameters(*req.Body)
		if err != nil {
			return badRequest(c, err.Error())
		}

		existing.Body = *req.Body
		existing.Parameters = params
	}

	if err := s.persistence.Templates().Update(c.Context(), workspaceID, existing); err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(existing)
}

func (s *Server) DeleteTemplate(c fiber.Ctx) error {
	err := s.persistence.Templates().Delete(c.Context(), c.Params("workspace"), c.Params("name"))
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "template_not_found", "template not found")
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) ListTriggers(c fiber.Ctx) error {
	records, err := s.persistence.Triggers().List(c.Context(), c.Params("workspace"))
	if err != nil {
		return internalError(c, err)
	}

	triggers := make([]models.Trigger, 0, len(records))
	for _, record := range records {
		triggers = append(triggers, record.Trigger)
	}

	return c.JSON(triggers)
}

func (s *Server) GetTrigger(c fiber.Ctx) error {
	record, err := s.persistence.Triggers().ByID(c.Context(), c.Params("id"))
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "trigger_not_found", "trigger not found")
		}

		return internalError(c, err)
	}

	return c.JSON(record.Trigger)
}

func (s *Server) CreateTrigger(c fiber.Ctx) error {
	var req models.NewTrigger
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := req.CheckTemplateReference(); err != nil {
		return badRequest(c, err.Error())
	}

	if err := s.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workspaceID := c.Params("workspace")

	switch {
	case req.TemplateName != "":
		_, err := s.persistence.Templates().ByName(c.Context(), workspaceID, req.TemplateName)
		if err != nil {
			if persistence.IsNotFound(err) {
				return notFound(c, "template_not_found", "template not found")
			}

			return internalError(c, err)
		}
	case req.TemplateBody != "":
		if _, err := template.Parameters(req.TemplateBody); err != nil {
			return badRequest(c, err.Error())
		}
	}

	record := &persistence.TriggerRecord{
		Trigger: models.Trigger{
			ID:               s.newID(),
			Title:            req.Title,
			TemplateName:     req.TemplateName,
			TemplateURL:      req.TemplateURL,
			TemplateBody:     req.TemplateBody,
			DefaultArguments: req.DefaultArguments,
		},
		WorkspaceID: workspaceID,
		SecretKey:   s.newSecret(),
	}

	if err := s.persistence.Triggers().Save(c.Context(), record); err != nil {
		return handleStoreError(c, err)
	}

	s.logger.InfoContext(c.Context(), "trigger created", "trigger_id", record.ID, "workspace_id", workspaceID)

	return c.Status(fiber.StatusCreated).JSON(models.TriggerWithSecret{
		Trigger:   record.Trigger,
		SecretKey: record.SecretKey,
	})
}

func (s *Server) DeleteTrigger(c fiber.Ctx) error {
	if err := s.persistence.Triggers().Delete(c.Context(), c.Params("id")); err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "trigger_not_found", "trigger not found")
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// InvokeTrigger expands the template bound to a trigger into a new notebook.
// The path carries either the public webhook endpoint or the trigger secret.
func (s *Server) InvokeTrigger(c fiber.Ctx) error {
	ctx := c.Context()

	record, err := s.persistence.Triggers().ByID(ctx, c.Params("id"))
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "trigger_not_found", "trigger not found")
		}

		return internalError(c, err)
	}

	secret := c.Params("secret")
	if secret != webhookEndpoint && subtle.ConstantTimeCompare([]byte(secret), []byte(record.SecretKey)) != 1 {
		return notFound(c, "trigger_not_found", "trigger not found")
	}

	args, err := decodeArguments(c.Body())
	if err != nil {
		return badRequest(c, err.Error())
	}

	body, err := s.templateBody(ctx, record)
	if err != nil {
		return handleStoreError(c, err)
	}

	params, err := template.Parameters(body)
	if err != nil {
		return problem(c, fiber.StatusUnprocessableEntity, "template_evaluation_failed", err.Error())
	}

	merged := arguments.Merge(record.DefaultArguments, args)

	if details, err := validateArguments(params, merged); err != nil {
		return badRequest(c, strings.Join(append([]string{err.Error()}, details...), "; "))
	}

	notebooks := &workspaceNotebooks{server: s, workspaceID: record.WorkspaceID}

	nb, _, err := s.expander.WithNotebooks(notebooks).Render(ctx, body, merged, true)
	if err != nil {
		return handleStoreError(c, err)
	}

	created, err := notebooks.CreateNotebook(ctx, *nb)
	if err != nil {
		return handleStoreError(c, err)
	}

	s.logger.InfoContext(ctx, "trigger invoked", "trigger_id", record.ID, "notebook_id", created.ID)

	return c.Status(fiber.StatusCreated).JSON(models.TriggerInvokeResponse{
		NotebookID:    created.ID,
		NotebookTitle: created.Title,
		NotebookURL:   s.NotebookURL(created.ID),
	})
}

func (s *Server) templateBody(ctx context.Context, record *persistence.TriggerRecord) (string, error) {
	switch {
	case record.TemplateName != "":
		tmpl, err := s.persistence.Templates().ByName(ctx, record.WorkspaceID, record.TemplateName)
		if err != nil {
			return "", err
		}

		return tmpl.Body, nil
	case record.TemplateURL != "":
		return s.fetcher.FetchTemplateURL(ctx, record.TemplateURL)
	default:
		return record.TemplateBody, nil
	}
}

func decodeArguments(body []byte) (arguments.Map, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return arguments.Map{}, nil
	}

	var args arguments.Map
	if err := json.Unmarshal(body, &args); err != nil || args == nil {
		return nil, errors.New("request body must be a JSON object of arguments")
	}

	return args, nil
}

// workspaceNotebooks creates the notebooks of a trigger invocation in the
// workspace that owns the trigger.
type workspaceNotebooks struct {
	server      *Server
	workspaceID string
}

func (w *workspaceNotebooks) CreateNotebook(ctx context.Context, nb models.NewNotebook) (*models.Notebook, error) {
	return w.server.saveNotebook(ctx, w.workspaceID, nb)
}

func (w *workspaceNotebooks) ProxyDataSources(context.Context) ([]models.ProxyDataSource, error) {
	return w.server.dataSources, nil
}

func (w *workspaceNotebooks) NotebookURL(id string) string {
	return w.server.NotebookURL(id)
}

func (w *workspaceNotebooks) Authenticated() bool {
	return true
}
