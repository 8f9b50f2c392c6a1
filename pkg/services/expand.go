package services

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/nbctl/pkg/arguments"
	"github.com/dukex/nbctl/pkg/models"
	"github.com/dukex/nbctl/pkg/template"
	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

// ProxyDataSourcesVariable is the runtime variable holding the workspace data sources.
const ProxyDataSourcesVariable = "PROXY_DATA_SOURCES"

// reservedVariables are provided by the expander and cannot be set by users.
var reservedVariables = []string{ProxyDataSourcesVariable}

//go:embed schema/new_notebook.json
var newNotebookSchema string

// Evaluator renders template source into a notebook payload.
type Evaluator interface {
	Evaluate(body string, env template.Env) ([]byte, error)
}

// NotebookCreator creates notebooks and provides the runtime context for expansion.
type NotebookCreator interface {
	CreateNotebook(ctx context.Context, nb models.NewNotebook) (*models.Notebook, error)
	ProxyDataSources(ctx context.Context) ([]models.ProxyDataSource, error)
	NotebookURL(id string) string
	Authenticated() bool
}

// ExpandState names a step of an expansion.
type ExpandState string

const (
	StateResolveTemplateReference ExpandState = "ResolveTemplateReference"
	StateUploadedTemplateExpand   ExpandState = "UploadedTemplateExpand"
	StateFileOrURLLoad            ExpandState = "FileOrURLLoad"
	StateLocalExpand              ExpandState = "LocalExpand"
	StateCreateNotebook           ExpandState = "CreateNotebook"
	StateReportURL                ExpandState = "ReportURL"
)

// ExpandRequest asks for a template to be expanded. Without Create the
// expansion is a dry run.
type ExpandRequest struct {
	Template  string
	Arguments arguments.Map
	Create    bool
}

// ExpandResult is the outcome of an expansion. Created and NotebookURL are
// only set when a notebook was created.
type ExpandResult struct {
	Source      TemplateSource
	Payload     []byte
	Notebook    *models.NewNotebook
	Created     *models.Notebook
	NotebookURL string
}

// Expander turns templates into notebooks.
type Expander struct {
	loader    *Loader
	notebooks NotebookCreator
	evaluator Evaluator
	validate  *validator.Validate
	schema    *gojsonschema.Schema
	logger    *slog.Logger
}

func NewExpander(loader *Loader, notebooks NotebookCreator, evaluator Evaluator, logger *slog.Logger) (*Expander, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(newNotebookSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile notebook schema: %w", err)
	}

	return &Expander{
		loader:    loader,
		notebooks: notebooks,
		evaluator: evaluator,
		validate:  models.NewValidator(),
		schema:    schema,
		logger:    logger.With("module", "expander"),
	}, nil
}

// WithNotebooks returns a copy of the expander that creates notebooks and
// reads the runtime context through notebooks.
func (e *Expander) WithNotebooks(notebooks NotebookCreator) *Expander {
	clone := *e
	clone.notebooks = notebooks

	return &clone
}

func (e *Expander) enter(ctx context.Context, state ExpandState, attrs ...any) {
	e.logger.DebugContext(ctx, "expand", append([]any{"state", string(state)}, attrs...)...)
}

// Expand loads the referenced template, evaluates it and, when requested,
// creates the notebook.
func (e *Expander) Expand(ctx context.Context, req ExpandRequest) (*ExpandResult, error) {
	if req.Create && !e.notebooks.Authenticated() {
		return nil, newOperationError("expand", req.Template, ErrAuthenticationRequired)
	}

	e.enter(ctx, StateResolveTemplateReference, "template", req.Template)

	source, err := e.loader.Resolve(req.Template)
	if err != nil {
		return nil, newOperationError("expand", req.Template, err)
	}

	if source.Kind == SourceUploaded {
		e.enter(ctx, StateUploadedTemplateExpand, "name", source.Name)
	} else {
		e.enter(ctx, StateFileOrURLLoad, "source", source.String())
	}

	loaded, err := e.loader.Load(ctx, source)
	if err != nil {
		return nil, newOperationError("expand", req.Template, err)
	}

	if source.Kind != SourceUploaded {
		e.enter(ctx, StateLocalExpand, "source", source.String())
	}

	nb, payload, err := e.Render(ctx, loaded.Body, req.Arguments, req.Create)
	if err != nil {
		return nil, newOperationError("expand", req.Template, err)
	}

	result := &ExpandResult{Source: source, Payload: payload, Notebook: nb}

	if !req.Create {
		return result, nil
	}

	e.enter(ctx, StateCreateNotebook, "title", nb.Title)

	created, err := e.notebooks.CreateNotebook(ctx, *nb)
	if err != nil {
		return nil, newOperationError("expand", req.Template, err)
	}

	e.enter(ctx, StateReportURL, "notebook_id", created.ID)

	result.Created = created
	result.NotebookURL = e.notebooks.NotebookURL(created.ID)

	e.logger.InfoContext(ctx, "notebook created", "notebook_id", created.ID, "url", result.NotebookURL)

	return result, nil
}

// Render evaluates body with args and the runtime context, and validates
// the output. It returns the decoded notebook and the indented payload.
// With strict set, a failure to read the runtime context is returned
// instead of falling back to empty values.
func (e *Expander) Render(ctx context.Context, body string, args arguments.Map, strict bool) (*models.NewNotebook, []byte, error) {
	runtime, err := e.runtimeContext(ctx, strict)
	if err != nil {
		return nil, nil, err
	}

	userArgs := make(arguments.Map, len(args))
	for k, v := range args {
		userArgs[k] = v
	}

	for _, name := range reservedVariables {
		if _, ok := userArgs[name]; ok {
			e.logger.WarnContext(ctx, "ignoring argument with reserved name", "argument", name)
			delete(userArgs, name)
		}
	}

	out, err := e.evaluator.Evaluate(body, template.Env{Arguments: userArgs, Runtime: runtime})
	if err != nil {
		var missing *template.MissingArgumentError
		if errors.As(err, &missing) {
			return nil, nil, &EvaluationError{Reason: ReasonMissingArgument, Parameter: missing.Name, Err: err}
		}

		return nil, nil, &EvaluationError{Reason: ReasonEngine, Err: err}
	}

	nb, err := e.validatePayload(out)
	if err != nil {
		return nil, nil, err
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, out, "", "  "); err != nil {
		return nil, nil, &EvaluationError{Reason: ReasonInvalidPayload, Err: err}
	}

	return nb, indented.Bytes(), nil
}

func (e *Expander) runtimeContext(ctx context.Context, strict bool) (map[string]any, error) {
	dataSources := []models.ProxyDataSource{}

	if e.notebooks.Authenticated() {
		fetched, err := e.notebooks.ProxyDataSources(ctx)

		switch {
		case err == nil:
			dataSources = fetched
		case strict:
			return nil, err
		default:
			e.logger.WarnContext(ctx, "failed to load data sources, using an empty list", "error", err)
		}
	}

	return map[string]any{ProxyDataSourcesVariable: dataSources}, nil
}

func (e *Expander) validatePayload(out []byte) (*models.NewNotebook, error) {
	if !json.Valid(out) {
		return nil, &EvaluationError{Reason: ReasonInvalidPayload, Err: errors.New("output is not valid JSON")}
	}

	result, err := e.schema.Validate(gojsonschema.NewBytesLoader(out))
	if err != nil {
		return nil, &EvaluationError{Reason: ReasonInvalidPayload, Err: err}
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return nil, &EvaluationError{
			Reason:  ReasonInvalidPayload,
			Details: details,
			Err:     errors.New("payload does not match the notebook schema"),
		}
	}

	var nb models.NewNotebook
	if err := json.Unmarshal(out, &nb); err != nil {
		return nil, &EvaluationError{Reason: ReasonInvalidPayload, Err: err}
	}

	if err := e.validate.Struct(nb); err != nil {
		return nil, &EvaluationError{Reason: ReasonInvalidPayload, Err: err}
	}

	return &nb, nil
}
