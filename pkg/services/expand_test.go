package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dukex/nbctl/pkg/arguments"
	"github.com/dukex/nbctl/pkg/mocks"
	"github.com/dukex/nbctl/pkg/models"
	"github.com/dukex/nbctl/pkg/services"
	"github.com/dukex/nbctl/pkg/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const incidentTemplate = `{
  "title": {{ printf "Incident: %s" (arg "service") | toJSON }},
  "cells": [
    {"id": "c1", "type": "text", "content": {{ printf "%d sources" (len (ext "PROXY_DATA_SOURCES")) | toJSON }}}
  ],
  "labels": [{"key": "service", "value": {{ arg "service" | toJSON }}}]
}`

func newExpander(t *testing.T, client *mocks.MockAPI, readFile func(string) ([]byte, error)) *services.Expander {
	t.Helper()

	loader := services.NewLoader(client, testLogger()).WithReadFile(readFile)

	expander, err := services.NewExpander(loader, client, template.NewEngine(), testLogger())
	require.NoError(t, err)

	return expander
}

func localTemplate(body string) func(string) ([]byte, error) {
	return func(string) ([]byte, error) {
		return []byte(body), nil
	}
}

func TestExpander_DryRunWithoutCredentials(t *testing.T) {
	t.Parallel()

	client := mocks.NewMockAPI(false)
	expander := newExpander(t, client, localTemplate(incidentTemplate))

	result, err := expander.Expand(context.Background(), services.ExpandRequest{
		Template:  "incident.tmpl",
		Arguments: arguments.Map{"service": "checkout"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Incident: checkout", result.Notebook.Title)
	assert.Equal(t, "0 sources", result.Notebook.Cells[0].Content)
	assert.Nil(t, result.Created)
	assert.Empty(t, result.NotebookURL)
	assert.True(t, json.Valid(result.Payload))
	assert.Contains(t, string(result.Payload), "\n  \"title\"")

	client.AssertNotCalled(t, "ProxyDataSources", mock.Anything)
	client.AssertNotCalled(t, "CreateNotebook", mock.Anything, mock.Anything)
}

func TestExpander_Commit(t *testing.T) {
	t.Parallel()

	client := mocks.NewMockAPI(true)
	client.On("ProxyDataSources", mock.Anything).Return([]models.ProxyDataSource{
		{Name: "prom", Type: "prometheus", Proxy: models.ProxySummary{ID: "p1", Name: "edge"}},
	}, nil).Once()
	client.On("CreateNotebook", mock.Anything, mock.MatchedBy(func(nb models.NewNotebook) bool {
		return nb.Title == "Incident: checkout" && nb.Cells[0].Content == "1 sources"
	})).Return(&models.Notebook{ID: testNotebookID, Title: "Incident: checkout"}, nil).Once()

	expander := newExpander(t, client, localTemplate(incidentTemplate))

	result, err := expander.Expand(context.Background(), services.ExpandRequest{
		Template:  "incident.tmpl",
		Arguments: arguments.Map{"service": "checkout", services.ProxyDataSourcesVariable: "spoofed"},
		Create:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://notebooks.test/notebook/"+testNotebookID, result.NotebookURL)
	assert.Equal(t, testNotebookID, result.Created.ID)

	client.AssertExpectations(t)
}

func TestExpander_CommitRequiresCredentials(t *testing.T) {
	t.Parallel()

	client := mocks.NewMockAPI(false)
	expander := newExpander(t, client, noReadFile(t))

	_, err := expander.Expand(context.Background(), services.ExpandRequest{Template: "incident.tmpl", Create: true})
	require.ErrorIs(t, err, services.ErrAuthenticationRequired)

	client.AssertExpectations(t)
}

func TestExpander_MissingArgument(t *testing.T) {
	t.Parallel()

	client := mocks.NewMockAPI(false)
	expander := newExpander(t, client, localTemplate(incidentTemplate))

	_, err := expander.Expand(context.Background(), services.ExpandRequest{Template: "incident.tmpl"})
	require.ErrorIs(t, err, services.ErrTemplateEvaluationFailed)

	name, ok := services.MissingArgument(err)
	require.True(t, ok)
	assert.Equal(t, "service", name)
}

func TestExpander_InvalidPayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `title: nope`},
		{name: "array", body: `[1, 2]`},
		{name: "missing title", body: `{"cells": []}`},
		{name: "empty title", body: `{"title": ""}`},
		{name: "cell without type", body: `{"title": "x", "cells": [{"id": "a"}]}`},
		{name: "label without key", body: `{"title": "x", "labels": [{"value": "a"}]}`},
		{name: "inverted time range", body: `{"title": "x", "time_range": {"from": 20, "to": 10}}`},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			expander := newExpander(t, mocks.NewMockAPI(false), localTemplate(testCase.body))

			_, err := expander.Expand(context.Background(), services.ExpandRequest{Template: "broken.tmpl"})
			require.ErrorIs(t, err, services.ErrTemplateEvaluationFailed)

			var evalErr *services.EvaluationError
			require.ErrorAs(t, err, &evalErr)
			assert.Equal(t, services.ReasonInvalidPayload, evalErr.Reason)
		})
	}
}

func TestExpander_EngineError(t *testing.T) {
	t.Parallel()

	expander := newExpander(t, mocks.NewMockAPI(false), localTemplate(`{"title": {{ nosuchfunc }}}`))

	_, err := expander.Expand(context.Background(), services.ExpandRequest{Template: "broken.tmpl"})

	var evalErr *services.EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, services.ReasonEngine, evalErr.Reason)
}

func TestExpander_DataSourceFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	client := mocks.NewMockAPI(true)
	client.On("ProxyDataSources", mock.Anything).Return(nil, boom)

	expander := newExpander(t, client, localTemplate(incidentTemplate))

	// dry runs fall back to an empty list
	result, err := expander.Expand(context.Background(), services.ExpandRequest{
		Template:  "incident.tmpl",
		Arguments: arguments.Map{"service": "checkout"},
	})
	require.NoError(t, err)
	assert.Equal(t, "0 sources", result.Notebook.Cells[0].Content)

	_, err = expander.Expand(context.Background(), services.ExpandRequest{
		Template:  "incident.tmpl",
		Arguments: arguments.Map{"service": "checkout"},
		Create:    true,
	})
	require.ErrorIs(t, err, boom)
	client.AssertNotCalled(t, "CreateNotebook", mock.Anything, mock.Anything)
}

func TestExpander_UploadedTemplate(t *testing.T) {
	t.Parallel()

	client := mocks.NewMockAPI(false)
	client.On("TemplateByName", mock.Anything, "incident").
		Return(&models.Template{Name: "incident", Body: incidentTemplate}, nil).Once()

	expander := newExpander(t, client, noReadFile(t))

	result, err := expander.Expand(context.Background(), services.ExpandRequest{
		Template:  "incident",
		Arguments: arguments.Map{"service": "db"},
	})
	require.NoError(t, err)
	assert.Equal(t, services.SourceUploaded, result.Source.Kind)
	assert.Equal(t, "Incident: db", result.Notebook.Title)

	client.AssertExpectations(t)
}
