package services_test

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"testing"

	"github.com/dukex/nbctl/pkg/api"
	"github.com/dukex/nbctl/pkg/mocks"
	"github.com/dukex/nbctl/pkg/models"
	"github.com/dukex/nbctl/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const templatesURL = "https://notebooks.test/api/workspaces/ws1/templates/"

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func noReadFile(t *testing.T) func(string) ([]byte, error) {
	t.Helper()

	return func(name string) ([]byte, error) {
		t.Errorf("unexpected local read of %s", name)

		return nil, fs.ErrNotExist
	}
}

func TestResolveTemplateSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		token    string
		expected services.TemplateSource
	}{
		{name: "template name", token: "incident", expected: services.TemplateSource{Kind: services.SourceUploaded, Name: "incident"}},
		{name: "padded name", token: "  incident-review ", expected: services.TemplateSource{Kind: services.SourceUploaded, Name: "incident-review"}},
		{name: "template url", token: templatesURL + "incident", expected: services.TemplateSource{Kind: services.SourceUploaded, Name: "incident"}},
		{name: "https url", token: "https://example.com/t/incident.tmpl", expected: services.TemplateSource{Kind: services.SourceRemoteURL, URL: "https://example.com/t/incident.tmpl"}},
		{name: "http url", token: "http://example.com/incident", expected: services.TemplateSource{Kind: services.SourceRemoteURL, URL: "http://example.com/incident"}},
		{name: "relative file", token: "./templates/incident.tmpl", expected: services.TemplateSource{Kind: services.SourceLocalFile, Path: "./templates/incident.tmpl"}},
		{name: "file that looks like a name", token: "incident.tmpl", expected: services.TemplateSource{Kind: services.SourceLocalFile, Path: "incident.tmpl"}},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			source, err := services.ResolveTemplateSource(testCase.token, templatesURL)
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, source)
		})
	}
}

func TestResolveTemplateSource_Unsupported(t *testing.T) {
	t.Parallel()

	for _, token := range []string{"foo.txt", "Incident", "", "ftp://example.com/x.tmpl.bak", "notes.jsonnet"} {
		_, err := services.ResolveTemplateSource(token, templatesURL)
		require.ErrorIs(t, err, services.ErrUnsupportedTemplateFormat, token)
	}
}

func TestTemplateSource_Insecure(t *testing.T) {
	t.Parallel()

	assert.True(t, services.TemplateSource{Kind: services.SourceRemoteURL, URL: "http://x/t.tmpl"}.Insecure())
	assert.False(t, services.TemplateSource{Kind: services.SourceRemoteURL, URL: "https://x/t.tmpl"}.Insecure())
	assert.False(t, services.TemplateSource{Kind: services.SourceLocalFile, Path: "http.tmpl"}.Insecure())
}

func TestLoader_UnsupportedFormatMakesNoCalls(t *testing.T) {
	t.Parallel()

	client := mocks.NewMockAPI(true)
	loader := services.NewLoader(client, testLogger()).WithReadFile(noReadFile(t))

	_, err := loader.LoadReference(context.Background(), "foo.txt")
	require.ErrorIs(t, err, services.ErrUnsupportedTemplateFormat)

	client.AssertExpectations(t)
	client.AssertNotCalled(t, "TemplateByName", mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "FetchTemplateURL", mock.Anything, mock.Anything)
}

func TestLoader_NameWinsOverLocalFile(t *testing.T) {
	t.Parallel()

	client := mocks.NewMockAPI(true)
	client.On("TemplateByName", mock.Anything, "incident").
		Return(&models.Template{Name: "incident", Body: `{"title": "uploaded"}`}, nil).Once()

	loader := services.NewLoader(client, testLogger()).WithReadFile(noReadFile(t))

	loaded, err := loader.LoadReference(context.Background(), "incident")
	require.NoError(t, err)
	assert.Equal(t, `{"title": "uploaded"}`, loaded.Body)
	assert.Equal(t, services.SourceUploaded, loaded.Source.Kind)
	require.NotNil(t, loaded.Template)

	client.AssertExpectations(t)
}

func TestLoader_UploadedNotFound(t *testing.T) {
	t.Parallel()

	client := mocks.NewMockAPI(true)
	client.On("TemplateByName", mock.Anything, "incident").
		Return(nil, &api.NetworkError{Method: "GET", Status: 404, Err: api.ErrTemplateNotFound}).Once()

	loader := services.NewLoader(client, testLogger()).WithReadFile(noReadFile(t))

	_, err := loader.LoadReference(context.Background(), "incident")
	require.ErrorIs(t, err, api.ErrTemplateNotFound)
}

func TestLoader_RemoteURL(t *testing.T) {
	t.Parallel()

	client := mocks.NewMockAPI(false)
	client.On("FetchTemplateURL", mock.Anything, "http://example.com/incident.tmpl").
		Return(`{"title": "remote"}`, nil).Once()

	loader := services.NewLoader(client, testLogger()).WithReadFile(noReadFile(t))

	loaded, err := loader.LoadReference(context.Background(), "http://example.com/incident.tmpl")
	require.NoError(t, err)
	assert.Equal(t, `{"title": "remote"}`, loaded.Body)
	assert.True(t, loaded.Source.Insecure())

	client.AssertExpectations(t)
}

func TestLoader_LocalFile(t *testing.T) {
	t.Parallel()

	client := mocks.NewMockAPI(false)

	reads := 0
	loader := services.NewLoader(client, testLogger()).WithReadFile(func(name string) ([]byte, error) {
		reads++

		assert.Equal(t, "incident.tmpl", name)

		return []byte(`{"title": "local"}`), nil
	})

	loaded, err := loader.LoadReference(context.Background(), "incident.tmpl")
	require.NoError(t, err)
	assert.Equal(t, `{"title": "local"}`, loaded.Body)
	assert.Equal(t, 1, reads)

	failing := loader.WithReadFile(func(string) ([]byte, error) { return nil, fs.ErrNotExist })

	_, err = failing.LoadReference(context.Background(), "missing.tmpl")
	require.True(t, errors.Is(err, fs.ErrNotExist))
}
