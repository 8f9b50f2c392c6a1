package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dukex/nbctl/pkg/api"
	"github.com/dukex/nbctl/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	notebookID = "AAAAAAAAAAAAAAAAAAAAAA"
	triggerID  = "BBBBBBBBBBBBBBBBBBBBBB"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...api.Option) *api.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := api.New(server.URL, append([]api.Option{api.WithWorkspace("ws1")}, opts...)...)
	require.NoError(t, err)

	return client
}

func TestNew_InvalidBaseURL(t *testing.T) {
	t.Parallel()

	_, err := api.New("ftp://example.com")
	require.Error(t, err)

	_, err = api.New("://bad")
	require.Error(t, err)
}

func TestClient_URLs(t *testing.T) {
	t.Parallel()

	client, err := api.New("https://notebooks.example.com///", api.WithWorkspace("ws1"))
	require.NoError(t, err)

	assert.Equal(t, "https://notebooks.example.com/", client.BaseURL())
	assert.Equal(t, "https://notebooks.example.com/notebook/"+notebookID, client.NotebookURL(notebookID))
	assert.Equal(t, "https://notebooks.example.com/api/workspaces/ws1/templates/", client.TemplatesURL())
	assert.Equal(t, "https://notebooks.example.com/api/triggers/"+triggerID+"/webhook", client.TriggerWebhookURL(triggerID))
	assert.Equal(t, "https://notebooks.example.com/api/triggers/"+triggerID+"/s3cr3t", client.TriggerSecretURL(triggerID, "s3cr3t"))
	assert.False(t, client.Authenticated())
}

func TestClient_Notebook(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/notebooks/"+notebookID, r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"`+notebookID+`","title":"Outage","cells":[{"id":"c1","type":"text","content":"hi","custom":1}],"labels":[]}`)
	}, api.WithToken("tok"))

	nb, err := client.Notebook(context.Background(), notebookID)
	require.NoError(t, err)
	assert.Equal(t, "Outage", nb.Title)
	require.Len(t, nb.Cells, 1)
	assert.Equal(t, map[string]any{"custom": float64(1)}, nb.Cells[0].Extra)
}

func TestClient_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		call     func(*api.Client) error
		expected error
	}{
		{
			name:     "notebook not found",
			status:   http.StatusNotFound,
			call:     func(c *api.Client) error { _, err := c.Notebook(context.Background(), notebookID); return err },
			expected: api.ErrNotebookNotFound,
		},
		{
			name:     "template not found",
			status:   http.StatusNotFound,
			call:     func(c *api.Client) error { _, err := c.TemplateByName(context.Background(), "missing"); return err },
			expected: api.ErrTemplateNotFound,
		},
		{
			name:     "trigger not found",
			status:   http.StatusNotFound,
			call:     func(c *api.Client) error { return c.DeleteTrigger(context.Background(), triggerID) },
			expected: api.ErrTriggerNotFound,
		},
		{
			name:     "unauthorized",
			status:   http.StatusUnauthorized,
			call:     func(c *api.Client) error { _, err := c.ListTriggers(context.Background()); return err },
			expected: api.ErrAuthenticationRequired,
		},
		{
			name:     "forbidden",
			status:   http.StatusForbidden,
			call:     func(c *api.Client) error { _, err := c.ListTemplates(context.Background()); return err },
			expected: api.ErrAuthenticationRequired,
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			call:     func(c *api.Client) error { _, err := c.ProxyDataSources(context.Background()); return err },
			expected: api.ErrNetwork,
		},
		{
			name:   "not found without resource kind",
			status: http.StatusNotFound,
			call: func(c *api.Client) error {
				_, err := c.CreateNotebook(context.Background(), models.NewNotebook{Title: "x"})
				return err
			},
			expected: api.ErrNetwork,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/problem+json")
				w.WriteHeader(testCase.status)
				_, _ = io.WriteString(w, `{"type":"about:blank","title":"failure","status":0,"detail":"details here"}`)
			})

			err := testCase.call(client)
			require.ErrorIs(t, err, testCase.expected)

			var netErr *api.NetworkError
			require.ErrorAs(t, err, &netErr)
			assert.Equal(t, testCase.status, netErr.Status)
			require.NotNil(t, netErr.Problem)
			assert.Equal(t, "details here", netErr.Problem.Detail)
			assert.Contains(t, err.Error(), "details here")
		})
	}
}

func TestClient_TransportFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client, err := api.New(server.URL, api.WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = client.Notebook(context.Background(), notebookID)
	require.ErrorIs(t, err, api.ErrNetwork)
	assert.False(t, api.IsNotFound(err))
}

func TestClient_WorkspaceRequired(t *testing.T) {
	t.Parallel()

	called := false
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	t.Cleanup(server.Close)

	client, err := api.New(server.URL)
	require.NoError(t, err)

	_, err = client.ListTemplates(context.Background())
	require.ErrorIs(t, err, api.ErrWorkspaceRequired)
	assert.False(t, called)
}

func TestClient_CreateTrigger(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/workspaces/ws1/triggers", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"title": "Alerts", "template_name": "incident"}, body)

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"`+triggerID+`","title":"Alerts","template_name":"incident","secret_key":"s3cr3t"}`)
	}, api.WithToken("tok"))

	created, err := client.CreateTrigger(context.Background(), models.NewTrigger{Title: "Alerts", TemplateName: "incident"})
	require.NoError(t, err)

	secret, err := models.SecretKey(created)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", secret)
	assert.Equal(t, triggerID, created.Base().ID)
}

func TestClient_InvokeTrigger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		secret string
		path   string
	}{
		{name: "webhook", path: "/api/triggers/" + triggerID + "/webhook"},
		{name: "secret", secret: "s3cr3t", path: "/api/triggers/" + triggerID + "/s3cr3t"},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, testCase.path, r.URL.Path)
				assert.Empty(t, r.Header.Get("Authorization"))

				var body map[string]any
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, map[string]any{"service": "db"}, body)

				_, _ = io.WriteString(w, `{"notebook_id":"`+notebookID+`","notebook_title":"t","notebook_url":"http://x/notebook/`+notebookID+`"}`)
			}, api.WithToken("tok"))

			resp, err := client.InvokeTrigger(context.Background(), triggerID, testCase.secret, map[string]any{"service": "db"})
			require.NoError(t, err)
			assert.Equal(t, notebookID, resp.NotebookID)
		})
	}
}

func TestClient_TemplateCalls(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		seen []string
	)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.Path)
		mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			if r.URL.Path == "/api/workspaces/ws1/templates" {
				_, _ = io.WriteString(w, `[{"name":"incident","description":"d"}]`)

				return
			}

			_, _ = io.WriteString(w, `{"name":"incident","body":"{}"}`)
		case http.MethodPost:
			_, _ = io.WriteString(w, `{"name":"incident","body":"{}"}`)
		case http.MethodPatch:
			var update map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&update))
			assert.Equal(t, map[string]any{"description": "new"}, update)
			_, _ = io.WriteString(w, `{"name":"incident","description":"new","body":"{}"}`)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	}, api.WithToken("tok"))

	ctx := context.Background()

	list, err := client.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	tmpl, err := client.TemplateByName(ctx, "incident")
	require.NoError(t, err)
	assert.Equal(t, "{}", tmpl.Body)

	_, err = client.CreateTemplate(ctx, models.NewTemplate{Name: "incident", Body: "{}"})
	require.NoError(t, err)

	description := "new"
	updated, err := client.UpdateTemplate(ctx, "incident", models.UpdateTemplate{Description: &description})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Description)

	require.NoError(t, client.DeleteTemplate(ctx, "incident"))

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, []string{
		"GET /api/workspaces/ws1/templates",
		"GET /api/workspaces/ws1/templates/incident",
		"POST /api/workspaces/ws1/templates",
		"PATCH /api/workspaces/ws1/templates/incident",
		"DELETE /api/workspaces/ws1/templates/incident",
	}, seen)
}

func TestClient_FetchTemplateURL(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))

		if r.URL.Path == "/missing.tmpl" {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		_, _ = io.WriteString(w, `{"title": {{ arg "title" | toJSON }}}`)
	}, api.WithToken("tok"))

	body, err := client.FetchTemplateURL(context.Background(), client.BaseURL()+"incident.tmpl")
	require.NoError(t, err)
	assert.Equal(t, `{"title": {{ arg "title" | toJSON }}}`, body)

	_, err = client.FetchTemplateURL(context.Background(), client.BaseURL()+"missing.tmpl")
	require.ErrorIs(t, err, api.ErrTemplateNotFound)
}
