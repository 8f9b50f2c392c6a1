package mocks

import (
	"context"

	"github.com/dukex/nbctl/pkg/models"
	"github.com/stretchr/testify/mock"
)

const mockBaseURL = "https://notebooks.test/"

// MockAPI is a mock implementation of the notebook service client.
type MockAPI struct {
	mock.Mock

	Base         string
	Workspace    string
	Authenticate bool
}

// NewMockAPI returns a mock with a base URL and workspace set.
func NewMockAPI(authenticated bool) *MockAPI {
	return &MockAPI{Base: mockBaseURL, Workspace: "ws1", Authenticate: authenticated}
}

func (m *MockAPI) BaseURL() string {
	return m.Base
}

func (m *MockAPI) Authenticated() bool {
	return m.Authenticate
}

func (m *MockAPI) NotebookURL(id string) string {
	return m.Base + "notebook/" + id
}

func (m *MockAPI) TemplatesURL() string {
	return m.Base + "api/workspaces/" + m.Workspace + "/templates/"
}

func (m *MockAPI) TriggerWebhookURL(id string) string {
	return m.TriggerSecretURL(id, "webhook")
}

func (m *MockAPI) TriggerSecretURL(id, secret string) string {
	return m.Base + "api/triggers/" + id + "/" + secret
}

func (m *MockAPI) Notebook(ctx context.Context, id string) (*models.Notebook, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Notebook), args.Error(1)
}

func (m *MockAPI) CreateNotebook(ctx context.Context, nb models.NewNotebook) (*models.Notebook, error) {
	args := m.Called(ctx, nb)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Notebook), args.Error(1)
}

func (m *MockAPI) ProxyDataSources(ctx context.Context) ([]models.ProxyDataSource, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.ProxyDataSource), args.Error(1)
}

func (m *MockAPI) TemplateByName(ctx context.Context, name string) (*models.Template, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Template), args.Error(1)
}

func (m *MockAPI) FetchTemplateURL(ctx context.Context, templateURL string) (string, error) {
	args := m.Called(ctx, templateURL)

	return args.String(0), args.Error(1)
}

func (m *MockAPI) ListTemplates(ctx context.Context) ([]models.TemplateSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.TemplateSummary), args.Error(1)
}

func (m *MockAPI) CreateTemplate(ctx context.Context, tmpl models.NewTemplate) (*models.Template, error) {
	args := m.Called(ctx, tmpl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Template), args.Error(1)
}

func (m *MockAPI) UpdateTemplate(ctx context.Context, name string, update models.UpdateTemplate) (*models.Template, error) {
	args := m.Called(ctx, name, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Template), args.Error(1)
}

func (m *MockAPI) DeleteTemplate(ctx context.Context, name string) error {
	args := m.Called(ctx, name)

	return args.Error(0)
}

func (m *MockAPI) CreateTrigger(ctx context.Context, trigger models.NewTrigger) (*models.TriggerWithSecret, error) {
	args := m.Called(ctx, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.TriggerWithSecret), args.Error(1)
}

func (m *MockAPI) Trigger(ctx context.Context, id string) (*models.Trigger, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Trigger), args.Error(1)
}

func (m *MockAPI) ListTriggers(ctx context.Context) ([]models.Trigger, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.Trigger), args.Error(1)
}

func (m *MockAPI) DeleteTrigger(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockAPI) InvokeTrigger(ctx context.Context, id, secret string, payload map[string]any) (*models.TriggerInvokeResponse, error) {
	args := m.Called(ctx, id, secret, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.TriggerInvokeResponse), args.Error(1)
}
