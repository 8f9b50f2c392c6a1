package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dukex/nbctl/pkg/models"
	"github.com/dukex/nbctl/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
)

// CreateTrigger creates a trigger in the client workspace. The response is
// the only place the secret key is ever returned.
func (c *Client) CreateTrigger(ctx context.Context, trigger models.NewTrigger) (*models.TriggerWithSecret, error) {
	var created models.TriggerWithSecret

	err := c.do(ctx, request{
		op:        "CreateTrigger",
		method:    http.MethodPost,
		path:      c.workspacePath("triggers"),
		body:      trigger,
		workspace: true,
	}, &created)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (c *Client) Trigger(ctx context.Context, id string) (*models.Trigger, error) {
	var trigger models.Trigger

	err := c.do(ctx, request{
		op:       "Trigger",
		method:   http.MethodGet,
		path:     "api/triggers/" + url.PathEscape(id),
		notFound: ErrTriggerNotFound,
		attrs:    []attribute.KeyValue{attribute.String(otelhelper.TriggerIDKey, id)},
	}, &trigger)
	if err != nil {
		return nil, err
	}

	return &trigger, nil
}

func (c *Client) ListTriggers(ctx context.Context) ([]models.Trigger, error) {
	triggers := []models.Trigger{}

	err := c.do(ctx, request{
		op:        "ListTriggers",
		method:    http.MethodGet,
		path:      c.workspacePath("triggers"),
		workspace: true,
	}, &triggers)
	if err != nil {
		return nil, err
	}

	return triggers, nil
}

func (c *Client) DeleteTrigger(ctx context.Context, id string) error {
	return c.do(ctx, request{
		op:       "DeleteTrigger",
		method:   http.MethodDelete,
		path:     "api/triggers/" + url.PathEscape(id),
		notFound: ErrTriggerNotFound,
		attrs:    []attribute.KeyValue{attribute.String(otelhelper.TriggerIDKey, id)},
	}, nil)
}

// InvokeTrigger posts args to the trigger webhook without credentials. An
// empty secret targets the public webhook endpoint.
func (c *Client) InvokeTrigger(ctx context.Context, id, secret string, args map[string]any) (*models.TriggerInvokeResponse, error) {
	if secret == "" {
		secret = webhookEndpoint
	}

	if args == nil {
		args = map[string]any{}
	}

	var resp models.TriggerInvokeResponse

	err := c.do(ctx, request{
		op:        "InvokeTrigger",
		method:    http.MethodPost,
		url:       c.TriggerSecretURL(id, secret),
		body:      args,
		anonymous: true,
		notFound:  ErrTriggerNotFound,
		attrs:     []attribute.KeyValue{attribute.String(otelhelper.TriggerIDKey, id)},
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}
