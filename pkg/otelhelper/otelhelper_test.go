package otelhelper_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/nbctl/pkg/otelhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpanHelpers(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := otelhelper.StartSpan(
		context.Background(),
		provider.Tracer("test"),
		"api.Notebook",
		attribute.String(otelhelper.NotebookIDKey, "abc"),
	)
	span.SetAttributes(otelhelper.HTTPAttributes("GET", "http://example.com/api/notebooks/abc")...)
	otelhelper.SetStatusCode(span, 404)
	otelhelper.SetError(span, errors.New("boom"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "api.Notebook", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	attrs := make(map[string]string)
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}

	assert.Equal(t, "abc", attrs[otelhelper.NotebookIDKey])
	assert.Equal(t, "GET", attrs["http.request.method"])
	assert.Equal(t, "404", attrs["http.response.status_code"])
}
