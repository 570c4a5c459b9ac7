package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartPass(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	require.NoError(t, InitWithExporter("oomadj", "0.0.1", exporter))

	_, span := StartPass(context.Background(), true, "pass-1", 7, "bindService")
	span.WithInt("changed", 2)
	EndSpan(span, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "oomadj.fullUpdate", spans[0].Name)
	attrs := map[attribute.Key]string{}
	for _, kv := range spans[0].Attributes {
		attrs[kv.Key] = kv.Value.Emit()
	}
	assert.Equal(t, "pass-1", attrs["pass.id"])
	assert.Equal(t, "7", attrs["seq"])
	assert.Equal(t, "bindService", attrs["reason"])
	assert.Equal(t, "2", attrs["changed"])

	var nilSpan *Span
	EndSpan(nilSpan, nil)
}
