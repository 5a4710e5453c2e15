package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	"go.opentelemetry.io/otel/trace"
)

func TestNewResource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		opts        Options
		wantName    string
		wantVersion string
	}{
		{
			name:        "configured",
			opts:        Options{ServiceName: "portfolio-test", ServiceVersion: "1.2.3"},
			wantName:    "portfolio-test",
			wantVersion: "1.2.3",
		},
		{
			name:     "empty service name falls back to default",
			opts:     Options{},
			wantName: DefaultServiceName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := newResource(context.Background(), tt.opts)
			require.NoError(t, err)

			name, ok := res.Set().Value(semconv.ServiceNameKey)
			require.True(t, ok)
			assert.Equal(t, tt.wantName, name.AsString())

			version, ok := res.Set().Value(semconv.ServiceVersionKey)
			if tt.wantVersion == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantVersion, version.AsString())
		})
	}
}

func TestNewProvider_Sampling(t *testing.T) {
	t.Parallel()

	res, err := newResource(context.Background(), Options{})
	require.NoError(t, err)
	exporter := tracetest.NewInMemoryExporter()
	tp := newProvider(sdktrace.NewSimpleSpanProcessor(exporter), res)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	tracer := tp.Tracer("test")

	// A root span is sampled.
	_, span := tracer.Start(context.Background(), "root")
	span.End()

	// A remote parent that was not sampled is honoured.
	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1},
		SpanID:  trace.SpanID{1},
		Remote:  true,
	})
	ctx := trace.ContextWithRemoteSpanContext(context.Background(), parent)
	_, child := tracer.Start(ctx, "unsampled-child")
	child.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "root", spans[0].Name)
}

func TestInitTracer(t *testing.T) {
	_, err := InitTracer(context.Background(), Options{})
	assert.Error(t, err, "an endpoint is required")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tp, err := InitTracer(ctx, Options{ServiceName: "portfolio-test", Endpoint: "localhost:4318"})
	require.NoError(t, err)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	assert.NoError(t, Shutdown(shutdownCtx, tp))
}

func TestShutdownNilProvider(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Shutdown(context.Background(), nil))
}
