package telemetry

import (
	"context"
	"testing"

	"github.com/jingkaihe/skillet/pkg/diagnostics"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = provider.Shutdown(context.Background())
	})
	return recorder
}

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestGetSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), getSampler(Config{}).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), getSampler(Config{SamplerType: "never"}).Description())
	assert.Contains(t, getSampler(Config{SamplerType: "ratio", SamplerRatio: 0.5}).Description(), "0.5")
	assert.Contains(t, getSampler(Config{SamplerType: "ratio", SamplerRatio: 7}).Description(), "root:AlwaysOnSampler")
}

func TestWithSpan(t *testing.T) {
	recorder := withRecorder(t)

	err := WithSpan(context.Background(), "skills.validate", func(ctx context.Context) error {
		RecordDiagnostics(ctx, []diagnostics.Diagnostic{
			diagnostics.Error(diagnostics.CodeNameEmpty, "name", "empty"),
			diagnostics.Error(diagnostics.CodeNameEmpty, "name", "empty"),
			diagnostics.Info(diagnostics.CodeSymlink, "", "link"),
		})
		return nil
	}, attribute.String("skillet.dir", "my-skill"))
	require.NoError(t, err)

	failed := WithSpan(context.Background(), "skills.fix", func(context.Context) error {
		return errors.New("boom")
	})
	require.Error(t, failed)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	ok := spans[0]
	assert.Equal(t, "skills.validate", ok.Name())
	assert.Equal(t, codes.Ok, ok.Status().Code)
	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range ok.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "my-skill", attrs["skillet.dir"].AsString())
	assert.Equal(t, int64(2), attrs["skillet.diagnostics.errors"].AsInt64())
	assert.Equal(t, int64(1), attrs["skillet.diagnostics.infos"].AsInt64())
	assert.Equal(t, []string{"NAM001", "STR006"}, attrs["skillet.diagnostics.codes"].AsStringSlice())

	bad := spans[1]
	assert.Equal(t, codes.Error, bad.Status().Code)
	assert.Equal(t, "boom", bad.Status().Description)
}
