// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/mardi4nfdi/importer/pkg/types"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), types.TelemetryConfig{}, "test", nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_EnabledExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()
	shutdown, err := Init(ctx, types.TelemetryConfig{Enabled: true, ServiceName: "importer-test"}, "v0.0.0", &buf)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = Init(context.Background(), types.TelemetryConfig{}, "", nil)
	})

	_, span := otel.Tracer("telemetry-test").Start(ctx, "unit-span")
	span.End()

	require.NoError(t, shutdown(ctx))
	assert.Contains(t, buf.String(), "unit-span")
	assert.Contains(t, buf.String(), "importer-test")
}
