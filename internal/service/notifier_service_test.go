package service

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kpi-engine-api/internal/observability"
)

func TestSubscribeCountsStreamClientOnce(t *testing.T) {
	notifier := NewNotifierService(nil, nil, "", nil, zerolog.Nop())

	gauge := observability.SSEClientsActive()
	before := testutil.ToFloat64(gauge)

	stream, cleanup := notifier.Subscribe(42)
	require.NotNil(t, stream)
	require.Equal(t, before+1, testutil.ToFloat64(gauge))

	cleanup()
	require.Equal(t, before, testutil.ToFloat64(gauge))
}
