package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	t.Cleanup(SetLogger(zap.New(core)))
	return logs
}

func TestFromContext_CarriesRequestID(t *testing.T) {
	logs := observe(t)

	ctx := NewContext(context.Background(), RequestIDKey, "req-1")
	ctx = NewContext(ctx, "component", "scorer")
	FromContext(ctx).Infow("batch done", "batch", 2)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields[RequestIDKey])
	assert.Equal(t, "scorer", fields["component"])
	assert.Equal(t, int64(2), fields["batch"])
}

func TestFromContext_FallsBackToGlobal(t *testing.T) {
	logs := observe(t)

	FromContext(context.Background()).Info("plain")
	With("component", "indexer").Warnw("soft failure")

	require.Equal(t, 2, logs.Len())
	assert.Empty(t, logs.All()[0].ContextMap())
	assert.Equal(t, "indexer", logs.All()[1].ContextMap()["component"])
}

func TestBuild_UnknownLevelDefaultsToInfo(t *testing.T) {
	l, err := build("verbose", "json", "")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
}
