package infrastructure_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/preflight/internal/config"
	"github.com/JaimeStill/preflight/internal/infrastructure"
)

func TestNewAndStart(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)

	infra, err := infrastructure.New(cfg)
	require.NoError(t, err)

	assert.NotNil(t, infra.Logger)
	assert.NotNil(t, infra.Storage)
	assert.Equal(t, 30*time.Second, infra.HTTPClient.Timeout)

	require.NoError(t, infra.Start())
	infra.Lifecycle.WaitForStartup()
	assert.True(t, infra.Lifecycle.Ready())

	require.NoError(t, infra.Lifecycle.Shutdown(time.Second))
	assert.False(t, infra.Lifecycle.Ready())
}

func TestNewRejectsUnknownStorage(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Provider = "s3"

	_, err := infrastructure.New(cfg)
	assert.Error(t, err)
}
