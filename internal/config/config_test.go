package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSetDefaults(t *testing.T) {
	cfg := (&Config{App: App{Name: "bbb-frame-monitor"}}).GetDefaults()

	assert.Equal(t, 60.0, cfg.Monitor.RefreshRate)
	assert.Equal(t, 0.5, cfg.Monitor.Tolerance)
	assert.Equal(t, 2*time.Second, cfg.Monitor.PersistTimeout)
	assert.Equal(t, "ticker", cfg.Feed.Adapter)
	assert.Equal(t, "file", cfg.Store.Adapter)
	assert.Equal(t, "to-bbb-frame-monitor", cfg.PubSub.Channels.Subscribe)
	assert.Equal(t, "from-bbb-frame-monitor", cfg.PubSub.Channels.Publish)

	rf, ok := cfg.Feed.Adapters["redis"].(*RedisFeed)
	require.True(t, ok)
	assert.Equal(t, "frames-bbb-frame-monitor", rf.Channel)
	assert.Equal(t, ":6379", rf.Address)

	rs, ok := cfg.Store.Adapters["redis"].(*RedisStore)
	require.True(t, ok)
	assert.Equal(t, "frameratemonitor", rs.Prefix)
}

func TestEnvPrefix(t *testing.T) {
	assert.Equal(t, "BBB_FRAME_MONITOR_", EnvPrefix("bbb-frame-monitor"))
	assert.Equal(t, "FRAME_MONITOR_", EnvPrefix("frame monitor"))
}

func TestConfig_YAML(t *testing.T) {
	in := []byte(`
debug: true
monitor:
  refreshRate: 120
  tolerance: 0.25
  persistTimeout: 500ms
log:
  level: trace
`)
	cfg := (&Config{App: App{Name: "test"}}).GetDefaults()
	require.NoError(t, yaml.Unmarshal(in, cfg))

	assert.True(t, cfg.Debug)
	assert.Equal(t, 120.0, cfg.Monitor.RefreshRate)
	assert.Equal(t, 0.25, cfg.Monitor.Tolerance)
	assert.Equal(t, 500*time.Millisecond, cfg.Monitor.PersistTimeout)
	assert.Equal(t, "trace", cfg.Log.Level)
	assert.Equal(t, "ticker", cfg.Feed.Adapter)
}
