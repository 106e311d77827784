package app

import (
	"testing"

	"github.com/bigbluebutton/bbb-frame-monitor/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigValue(t *testing.T) {
	c := (&config.Config{App: config.App{Name: "test"}}).GetDefaults()

	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: "monitor.refreshRate", want: "60\n"},
		{path: "monitor.tolerance", want: "0.5\n"},
		{path: "http.port", want: "8080\n"},
		{path: "pubsub.channels.subscribe", want: "to-test\n"},
		{path: "store.adapters.file.directory", want: "/var/lib/test\n"},
		{path: "monitor.unknown", wantErr: true},
		{path: "monitor.tolerance.value", wantErr: true},
		{path: "feed.adapters.0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			v, err := configValue(c, tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			b, err := yaml.Marshal(v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(b))
		})
	}
}

func TestConfigValue_All(t *testing.T) {
	c := (&config.Config{App: config.App{Name: "test"}}).GetDefaults()

	v, err := configValue(c, "all")
	require.NoError(t, err)

	tree, ok := v.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, tree, "monitor")
	assert.Contains(t, tree, "store")
	assert.NotContains(t, tree, "app")
}
