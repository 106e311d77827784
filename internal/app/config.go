package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bigbluebutton/bbb-frame-monitor/internal/config"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

func initConfig() *config.Config {
	return (&config.Config{App: app}).GetDefaults()
}

func loadConfig() {
	newCfg := initConfig()
	newCfg.Load(app.Name, flags.config)
	*cfg = *newCfg
}

func dumpConfig() {
	v, err := configValue(cfg, flags.dump)
	if err != nil {
		log.Debug(err)
		os.Exit(1)
	}

	b, err := yaml.Marshal(v)
	if err != nil {
		log.Fatalf("failed to marshal config value: %s", err)
	}
	fmt.Print(string(b))
	os.Exit(0)
}

// configValue resolves a dotted path such as "monitor.tolerance" or
// "store.adapters.file.directory" against the yaml view of c. Numeric
// segments index lists. "all" returns the whole tree.
func configValue(c *config.Config, path string) (interface{}, error) {
	var v interface{}
	y, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := yaml.Unmarshal(y, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if path == "all" {
		return v, nil
	}

	for _, key := range strings.Split(path, ".") {
		switch node := v.(type) {
		case map[string]interface{}:
			var ok bool
			if v, ok = node[key]; !ok {
				return nil, fmt.Errorf("config value '%s' not found", path)
			}
		case []interface{}:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("config value '%s' not found", path)
			}
			v = node[i]
		default:
			return nil, fmt.Errorf("config value '%s' not found", path)
		}
	}

	if v == nil {
		return nil, fmt.Errorf("config value '%s' is empty", path)
	}
	return v, nil
}
