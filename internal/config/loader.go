package config

import (
	"fmt"
	"path"
	"strings"

	"github.com/crazy-max/gonfig"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func (cfg *Config) Load(app, configFile string) {
	// .env values become regular environment variables for the env loader
	if err := godotenv.Load(); err == nil {
		log.Debug("environment loaded from .env")
	}

	// Load from file(s)
	if configFile == "" {
		configFile = app + ".yml"
	} else {
		configFile = path.Clean(configFile)
	}
	fileLoader := gonfig.NewFileLoader(gonfig.FileLoaderConfig{
		Filename: configFile,
		Finder: gonfig.Finder{
			BasePaths: []string{
				fmt.Sprintf("/etc/%s/%s", app, app),
				fmt.Sprintf("$HOME/.config/%s", app),
				fmt.Sprintf("./%s", app),
			},
			Extensions: []string{"yaml", "yml"},
		},
	})
	if found, err := fileLoader.Load(cfg); err != nil {
		log.Fatal(errors.Wrap(err, fmt.Sprintf("failed to decode configuration from file: %s", fileLoader.GetFilename())))
	} else if !found {
		log.Debugf("no configuration file found: %s", fileLoader.GetFilename())
	} else {
		log.Printf("configuration loaded from file: %s", fileLoader.GetFilename())
	}

	// Load from environment variables
	envPrefix := EnvPrefix(app)
	envLoader := gonfig.NewEnvLoader(gonfig.EnvLoaderConfig{
		Prefix: envPrefix,
	})
	if found, err := envLoader.Load(cfg); err != nil {
		log.Fatal(errors.Wrap(err, "Failed to decode configuration from environment variables"))
	} else if !found {
		log.Debugf("No %s* environment variables defined", envPrefix)
	} else {
		log.Printf("Configuration loaded from %d environment variables\n", len(envLoader.GetVars()))
	}
}

// EnvPrefix turns an application name into its environment variable prefix,
// e.g. "bbb-frame-monitor" becomes "BBB_FRAME_MONITOR_".
func EnvPrefix(app string) string {
	envPrefix := strings.ReplaceAll(app, " ", "_")
	return strings.ToUpper(strings.ReplaceAll(envPrefix, "-", "_")) + "_"
}
