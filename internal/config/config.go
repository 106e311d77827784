package config

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

type App struct {
	Name       string
	Version    string
	GitHash    string
	LongName   string
	InstanceId string
}

type Config struct {
	App        App        `yaml:"-"`
	Debug      bool       `yaml:"debug,omitempty"`
	Monitor    Monitor    `yaml:"monitor,omitempty"`
	Feed       Feed       `yaml:"feed,omitempty"`
	Store      Store      `yaml:"store,omitempty"`
	PubSub     PubSub     `yaml:"pubsub,omitempty"`
	HTTP       HTTP       `yaml:"http,omitempty"`
	Prometheus Prometheus `yaml:"prometheus,omitempty"`
	Log        LogConfig  `yaml:"log"`
}

func (cfg *Config) GetDefaults() *Config {
	cfg.SetDefaults()
	return cfg
}

// SetDefaults sets the default values
func (cfg *Config) SetDefaults() {
	if cfg.App.Name == "" {
		var err error
		if cfg.App.Name, err = os.Executable(); err != nil {
			log.Error(err)
			cfg.App.Name = "unknown"
		}
	}

	cfg.Monitor = Monitor{
		RefreshRate:    60,
		Tolerance:      0.5,
		PersistTimeout: 2 * time.Second,
		StartOnBoot:    false,
		TrackStats:     true,
	}
	cfg.Feed.Adapter = "ticker"
	cfg.Feed.Adapters = make(map[string]interface{})
	cfg.Feed.Adapters["ticker"] = &Ticker{}
	cfg.Feed.Adapters["redis"] = &RedisFeed{
		Redis: Redis{
			Address: ":6379",
			Network: "tcp",
		},
		Channel: "frames-" + cfg.App.Name,
	}
	cfg.Store.Adapter = "file"
	cfg.Store.Adapters = make(map[string]interface{})
	cfg.Store.Adapters["file"] = &FileStore{
		Directory: "/var/lib/" + cfg.App.Name,
		FileMode:  "0600",
	}
	cfg.Store.Adapters["redis"] = &RedisStore{
		Redis: Redis{
			Address: ":6379",
			Network: "tcp",
		},
		Prefix: "frameratemonitor",
	}
	cfg.Store.Adapters["sqlite"] = &SQLiteStore{
		Path:  "/var/lib/" + cfg.App.Name + "/frameratemonitor.db",
		Table: "frameratemonitor",
	}
	cfg.PubSub.Channels = Channels{
		Subscribe: "to-" + cfg.App.Name,
		Publish:   "from-" + cfg.App.Name,
	}
	cfg.PubSub.Adapter = "redis"
	cfg.PubSub.Adapters = make(map[string]interface{})
	cfg.PubSub.Adapters["redis"] = &Redis{
		Address:  ":6379",
		Network:  "tcp",
		Password: "",
	}
	cfg.HTTP = HTTP{
		Enable: false,
		Port:   8080,
	}
	cfg.Prometheus = Prometheus{
		Enable:        false,
		ListenAddress: "127.0.0.1:3201",
	}
}

type Monitor struct {
	RefreshRate    float64       `yaml:"refreshRate,omitempty"`
	Tolerance      float64       `yaml:"tolerance,omitempty"`
	PersistTimeout time.Duration `yaml:"persistTimeout,omitempty"`
	StartOnBoot    bool          `yaml:"startOnBoot,omitempty"`
	TrackStats     bool          `yaml:"trackStats,omitempty"`
}

type Redis struct {
	Address  string `yaml:"address,omitempty"`
	Network  string `yaml:"network,omitempty"`
	Password string `yaml:"password,omitempty"`
}

type Feed struct {
	Adapter  string `yaml:"adapter,omitempty"`
	Adapters map[string]interface{}
}

// Ticker drives the feed from a local clock at Monitor.RefreshRate.
type Ticker struct {
	RefreshRate float64 `yaml:"refreshRate,omitempty" mapstructure:"refreshRate"`
}

type RedisFeed struct {
	Redis   `yaml:",inline" mapstructure:",squash"`
	Channel string `yaml:"channel,omitempty" mapstructure:"channel"`
}

type Store struct {
	Adapter  string `yaml:"adapter,omitempty"`
	Adapters map[string]interface{}
}

type FileStore struct {
	Directory string `yaml:"directory,omitempty" mapstructure:"directory"`
	FileMode  string `yaml:"fileMode,omitempty" mapstructure:"fileMode"`
}

type RedisStore struct {
	Redis  `yaml:",inline" mapstructure:",squash"`
	Prefix string `yaml:"prefix,omitempty" mapstructure:"prefix"`
}

type SQLiteStore struct {
	Path  string `yaml:"path,omitempty" mapstructure:"path"`
	Table string `yaml:"table,omitempty" mapstructure:"table"`
}

type PubSub struct {
	Enable   bool     `yaml:"enable,omitempty"`
	Channels Channels `yaml:"channels,omitempty"`
	Adapter  string   `yaml:"adapter,omitempty"`
	Adapters map[string]interface{}
}

type Channels struct {
	Subscribe string `yaml:"subscribe,omitempty"`
	Publish   string `yaml:"publish,omitempty"`
}

type HTTP struct {
	Enable bool `yaml:"enable,omitempty"`
	Port   int  `yaml:"port,omitempty"`
}

type Prometheus struct {
	Enable        bool   `yaml:"enable,omitempty"`
	ListenAddress string `yaml:"listenAddress,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}
