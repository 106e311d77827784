package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bigbluebutton/bbb-frame-monitor/internal"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/appstats"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/config"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/feed"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/lifecycle"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/monitor"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/pubsub"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/server"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/store"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

var (
	app config.App

	flags struct {
		config  string
		dump    string
		debug   bool
		help    bool
		version bool
	}

	cfg  *config.Config
	fd   feed.Feed
	st   store.Store
	mon  *monitor.Controller
	ps   pubsub.PubSub
	sv   *server.Server
	kill *lifecycle.KillListener
)

func Main() {
	app.Name = internal.AppName
	app.Version = internal.AppVersion
	app.LongName = fmt.Sprintf("%s %s", app.Name, app.Version)
	app.InstanceId = uuid.New().String()

	flag.StringVarP(&flags.config, "config", "c", flags.config, "load configuration file")
	flag.StringVar(&flags.dump, "dump", "", "print config value (e.g. 'monitor.refreshRate')")
	flag.BoolVarP(&flags.debug, "debug", "d", flags.debug, "enable debug log")
	flag.BoolVarP(&flags.help, "help", "h", flags.help, "print help")
	flag.BoolVarP(&flags.version, "version", "v", flags.version, "print version")
	flag.Parse()

	if flags.help {
		fmt.Printf("%s\n\n", app.LongName)
		flag.PrintDefaults()
		shutdown(0)
	}

	if flags.version {
		fmt.Println(app.LongName)
		shutdown(0)
	}

	if flags.dump != "" {
		log.SetLevel(log.FatalLevel)
		cfg = initConfig()
		loadConfig()
		dumpConfig()
	}

	Init()
	Run()
}

func Init() {
	cfg = initConfig()
	log.Infof("Starting %s PID: %d", app.Name, os.Getpid())
	loadConfig()
	configureLog()
	kill = lifecycle.NewKillListener()
	kill.Listen(func() { shutdown(0) })
	sighupHandler()
}

func Run() {
	var err error

	appstats.Init()
	appstats.ServePromMetrics(cfg.Prometheus)

	if fd, err = feed.NewFeed(cfg.Feed, cfg.Monitor.RefreshRate); err != nil {
		log.Fatalf("failed to create frame feed: %v", err)
	}

	if st, err = store.NewStore(cfg.Store); err != nil {
		log.Fatalf("failed to create stats store: %v", err)
	}

	mon = monitor.NewController(fd, st, monitor.OptionsFromConfig(cfg.Monitor))

	if cfg.PubSub.Enable {
		if ps, err = pubsub.NewPubSub(cfg.PubSub); err != nil {
			log.Fatalf("failed to create pubsub: %v", err)
		}
		if err := ps.Check(); err != nil {
			log.Fatalf("failed to connect to pubsub: %v", err)
		}
	}

	sv = server.NewServer(cfg, ps, mon)
	mon.SetStoppedCallback(sv.OnStopped)
	kill.Register(func() { mon.Stop() })

	if cfg.Monitor.StartOnBoot {
		if err := mon.Start(); err != nil {
			log.Errorf("failed to start monitoring on boot: %v", err)
		}
	}

	if cfg.HTTP.Enable {
		hs := server.NewHTTPServer(cfg.HTTP.Port, sv)
		hs.Serve()
	}

	if ps == nil {
		if err := sv.OnStart(); err != nil {
			log.Errorf("failed to announce start: %v", err)
		}
		select {}
	}

	if err := ps.Subscribe(cfg.PubSub.Channels.Subscribe, sv.HandlePubSub, sv.OnStart); err != nil {
		log.Fatalf("failed to subscribe to pubsub %s: %s", cfg.PubSub.Channels.Subscribe, err)
	}
}

func shutdown(code int) {
	if kill != nil {
		kill.Close()
	}

	if mon != nil {
		if err := mon.Close(); err != nil {
			log.Errorf("failed to close monitor: %s", err)
		}
	}

	if st != nil {
		if err := st.Close(); err != nil {
			log.Errorf("failed to close stats store: %s", err)
		}
	}

	if fd != nil {
		if err := fd.Close(); err != nil {
			log.Errorf("failed to close frame feed: %s", err)
		}
	}

	if ps != nil {
		if err := ps.Close(); err != nil {
			log.Errorf("failed to close pubsub: %s", err)
		}
	}

	os.Exit(code)
}

func sighupHandler() {
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for range sighup {
			log.Debug("reloading config...")
			loadConfig()
			configureLog()
		}
	}()
}
