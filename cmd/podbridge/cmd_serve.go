package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/d2verb/podbridge/internal/bridge"
	"github.com/d2verb/podbridge/internal/config"
	"github.com/d2verb/podbridge/internal/library"
	"github.com/d2verb/podbridge/internal/logging"
	"github.com/d2verb/podbridge/internal/player"
	"github.com/d2verb/podbridge/internal/search"
	"github.com/d2verb/podbridge/internal/statusfeed"
	"github.com/d2verb/podbridge/internal/ui"
)

const shutdownTimeout = 5 * time.Second

type ServeCmd struct {
	Config        string `name:"config" type:"path" help:"Config file (default ~/.podbridge/config.yaml)"`
	Socket        string `name:"socket" help:"Override the configured socket name"`
	PrintKey      bool   `name:"print-key" default:"true" negatable:"" help:"Print the session key for provisioning the agent"`
	ForegroundLog bool   `name:"foreground-log" help:"Also write the log to stderr"`

	APIKey    string `name:"api-key" env:"PODCASTINDEX_API_KEY" help:"PodcastIndex API key"`
	APISecret string `name:"api-secret" env:"PODCASTINDEX_API_SECRET" help:"PodcastIndex API secret"`
}

func (c *ServeCmd) Run() error {
	paths, err := getPaths()
	if err != nil {
		return err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	cfg, err := c.loadConfig(paths)
	if err != nil {
		return err
	}

	var tee io.Writer
	if c.ForegroundLog {
		tee = os.Stderr
	}
	logger, logCloser := logging.Open(cfg.LogConfig(paths.BridgeLog), tee)
	defer logCloser.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dbPath := cfg.Database
	if dbPath == "" {
		dbPath = paths.Database
	}
	store, err := library.Open(ctx, dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	mpdPlayer := player.New(player.Config{
		Network:  cfg.MPD.Network,
		Address:  cfg.MPD.Address,
		Password: cfg.MPD.Password,
	}, store)

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = -1
	}
	dispatcher := bridge.NewDispatcher(bridge.Deps{
		Player:         mpdPlayer,
		Library:        store,
		Searcher:       search.New(cfg.PodcastIndex.BaseURL, cfg.PodcastIndex.APIKey, cfg.PodcastIndex.APISecret),
		Logger:         logger,
		RequestTimeout: timeout,
	})

	server, err := bridge.NewServer(bridge.ServerConfig{
		SocketName:  cfg.SocketName,
		MaxRequests: cfg.RateLimit.MaxRequests,
		Window:      cfg.RateLimit.Window,
		Logger:      logger,
	}, dispatcher)
	if err != nil {
		return err
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	var feed *statusfeed.Feed
	if cfg.StatusFeed.Address != "" {
		feed = statusfeed.New(mpdPlayer, cfg.StatusFeed.Interval, logger)
		if err := feed.Start(ctx, cfg.StatusFeed.Address); err != nil {
			server.Stop()
			return err
		}
	}

	if c.PrintKey {
		fmt.Fprintf(ui.Output, "PODBRIDGE_SESSION_KEY=%s\n", server.SessionKey())
	}
	ui.PrintSuccess(fmt.Sprintf("Bridge listening on %s", server.Addr()))
	ui.PrintInfo(fmt.Sprintf("Logs: %s", paths.BridgeLog))

	<-ctx.Done()
	logger.Info("shutting down")

	if feed != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()
		if err := feed.Stop(stopCtx); err != nil {
			logger.Warn("stop status feed", "error", err)
		}
	}
	if err := server.Stop(); err != nil {
		return fmt.Errorf("stop server: %w", err)
	}
	return nil
}

// loadConfig reads the config file and applies command-line overrides.
func (c *ServeCmd) loadConfig(paths *config.Paths) (*config.Config, error) {
	path := c.Config
	if path == "" {
		path = paths.Config
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if c.Socket != "" {
		cfg.SocketName = c.Socket
	}
	if c.APIKey != "" {
		cfg.PodcastIndex.APIKey = c.APIKey
	}
	if c.APISecret != "" {
		cfg.PodcastIndex.APISecret = c.APISecret
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getPaths() (*config.Paths, error) {
	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("get paths: %w", err)
	}
	return paths, nil
}
