package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/gksapp/gks/internal/adapter"
	"github.com/gksapp/gks/internal/catalog"
	"github.com/gksapp/gks/internal/domain"
	"github.com/gksapp/gks/internal/remote"
	"github.com/gksapp/gks/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *adapter.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	logCloser  io.Closer
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*adapter.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := adapter.LoadConfig(path)
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// log returns the file logger, falling back to a null logger when the
// log file cannot be opened
func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = adapter.NullLogger()
			return
		}
		logger, closer, err := adapter.SetupLogger(&cfg.Logging)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warn: file logging disabled: %v\n", err)
			c.logger = adapter.NullLogger()
			return
		}
		c.logger = logger
		c.logCloser = closer
		slog.SetDefault(logger)
	})
	return c.logger
}

func (c *commandContext) close() {
	if c.logCloser != nil {
		c.logCloser.Close()
	}
}

// openCollections returns the document backend for the configured mode.
// The caller must invoke the returned close function.
func (c *commandContext) openCollections() (domain.Collections, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	switch cfg.Remote.Mode {
	case adapter.RemoteModeRemote:
		client, err := remote.NewClient(cfg.Remote.URL, c.log())
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	default:
		st, err := c.openStore()
		if err != nil {
			return nil, nil, err
		}
		return st, func() { st.Close() }, nil
	}
}

// openStore opens the local document store. Remote mode has none.
func (c *commandContext) openStore() (*store.DocumentStore, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Remote.Mode != adapter.RemoteModeLocal {
		return nil, errors.New("this command needs remote.mode=local")
	}
	st, err := store.Open(cfg.Store.Path, c.log())
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Store.Path, err)
	}
	return st, nil
}

func (c *commandContext) catalogService() (*catalog.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	var source catalog.Source
	if dir := strings.TrimSpace(cfg.Catalog.AssetsDir); dir != "" {
		source = catalog.NewFSSource(os.DirFS(dir))
	}
	return catalog.NewService(catalog.NewCache(catalog.WithTTL(cfg.Catalog.TTL)), source, c.log()), nil
}

func (c *commandContext) playerFactory() (*adapter.MPVFactory, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return adapter.NewMPVFactory(cfg.Player.Command, cfg.Player.Args, c.log()), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
