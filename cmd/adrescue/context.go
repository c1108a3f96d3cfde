package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"adrescue/internal/catalog"
	"adrescue/internal/channel"
	"adrescue/internal/config"
	"adrescue/internal/notifications"
	"adrescue/internal/queue"
	"adrescue/internal/services/composer"
	"adrescue/internal/services/feed"
	"adrescue/internal/services/uploader"
	"adrescue/internal/workflow"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) withStore(fn func(cfg *config.Config, store *queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue store: %w", err)
	}
	defer store.Close()
	return fn(cfg, store)
}

// buildOrchestrator wires the full recovery pipeline from configuration.
func buildOrchestrator(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*workflow.Orchestrator, error) {
	router, err := channel.NewRouter(cfg.Channels)
	if err != nil {
		return nil, err
	}
	provider, err := catalog.NewDirectoryProvider(cfg.Paths.CatalogRoot, cfg.Catalog.Folders)
	if err != nil {
		return nil, err
	}
	comp, err := composer.New(cfg)
	if err != nil {
		return nil, err
	}
	up, err := uploader.New(cfg)
	if err != nil {
		return nil, err
	}
	source := feed.NewCSVSource(cfg, logger)
	notifier := notifications.NewService(cfg)
	return workflow.New(cfg, store, source, provider, comp, up, router, notifier, logger), nil
}
