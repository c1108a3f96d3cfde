package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateFeed(); err != nil {
		return err
	}
	if err := c.validateChannels(); err != nil {
		return err
	}
	if err := c.validateComposer(); err != nil {
		return err
	}
	if err := c.validateUploader(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Paths.CatalogRoot == "" {
		return errors.New("paths.catalog_root must be set (folder containing per-project source videos)")
	}
	return nil
}

func (c *Config) validateFeed() error {
	if c.Feed.ExportPath == "" {
		return errors.New("feed.export_path must be set (approval-status export file)")
	}
	if c.Feed.DisapprovedValue == "" {
		return errors.New("feed.disapproved_value must be set")
	}
	return nil
}

func (c *Config) validateChannels() error {
	if len(c.Channels) == 0 {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/adrescue/config.toml"
		}
		return fmt.Errorf("at least one [channels] binding is required. Edit %s (create with 'adrescue config init')", defaultPath)
	}
	for tag, handle := range c.Channels {
		if handle == "" {
			return fmt.Errorf("channels.%s has an empty credential handle", tag)
		}
	}
	return nil
}

func (c *Config) validateComposer() error {
	if c.Composer.TimeoutSeconds <= 0 {
		return errors.New("composer.timeout_seconds must be positive")
	}
	if c.Composer.MainScale <= 0 || c.Composer.MainScale > 1 {
		return errors.New("composer.main_scale must be in (0, 1]")
	}
	if c.Composer.DurationSeconds <= 0 {
		return errors.New("composer.duration_seconds must be positive")
	}
	return nil
}

func (c *Config) validateUploader() error {
	if c.Uploader.Endpoint == "" {
		return errors.New("uploader.endpoint must be set")
	}
	if c.Uploader.TimeoutSeconds <= 0 {
		return errors.New("uploader.timeout_seconds must be positive")
	}
	switch c.Uploader.Visibility {
	case "public", "unlisted", "private":
	default:
		return fmt.Errorf("uploader.visibility %q is not one of public, unlisted, private", c.Uploader.Visibility)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.ItemDelaySeconds < 0 {
		return errors.New("workflow.item_delay_seconds must not be negative")
	}
	if c.Workflow.WatchIntervalSeconds <= 0 {
		return errors.New("workflow.watch_interval_seconds must be positive")
	}
	if c.Workflow.ErrorRetrySeconds <= 0 {
		return errors.New("workflow.error_retry_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of console, json", c.Logging.Format)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}
