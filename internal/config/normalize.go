package config

import "strings"

// normalize expands paths and trims user-provided string fields so later
// consumers can rely on canonical values.
func (c *Config) normalize() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(strings.TrimSpace(c.Paths.WorkDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return err
	}
	if c.Paths.CredentialsDir, err = expandPath(strings.TrimSpace(c.Paths.CredentialsDir)); err != nil {
		return err
	}
	if c.Paths.CatalogRoot, err = expandPath(strings.TrimSpace(c.Paths.CatalogRoot)); err != nil {
		return err
	}
	if c.Feed.ExportPath, err = expandPath(strings.TrimSpace(c.Feed.ExportPath)); err != nil {
		return err
	}

	c.Feed.DisapprovedValue = strings.TrimSpace(c.Feed.DisapprovedValue)
	if c.Feed.DisapprovedValue == "" {
		c.Feed.DisapprovedValue = defaultDisapprovedValue
	}
	if c.Feed.HeaderRows < 0 {
		c.Feed.HeaderRows = 0
	}

	c.Composer.Binary = strings.TrimSpace(c.Composer.Binary)
	if c.Composer.Binary == "" {
		c.Composer.Binary = defaultComposerBinary
	}
	c.Composer.Style = strings.TrimSpace(c.Composer.Style)
	if c.Composer.Style == "" {
		c.Composer.Style = defaultComposeStyle
	}

	c.Uploader.Endpoint = strings.TrimRight(strings.TrimSpace(c.Uploader.Endpoint), "/")
	c.Uploader.Visibility = strings.ToLower(strings.TrimSpace(c.Uploader.Visibility))
	if c.Uploader.Visibility == "" {
		c.Uploader.Visibility = defaultUploadVisibility
	}

	normalized := make(map[string]string, len(c.Channels))
	for tag, handle := range c.Channels {
		tag = strings.TrimSpace(tag)
		handle = strings.TrimSpace(handle)
		if tag == "" {
			continue
		}
		normalized[tag] = handle
	}
	c.Channels = normalized

	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}
