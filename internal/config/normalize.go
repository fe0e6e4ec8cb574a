package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAssembly()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Cache.Path) != "" {
		if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
			return fmt.Errorf("cache.path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeAssembly() {
	c.Assembly.Codec = strings.ToLower(strings.TrimSpace(c.Assembly.Codec))
	if c.Assembly.Codec == "" {
		c.Assembly.Codec = defaultCodec
	}
	c.Assembly.Container = strings.ToLower(strings.TrimSpace(c.Assembly.Container))
	if c.Assembly.Container == "" {
		c.Assembly.Container = defaultContainer
	}
	if c.Assembly.FrameRate <= 0 {
		c.Assembly.FrameRate = defaultFrameRate
	}
	if c.Assembly.Quality <= 0 {
		c.Assembly.Quality = defaultQuality
	}
	c.Assembly.SortKey = strings.ToLower(strings.TrimSpace(c.Assembly.SortKey))
	if c.Assembly.SortKey == "" {
		c.Assembly.SortKey = defaultSortKey
	}
	if c.Encoder.UnsafeHeight <= 0 {
		c.Encoder.UnsafeHeight = defaultUnsafeHeight
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
