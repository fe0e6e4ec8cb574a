package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	switch c.Assembly.SortKey {
	case "name", "creation":
	default:
		return fmt.Errorf("assembly.sort_key must be %q or %q, got %q", "name", "creation", c.Assembly.SortKey)
	}
	if c.Assembly.Quality < 1 || c.Assembly.Quality > 100 {
		return errors.New("assembly.quality must be between 1 and 100")
	}
	if c.Assembly.FrameRate <= 0 {
		return errors.New("assembly.frame_rate must be positive")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be %q or %q, got %q", "console", "json", c.Logging.Format)
	}
	return nil
}
