package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"stillmotion/internal/assemble"
	"stillmotion/internal/config"
	"stillmotion/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = fmt.Errorf("%w: %v", assemble.ErrUsage, err)
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = fmt.Errorf("%w: %v", assemble.ErrInput, err)
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// ensureLogger builds the process logger from config: console (or JSON) on
// stderr plus a persistent file under log_dir.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.loggerOnce.Do(func() {
		c.logger, c.loggerErr = logging.New(logging.Options{
			Level:    cfg.Logging.Level,
			Format:   cfg.Logging.Format,
			FilePath: filepath.Join(cfg.Paths.LogDir, "stillmotion.log"),
		})
		if c.loggerErr != nil {
			c.loggerErr = fmt.Errorf("%w: %v", assemble.ErrUsage, c.loggerErr)
		}
	})
	return c.logger, c.loggerErr
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
