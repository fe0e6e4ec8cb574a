package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	CacheDir string `toml:"cache_dir"`
}

// Assembly contains defaults for the assemble pipeline; CLI flags override
// these per run.
type Assembly struct {
	Codec     string  `toml:"codec"`
	Container string  `toml:"container"`
	FrameRate float64 `toml:"frame_rate"`
	Quality   int     `toml:"quality"`
	SortKey   string  `toml:"sort_key"`
}

// Output contains destination handling configuration.
type Output struct {
	OverwriteExisting bool `toml:"overwrite_existing"`
}

// TimestampCache contains configuration for the capture-time cache database.
type TimestampCache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // Default: <cache_dir>/timestamps.db
}

// Encoder contains limits applied when constructing the compression session.
type Encoder struct {
	// UnsafeHeight is the output height above which a warning is issued.
	UnsafeHeight int `toml:"unsafe_height"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for stillmotion.
type Config struct {
	Paths    Paths          `toml:"paths"`
	Assembly Assembly       `toml:"assembly"`
	Output   Output         `toml:"output"`
	Cache    TimestampCache `toml:"cache"`
	Encoder  Encoder        `toml:"encoder"`
	Logging  Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/stillmotion/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. A missing file is not
// an error; defaults apply.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(defaultPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaultPath, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return defaultPath, true, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// clobber an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.CacheDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure directory %s: %w", dir, err)
		}
	}
	return nil
}

// CachePath returns the resolved timestamp-cache database path.
func (c *Config) CachePath() string {
	if strings.TrimSpace(c.Cache.Path) != "" {
		return c.Cache.Path
	}
	return filepath.Join(c.Paths.CacheDir, "timestamps.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	if !filepath.IsAbs(cleaned) {
		abs, err := filepath.Abs(cleaned)
		if err != nil {
			return "", fmt.Errorf("resolve absolute path: %w", err)
		}
		cleaned = abs
	}
	return cleaned, nil
}
