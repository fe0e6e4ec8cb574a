package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"stillmotion/internal/config"
)

func TestLoadDefaultsExpandPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLogs := filepath.Join(tempHome, ".local", "share", "stillmotion", "logs")
	if cfg.Paths.LogDir != wantLogs {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogs)
	}
	if cfg.Assembly.Codec != "mjpeg" {
		t.Fatalf("unexpected default codec: %q", cfg.Assembly.Codec)
	}
	if cfg.Assembly.FrameRate != 30.0 {
		t.Fatalf("unexpected default frame rate: %v", cfg.Assembly.FrameRate)
	}
	if cfg.Output.OverwriteExisting {
		t.Fatal("expected overwrite disabled by default")
	}
	if !cfg.Cache.Enabled {
		t.Fatal("expected timestamp cache enabled by default")
	}
	wantCache := filepath.Join(tempHome, ".cache", "stillmotion", "timestamps.db")
	if cfg.CachePath() != wantCache {
		t.Fatalf("unexpected cache path: %q", cfg.CachePath())
	}
}

func TestLoadReadsFileAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := "[assembly]\nquality = 60\nsort_key = \"creation\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Assembly.Quality != 60 {
		t.Fatalf("unexpected quality: %d", cfg.Assembly.Quality)
	}
	if cfg.Assembly.SortKey != "creation" {
		t.Fatalf("unexpected sort key: %q", cfg.Assembly.SortKey)
	}
}

func TestLoadRejectsBadSortKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[assembly]\nsort_key = \"mtime\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for bad sort key")
	}
}

func TestWriteSampleRefusesClobber(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error writing over existing config")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("sample config is empty")
	}
}
