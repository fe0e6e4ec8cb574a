package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
}

func TestConfigInitRefusesExistingFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(target, []byte("# mine\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected refusal without --overwrite")
	}

	if _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowPrintsEffectiveValues(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, []string{"config", "show"}, configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "mjpeg")
	requireContains(t, out, "sort_key")
}
