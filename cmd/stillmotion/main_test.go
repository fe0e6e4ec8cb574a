package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stillmotion/internal/assemble"
)

func runCLI(t *testing.T, args []string, configPath string) (string, error) {
	t.Helper()
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	body := fmt.Sprintf(`[paths]
log_dir = %q
cache_dir = %q

[cache]
enabled = false

[logging]
level = "error"
`, filepath.Join(base, "logs"), filepath.Join(base, "cache"))
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeTestFrames(t *testing.T, dir string, count int) {
	t.Helper()
	for i := 1; i <= count; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 16, 12))
		path := filepath.Join(dir, fmt.Sprintf("frame%d.jpg", i))
		file, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		if err := jpeg.Encode(file, img, nil); err != nil {
			t.Fatal(err)
		}
		file.Close()
	}
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("output missing %q:\n%s", needle, haystack)
	}
}

func TestExitCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{fmt.Errorf("%w: bad flag", assemble.ErrUsage), exitUsage},
		{fmt.Errorf("%w: missing dir", assemble.ErrInput), exitInput},
		{fmt.Errorf("%w: mux", assemble.ErrEncode), exitEncode},
		{errors.New("anything else"), exitErr},
	}
	for _, tc := range cases {
		if got := exitCodeFor(tc.err); got != tc.want {
			t.Errorf("exitCodeFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestAssembleCommandEndToEnd(t *testing.T) {
	configPath := writeTestConfig(t)
	src := t.TempDir()
	writeTestFrames(t, src, 3)
	dest := filepath.Join(t.TempDir(), "out.avi")

	out, err := runCLI(t, []string{"assemble", src, dest, "--fps", "10"}, configPath)
	if err != nil {
		t.Fatalf("assemble: %v\n%s", err, out)
	}
	requireContains(t, out, "3 encoded")
	requireContains(t, out, "Frames encoded")

	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("expected output at %s: %v", dest, err)
	}
}

func TestAssembleCommandMissingArgsIsUsage(t *testing.T) {
	configPath := writeTestConfig(t)
	_, err := runCLI(t, []string{"assemble", t.TempDir()}, configPath)
	if !errors.Is(err, assemble.ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestAssembleCommandBadFilterIsUsage(t *testing.T) {
	configPath := writeTestConfig(t)
	_, err := runCLI(t, []string{
		"assemble", t.TempDir(), filepath.Join(t.TempDir(), "out.avi"),
		"--filter", "noequals",
	}, configPath)
	if !errors.Is(err, assemble.ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestProbeCommandPrintsMetadata(t *testing.T) {
	configPath := writeTestConfig(t)
	src := t.TempDir()
	writeTestFrames(t, src, 1)

	out, err := runCLI(t, []string{"probe", filepath.Join(src, "frame1.jpg")}, configPath)
	if err != nil {
		t.Fatalf("probe: %v\n%s", err, out)
	}
	requireContains(t, out, "FileName")
	requireContains(t, out, "format.Type")
}

func TestProbeCommandUnreadableFileIsInputError(t *testing.T) {
	configPath := writeTestConfig(t)
	garbage := filepath.Join(t.TempDir(), "broken.jpg")
	if err := os.WriteFile(garbage, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := runCLI(t, []string{"probe", garbage}, configPath)
	if !errors.Is(err, assemble.ErrInput) {
		t.Fatalf("expected input error, got %v", err)
	}
}
