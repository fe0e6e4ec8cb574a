// Package discover enumerates candidate image files under a set of root
// paths and resolves a capture timestamp for each one.
//
// Roots must exist and be readable; failures deeper in the walk are logged
// and skipped so one bad subtree cannot abort a large batch. Timestamp
// resolution prefers embedded capture metadata, then the filesystem's
// creation attribute; a file that yields neither stays a candidate and is
// simply absent from the timestamp index.
package discover

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"stillmotion/internal/logging"
	"stillmotion/internal/media/imagefile"
	"stillmotion/internal/media/metadata"
)

// Candidate is a discovered image file. Ordinal is the 1-based position in
// discovery order and doubles as the frame correlation token downstream.
type Candidate struct {
	Path    string
	Ordinal int
}

// TimestampIndex maps candidate paths to resolved capture timestamps.
// Absence of an entry when timestamps were requested signals a resolution
// failure for that file.
type TimestampIndex map[string]time.Time

// Result is the outcome of a discovery pass.
type Result struct {
	Candidates []Candidate
	Timestamps TimestampIndex
	Bounds     Bounds

	// Unreadable counts files excluded because their metadata could not
	// even be probed. MissingTimestamps counts kept candidates without a
	// resolved timestamp.
	Unreadable        int
	MissingTimestamps int
}

// TimestampCache is the optional persistent cache consulted before probing.
type TimestampCache interface {
	Lookup(ctx context.Context, path string, size int64, mtime time.Time) (time.Time, bool, error)
	Put(ctx context.Context, path string, size int64, mtime, capture time.Time) error
}

// Scanner performs discovery. The zero value is not usable; construct with
// New.
type Scanner struct {
	logger   *slog.Logger
	probe    func(path string) (*metadata.Tree, error)
	creation func(path string, info os.FileInfo) (time.Time, error)
	cache    TimestampCache
}

// Option adjusts scanner construction.
type Option func(*Scanner)

// WithProber replaces the metadata probe, primarily for tests.
func WithProber(probe func(path string) (*metadata.Tree, error)) Option {
	return func(s *Scanner) { s.probe = probe }
}

// WithCache attaches a persistent timestamp cache.
func WithCache(cache TimestampCache) Option {
	return func(s *Scanner) { s.cache = cache }
}

// WithCreationTime replaces the filesystem creation-attribute lookup,
// primarily for tests.
func WithCreationTime(fn func(path string, info os.FileInfo) (time.Time, error)) Option {
	return func(s *Scanner) { s.creation = fn }
}

// New constructs a Scanner.
func New(logger *slog.Logger, opts ...Option) *Scanner {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Scanner{logger: logger, probe: imagefile.Probe, creation: creationTime}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// bundleSuffixes marks directory names treated as opaque packages rather
// than folders worth descending into.
var bundleSuffixes = []string{".app", ".bundle", ".framework", ".photoslibrary", ".fcpbundle"}

func isBundle(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range bundleSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// Scan walks roots and, when needTimestamps is set, resolves a capture
// timestamp per candidate. A root that does not exist or cannot be
// enumerated is fatal; nested enumeration failures are logged and skipped.
func (s *Scanner) Scan(ctx context.Context, roots []string, needTimestamps bool) (*Result, error) {
	result := &Result{Timestamps: make(TimestampIndex)}

	for _, root := range roots {
		info, err := os.Lstat(root)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", root, err)
		}
		if info.IsDir() {
			entries, err := os.ReadDir(root)
			if err != nil {
				return nil, fmt.Errorf("read source directory %s: %w", root, err)
			}
			s.walkEntries(ctx, root, entries, needTimestamps, result)
			continue
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil, fmt.Errorf("source %s is a symbolic link", root)
		}
		s.addCandidate(ctx, root, needTimestamps, result)
	}

	return result, nil
}

func (s *Scanner) walkEntries(ctx context.Context, dir string, entries []os.DirEntry, needTimestamps bool, result *Result) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		name := entry.Name()
		if isHidden(name) {
			continue
		}
		path := filepath.Join(dir, name)
		if entry.Type()&os.ModeSymlink != 0 {
			continue
		}
		if entry.IsDir() {
			if isBundle(name) {
				s.logger.Debug("skipping bundle directory", logging.Path(path))
				continue
			}
			children, err := os.ReadDir(path)
			if err != nil {
				s.logger.Warn("skipping unreadable directory", logging.Path(path), logging.Error(err))
				continue
			}
			s.walkEntries(ctx, path, children, needTimestamps, result)
			continue
		}
		s.addCandidate(ctx, path, needTimestamps, result)
	}
}

func (s *Scanner) addCandidate(ctx context.Context, path string, needTimestamps bool, result *Result) {
	if !needTimestamps {
		result.Candidates = append(result.Candidates, Candidate{Path: path, Ordinal: len(result.Candidates) + 1})
		return
	}

	captured, keep := s.resolveTimestamp(ctx, path)
	if !keep {
		result.Unreadable++
		return
	}
	result.Candidates = append(result.Candidates, Candidate{Path: path, Ordinal: len(result.Candidates) + 1})
	if captured.IsZero() {
		result.MissingTimestamps++
		return
	}
	result.Timestamps[path] = captured
	result.Bounds.Observe(captured)
}

// resolveTimestamp returns the capture time (zero if unresolvable) and
// whether the file should remain a candidate at all.
func (s *Scanner) resolveTimestamp(ctx context.Context, path string) (time.Time, bool) {
	info, err := os.Stat(path)
	if err != nil {
		s.logger.Warn("excluding unreadable file", logging.Path(path), logging.Error(err))
		return time.Time{}, false
	}

	if s.cache != nil {
		if cached, found, err := s.cache.Lookup(ctx, path, info.Size(), info.ModTime()); err != nil {
			s.logger.Warn("timestamp cache lookup failed", logging.Path(path), logging.Error(err))
		} else if found {
			return cached, true
		}
	}

	tree, err := s.probe(path)
	if err != nil {
		s.logger.Warn("excluding file: metadata probe failed", logging.Path(path), logging.Error(err))
		return time.Time{}, false
	}

	if captured, ok := captureTimeFromTree(tree); ok {
		if s.cache != nil {
			if err := s.cache.Put(ctx, path, info.Size(), info.ModTime(), captured); err != nil {
				s.logger.Warn("timestamp cache store failed", logging.Path(path), logging.Error(err))
			}
		}
		return captured, true
	}

	if created, err := s.creation(path, info); err == nil {
		s.logger.Debug("using filesystem creation time", logging.Path(path))
		return created, true
	}

	s.logger.Warn("no capture timestamp available", logging.Path(path))
	return time.Time{}, true
}

// exifTimeLayout is the timestamp format EXIF uses; it carries no zone, so
// values are interpreted in local time.
const exifTimeLayout = "2006:01:02 15:04:05"

func captureTimeFromTree(tree *metadata.Tree) (time.Time, bool) {
	for _, key := range []string{"DateTimeOriginal", "DateTimeDigitized", "DateTime"} {
		text, ok := tree.Find(key)
		if !ok {
			continue
		}
		if captured, err := time.ParseInLocation(exifTimeLayout, strings.TrimSpace(text), time.Local); err == nil {
			return captured, true
		}
	}
	return time.Time{}, false
}
