package sortfilter_test

import (
	"errors"
	"testing"
	"time"

	"stillmotion/internal/discover"
	"stillmotion/internal/logging"
	"stillmotion/internal/media/metadata"
	"stillmotion/internal/sortfilter"
)

func candidates(paths ...string) []discover.Candidate {
	out := make([]discover.Candidate, len(paths))
	for i, path := range paths {
		out[i] = discover.Candidate{Path: path, Ordinal: i + 1}
	}
	return out
}

func paths(selection sortfilter.Selection) []string {
	out := make([]string, len(selection.Candidates))
	for i, candidate := range selection.Candidates {
		out[i] = candidate.Path
	}
	return out
}

func TestNameSortIsNumericAware(t *testing.T) {
	engine := sortfilter.New(logging.NewNop())
	selection := engine.Select(
		candidates("/in/frame10.jpg", "/in/frame2.jpg", "/in/Frame1.jpg"),
		nil,
		sortfilter.Options{Key: sortfilter.KeyName},
	)
	got := paths(selection)
	want := []string{"/in/Frame1.jpg", "/in/frame2.jpg", "/in/frame10.jpg"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order: %v", got)
		}
	}
}

func TestNameSortReverse(t *testing.T) {
	engine := sortfilter.New(logging.NewNop())
	selection := engine.Select(
		candidates("/in/frame2.jpg", "/in/frame10.jpg"),
		nil,
		sortfilter.Options{Key: sortfilter.KeyName, Reverse: true},
	)
	got := paths(selection)
	if got[0] != "/in/frame10.jpg" || got[1] != "/in/frame2.jpg" {
		t.Fatalf("unexpected reverse order: %v", got)
	}
}

func TestCreationSortPutsMissingTimestampsLast(t *testing.T) {
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	index := discover.TimestampIndex{
		"/in/late.jpg":  base.Add(time.Minute),
		"/in/early.jpg": base,
	}
	engine := sortfilter.New(logging.NewNop())
	selection := engine.Select(
		candidates("/in/late.jpg", "/in/unknown.jpg", "/in/early.jpg"),
		index,
		sortfilter.Options{Key: sortfilter.KeyCreation},
	)
	got := paths(selection)
	want := []string{"/in/early.jpg", "/in/late.jpg", "/in/unknown.jpg"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order: %v", got)
		}
	}
}

func TestFilterMatchesNestedMetadata(t *testing.T) {
	trees := map[string]*metadata.Tree{}
	nikon := metadata.NewTree()
	exif := metadata.NewTree()
	exif.SetScalar("Model", "Nikon D5200")
	nikon.Set("exif", exif)
	trees["/in/nikon.jpg"] = nikon

	canon := metadata.NewTree()
	canon.SetScalar("Model", "Canon EOS R5")
	trees["/in/canon.jpg"] = canon

	engine := sortfilter.New(logging.NewNop(), sortfilter.WithProber(
		func(path string) (*metadata.Tree, error) {
			if tree, ok := trees[path]; ok {
				return tree, nil
			}
			return nil, errors.New("unreadable")
		}))

	selection := engine.Select(
		candidates("/in/nikon.jpg", "/in/canon.jpg", "/in/broken.jpg"),
		nil,
		sortfilter.Options{
			Key:    sortfilter.KeyName,
			Filter: metadata.FilterSpec{"model": "nikon d5200"},
		},
	)
	if len(selection.Candidates) != 1 || selection.Candidates[0].Path != "/in/nikon.jpg" {
		t.Fatalf("unexpected selection: %v", paths(selection))
	}
	if selection.FilteredOut != 2 {
		t.Fatalf("expected 2 filtered out, got %d", selection.FilteredOut)
	}
}

func TestLimitTruncatesAfterSorting(t *testing.T) {
	engine := sortfilter.New(logging.NewNop())
	selection := engine.Select(
		candidates("/in/e.jpg", "/in/c.jpg", "/in/a.jpg", "/in/d.jpg", "/in/b.jpg"),
		nil,
		sortfilter.Options{Key: sortfilter.KeyName, Limit: 2},
	)
	got := paths(selection)
	if len(got) != 2 || got[0] != "/in/a.jpg" || got[1] != "/in/b.jpg" {
		t.Fatalf("unexpected limited selection: %v", got)
	}
}
