// Package imagefile probes and decodes still-image files.
//
// Probe extracts a nested metadata tree (container facts plus EXIF fields,
// with GPS fields grouped in their own subtree) without decoding pixel data.
// Decode produces pixels for encoding; Fit performs proportional resizing.
package imagefile

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"stillmotion/internal/media/metadata"
)

// Probe reads structural and embedded metadata from the file at path.
// A file whose header cannot be parsed as a known image format is
// structurally unreadable and yields an error; a readable image without
// EXIF data yields a tree without an "exif" subtree.
func Probe(path string) (*metadata.Tree, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	cfg, format, err := image.DecodeConfig(file)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}

	tree := metadata.NewTree()
	tree.SetScalar("FileName", filepath.Base(path))

	formatTree := metadata.NewTree()
	formatTree.SetScalar("Type", format)
	formatTree.SetScalar("PixelWidth", fmt.Sprintf("%d", cfg.Width))
	formatTree.SetScalar("PixelHeight", fmt.Sprintf("%d", cfg.Height))
	tree.Set("format", formatTree)

	if _, err := file.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("rewind %s: %w", path, err)
	}
	if exifData, err := exif.Decode(file); err == nil {
		tree.Set("exif", exifTree(exifData))
	}

	return tree, nil
}

type exifCollector struct {
	exif *metadata.Tree
	gps  *metadata.Tree
}

func (c *exifCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	text, err := tag.StringVal()
	if err != nil {
		text = strings.Trim(tag.String(), `"`)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if strings.HasPrefix(string(name), "GPS") {
		c.gps.SetScalar(string(name), text)
		return nil
	}
	c.exif.SetScalar(string(name), text)
	return nil
}

func exifTree(data *exif.Exif) *metadata.Tree {
	collector := &exifCollector{exif: metadata.NewTree(), gps: metadata.NewTree()}
	_ = data.Walk(collector)
	if collector.gps.Len() > 0 {
		collector.exif.Set("gps", collector.gps)
	}
	return collector.exif
}

// CaptureTime returns the embedded capture timestamp (DateTimeOriginal,
// falling back to DateTime) of the image at path.
func CaptureTime(path string) (time.Time, error) {
	file, err := os.Open(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	exifData, err := exif.Decode(file)
	if err != nil {
		return time.Time{}, fmt.Errorf("exif %s: %w", path, err)
	}
	captured, err := exifData.DateTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("capture time %s: %w", path, err)
	}
	return captured, nil
}

// Decode reads the image at path into pixel data.
func Decode(path string) (*image.NRGBA, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return imaging.Clone(img), nil
}

// Fit resizes img to exactly width x height using Lanczos resampling.
func Fit(img image.Image, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.New("resize dimensions must be positive")
	}
	return imaging.Resize(img, width, height, imaging.Lanczos), nil
}

// ScaledWidth computes the width that preserves the source aspect ratio at
// targetHeight, rounded to the nearest even number as most codecs expect.
func ScaledWidth(srcWidth, srcHeight, targetHeight int) int {
	if srcHeight <= 0 || targetHeight <= 0 {
		return srcWidth
	}
	width := int(float64(srcWidth)*float64(targetHeight)/float64(srcHeight) + 0.5)
	if width%2 != 0 {
		width++
	}
	if width < 2 {
		width = 2
	}
	return width
}
