package datasets

import (
	"bufio"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	_ "image/png"
)

// ParseManifestLabelledImages reads a text manifest listing one
// "path label" pair per line and decodes each referenced PNG image.
// Relative image paths are resolved against the manifest's directory.
// Blank lines and lines starting with '#' are skipped. Offset and count
// select a line range within this manifest; count == 0 means all remaining
// lines.
func ParseManifestLabelledImages(path string, labelDim int, grayscale bool, offset, count uint) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read manifest file %s", path)
	}
	defer f.Close()

	type entry struct {
		path  string
		class int
	}
	var entries []entry
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, errors.Errorf("manifest %s line %d: want \"path label\", got %q", path, lineNo, line)
		}
		class, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, errors.Wrapf(err, "manifest %s line %d: bad label %q", path, lineNo, fields[1])
		}
		entries = append(entries, entry{path: fields[0], class: class})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading manifest %s", path)
	}

	base := filepath.Dir(path)
	from, to := sliceBounds(len(entries), offset, count)
	ds := make(Dataset, 0, to-from)
	for i := from; i < to; i++ {
		imgPath := entries[i].path
		if !filepath.IsAbs(imgPath) {
			imgPath = filepath.Join(base, imgPath)
		}
		input, err := ParseImage(imgPath, grayscale)
		if err != nil {
			return nil, err
		}
		label, err := oneHot(entries[i].class, labelDim)
		if err != nil {
			return nil, errors.Wrapf(err, "manifest %s entry %d", path, i)
		}
		ds = append(ds, Sample{Input: input, Label: label})
	}
	return ds, nil
}

// ParseImage decodes a single image into a flattened float32 tensor with
// values in [0, 1]. With grayscale set, one luminance channel per pixel is
// produced; otherwise three RGB channels, planar (all R, then G, then B).
func ParseImage(path string, grayscale bool) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open image %s", path)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode image %s", path)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if grayscale {
		out := make([]float32, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				// ITU-R BT.601 luma on 16-bit channels.
				luma := 0.299*float32(r) + 0.587*float32(g) + 0.114*float32(b)
				out[y*w+x] = luma / 0xffff
			}
		}
		return out, nil
	}

	out := make([]float32, 3*w*h)
	plane := w * h
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			out[y*w+x] = float32(r) / 0xffff
			out[plane+y*w+x] = float32(g) / 0xffff
			out[2*plane+y*w+x] = float32(b) / 0xffff
		}
	}
	return out, nil
}
