package datasets

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// writePNG writes a 2x2 PNG where every pixel is the given color.
func writePNG(t *testing.T, path string, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create png: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}

func TestParseImageRGB(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "red.png")
	writePNG(t, path, color.RGBA{R: 255, A: 255})

	input, err := ParseImage(path, false)
	if err != nil {
		t.Fatalf("ParseImage error: %v", err)
	}
	if len(input) != 12 {
		t.Fatalf("got %d values, want 12 (2x2 RGB planar)", len(input))
	}
	// red plane all ones, green and blue planes all zeros
	for i := 0; i < 4; i++ {
		if math.Abs(float64(input[i]-1)) > 1e-3 {
			t.Errorf("red plane value %d = %v, want 1", i, input[i])
		}
	}
	for i := 4; i < 12; i++ {
		if input[i] != 0 {
			t.Errorf("non-red plane value %d = %v, want 0", i, input[i])
		}
	}
}

func TestParseImageGrayscale(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gray.png")
	writePNG(t, path, color.RGBA{R: 128, G: 128, B: 128, A: 255})

	input, err := ParseImage(path, true)
	if err != nil {
		t.Fatalf("ParseImage error: %v", err)
	}
	if len(input) != 4 {
		t.Fatalf("got %d values, want 4 (2x2 single channel)", len(input))
	}
	for i, v := range input {
		if math.Abs(float64(v)-128.0/255.0) > 1e-2 {
			t.Errorf("pixel %d = %v, want about 0.5", i, v)
		}
	}
}

func TestParseManifestLabelledImages(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), color.RGBA{R: 255, A: 255})
	writePNG(t, filepath.Join(dir, "b.png"), color.RGBA{G: 255, A: 255})

	manifest := filepath.Join(dir, "list.txt")
	content := "# fixture manifest\n\na.png 0\nb.png 1\n"
	if err := os.WriteFile(manifest, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	ds, err := ParseManifestLabelledImages(manifest, 2, false, 0, 0)
	if err != nil {
		t.Fatalf("ParseManifestLabelledImages error: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("got %d samples, want 2", ds.Len())
	}
	if ds[0].Label[0] != 1 || ds[1].Label[1] != 1 {
		t.Errorf("labels = %v / %v, want one-hot 0 and 1", ds[0].Label, ds[1].Label)
	}
	if len(ds[0].Input) != 12 {
		t.Errorf("sample input has %d values, want 12", len(ds[0].Input))
	}
}

func TestParseManifestOffsetCount(t *testing.T) {
	dir := t.TempDir()
	var content string
	for i := 0; i < 4; i++ {
		name := fmt.Sprintf("img%d.png", i)
		writePNG(t, filepath.Join(dir, name), color.RGBA{R: byte(60 * i), A: 255})
		content += fmt.Sprintf("%s %d\n", name, i%2)
	}
	manifest := filepath.Join(dir, "list.txt")
	if err := os.WriteFile(manifest, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	ds, err := ParseManifestLabelledImages(manifest, 2, true, 1, 2)
	if err != nil {
		t.Fatalf("ParseManifestLabelledImages error: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("got %d samples, want 2", ds.Len())
	}
	if ds[0].Label[1] != 1 {
		t.Errorf("first selected sample label = %v, want class 1", ds[0].Label)
	}
}

func TestParseManifestRejectsBadLine(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "list.txt")
	if err := os.WriteFile(manifest, []byte("just-a-path-without-label\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseManifestLabelledImages(manifest, 2, false, 0, 0); err == nil {
		t.Fatal("expected error for malformed manifest line")
	}
}
