package datasets

import (
	"path/filepath"
	"strings"
)

// Format is the inferred on-disk family of a dataset file.
type Format int

const (
	// FormatUnknown matches no known family; such files contribute zero
	// samples and only warrant a warning.
	FormatUnknown Format = iota
	// FormatIdx is the IDX index-table family (e.g. MNIST
	// train-images.idx3-ubyte); labels live in a companion file.
	FormatIdx
	// FormatBinary is the fixed-record binary family (e.g. CIFAR-style
	// .bin files): one label byte followed by raw pixel bytes per record.
	FormatBinary
	// FormatManifest is a text file listing image paths with labels.
	FormatManifest
)

func (f Format) String() string {
	switch f {
	case FormatIdx:
		return "idx"
	case FormatBinary:
		return "bin"
	case FormatManifest:
		return "txt"
	default:
		return "unknown"
	}
}

// Classify maps a filename to its dataset format by inspecting the final
// extension. The extension containing "idx" selects the index-table family,
// "bin" the fixed-record family, and exactly ".txt" the manifest family.
// This is a pure function; parsing is dispatched separately.
func Classify(name string) Format {
	ext := filepath.Ext(name)
	if ext == "" || ext == "." {
		return FormatUnknown
	}
	ext = ext[1:] // strip the dot
	switch {
	case strings.Contains(ext, "idx"):
		return FormatIdx
	case strings.Contains(ext, "bin"):
		return FormatBinary
	case ext == "txt":
		return FormatManifest
	default:
		return FormatUnknown
	}
}

// LabelCompanion derives the label-file name belonging to an IDX image
// file: every "images" token becomes "labels" and every "idx3" becomes
// "idx1" (MNIST naming convention).
func LabelCompanion(imagesPath string) string {
	s := strings.ReplaceAll(imagesPath, "images", "labels")
	return strings.ReplaceAll(s, "idx3", "idx1")
}
