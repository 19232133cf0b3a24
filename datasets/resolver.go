package datasets

import (
	"log"

	"github.com/pkg/errors"
)

// Resolver maps lists of dataset files to one concatenated labelled
// dataset. Each file is classified by name (see Classify) and handed to the
// parser for its format; files matching no format contribute zero samples
// and only produce a warning. Offset and count apply to every file
// independently, never to the concatenated whole.
type Resolver struct {
	// Grayscale is forwarded to the image parser for manifest files.
	Grayscale bool

	// Logf receives non-fatal diagnostics; defaults to log.Printf.
	Logf func(format string, args ...any)
}

func (r *Resolver) logf(format string, args ...any) {
	if r.Logf != nil {
		r.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Resolve parses every file in list order and appends the results. The
// input shape sizes fixed-record parsing and validates decoded samples; the
// output shape sizes the one-hot labels.
func (r *Resolver) Resolve(files []string, input, output Dimensions, offset, count uint) (Dataset, error) {
	labelDim := output.Flat()
	var out Dataset
	for _, file := range files {
		var (
			part Dataset
			err  error
		)
		switch Classify(file) {
		case FormatIdx:
			part, err = ParseIdxLabelledImages(file, LabelCompanion(file), labelDim, offset, count)
		case FormatBinary:
			part, err = ParseBinaryLabelledImages(file, input.Width, input.Height, input.Depth, labelDim, offset, count)
		case FormatManifest:
			part, err = ParseManifestLabelledImages(file, labelDim, r.Grayscale, offset, count)
		default:
			r.logf("Input data file %s not detected as either BIN, IDX or TXT file (based on extension).", file)
			continue
		}
		if err != nil {
			return nil, err
		}
		for i := range part {
			if len(part[i].Input) != input.Flat() {
				return nil, errors.Errorf("sample %d of %s has %d inputs, model expects %s",
					i, file, len(part[i].Input), input)
			}
		}
		out = append(out, part...)
	}
	return out, nil
}
