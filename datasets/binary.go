package datasets

import (
	"os"

	"github.com/pkg/errors"
)

// ParseBinaryLabelledImages reads a fixed-record binary file in the
// CIFAR-style layout: each record is one label byte followed by
// width*height*depth pixel bytes. The record size comes from the model's
// input shape, so the file must match the network it feeds. Offset and
// count select a record range within this file; count == 0 means all
// remaining records.
func ParseBinaryLabelledImages(path string, width, height, depth uint, labelDim int, offset, count uint) (Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read binary dataset file %s", path)
	}

	pixels := int(width) * int(height) * int(depth)
	if pixels == 0 {
		return nil, errors.Errorf("binary dataset %s needs a non-empty input shape", path)
	}
	recordSize := 1 + pixels
	if len(raw)%recordSize != 0 {
		return nil, errors.Errorf("binary dataset %s size %d is not a multiple of record size %d",
			path, len(raw), recordSize)
	}

	total := len(raw) / recordSize
	from, to := sliceBounds(total, offset, count)
	ds := make(Dataset, 0, to-from)
	for i := from; i < to; i++ {
		rec := raw[i*recordSize : (i+1)*recordSize]
		label, err := oneHot(int(rec[0]), labelDim)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d of %s", i, path)
		}
		input := make([]float32, pixels)
		for j, px := range rec[1:] {
			input[j] = float32(px) / 255
		}
		ds = append(ds, Sample{Input: input, Label: label})
	}
	return ds, nil
}
