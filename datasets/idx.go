package datasets

import (
	"encoding/binary"
	"os"

	"github.com/pkg/errors"
)

// IDX is the big-endian index-table format used by the MNIST distribution.
// Images carry magic 0x00000803 and three dimensions (count, rows, cols);
// labels carry magic 0x00000801 and one dimension (count).
const (
	idxImagesMagic = 0x00000803
	idxLabelsMagic = 0x00000801
)

// ParseIdxLabelledImages reads an IDX image file and its companion label
// file into a labelled dataset. Pixels are normalized to [0, 1]; labels are
// one-hot encoded into labelDim. Offset and count select a record range
// within this file pair; count == 0 means all remaining records.
func ParseIdxLabelledImages(imagesPath, labelsPath string, labelDim int, offset, count uint) (Dataset, error) {
	images, rows, cols, err := readIdxImages(imagesPath)
	if err != nil {
		return nil, err
	}
	labels, err := readIdxLabels(labelsPath)
	if err != nil {
		return nil, err
	}
	if len(images) != len(labels) {
		return nil, errors.Errorf("idx image count %d does not match label count %d (%s / %s)",
			len(images), len(labels), imagesPath, labelsPath)
	}

	from, to := sliceBounds(len(images), offset, count)
	ds := make(Dataset, 0, to-from)
	for i := from; i < to; i++ {
		input := make([]float32, rows*cols)
		for j, px := range images[i] {
			input[j] = float32(px) / 255
		}
		label, err := oneHot(int(labels[i]), labelDim)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d of %s", i, labelsPath)
		}
		ds = append(ds, Sample{Input: input, Label: label})
	}
	return ds, nil
}

func readIdxImages(path string) (records [][]byte, rows, cols int, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, 0, errors.Wrapf(err, "cannot read idx image file %s", path)
	}
	if len(raw) < 16 {
		return nil, 0, 0, errors.Errorf("idx image file %s too short for header", path)
	}
	if magic := binary.BigEndian.Uint32(raw[0:4]); magic != idxImagesMagic {
		return nil, 0, 0, errors.Errorf("idx image file %s has bad magic 0x%08x", path, magic)
	}
	n := int(binary.BigEndian.Uint32(raw[4:8]))
	rows = int(binary.BigEndian.Uint32(raw[8:12]))
	cols = int(binary.BigEndian.Uint32(raw[12:16]))
	body := raw[16:]
	size := rows * cols
	if size <= 0 || len(body) < n*size {
		return nil, 0, 0, errors.Errorf("idx image file %s truncated: %d records of %d bytes, %d bytes of data",
			path, n, size, len(body))
	}
	records = make([][]byte, n)
	for i := range n {
		records[i] = body[i*size : (i+1)*size]
	}
	return records, rows, cols, nil
}

func readIdxLabels(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read idx label file %s", path)
	}
	if len(raw) < 8 {
		return nil, errors.Errorf("idx label file %s too short for header", path)
	}
	if magic := binary.BigEndian.Uint32(raw[0:4]); magic != idxLabelsMagic {
		return nil, errors.Errorf("idx label file %s has bad magic 0x%08x", path, magic)
	}
	n := int(binary.BigEndian.Uint32(raw[4:8]))
	body := raw[8:]
	if len(body) < n {
		return nil, errors.Errorf("idx label file %s truncated: %d labels, %d bytes of data", path, n, len(body))
	}
	return body[:n], nil
}
