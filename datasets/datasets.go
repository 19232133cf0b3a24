// Package datasets assembles labelled datasets from heterogeneous on-disk
// formats (IDX index tables, fixed-record binaries, and text manifests of
// PNG images) and presents them as ordered (input, label) pairs suitable
// for model training.
//
// Samples keep the order of the input file list and, within a file, the
// parse order. No shuffling happens at load time; shuffling is the training
// loop's business.
//
// Notes on gomlx tensors:
//   - Batches can be exported as gomlx tensors for interoperability with
//     gomlx training loops. The flat-buffer intermediate (BatchFlat) keeps
//     the conversion a small, well-defined step.
package datasets

import (
	"fmt"
	"io"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Dimensions describes a three-dimensional data shape.
type Dimensions struct {
	Width  uint `json:"width"`
	Height uint `json:"height"`
	Depth  uint `json:"depth"`
}

// Flat returns the flattened element count of the shape.
func (d Dimensions) Flat() int {
	return int(d.Width) * int(d.Height) * int(d.Depth)
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%dx%d", d.Width, d.Height, d.Depth)
}

// Sample is a single labelled example. Input is the flattened tensor in
// row-major order; Label has the flattened output shape of the model.
type Sample struct {
	Input []float32
	Label []float32
}

// Dataset is an ordered sequence of labelled samples.
type Dataset []Sample

// Len returns the number of samples.
func (d Dataset) Len() int { return len(d) }

// Empty reports whether the dataset holds no samples.
func (d Dataset) Empty() bool { return len(d) == 0 }

// Batch returns inputs and labels for the provided indices.
func (d Dataset) Batch(indices []int) (inputs [][]float32, labels [][]float32, err error) {
	inputs = make([][]float32, len(indices))
	labels = make([][]float32, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(d) {
			return nil, nil, fmt.Errorf("index %d out of range [0, %d)", idx, len(d))
		}
		inputs[i] = d[idx].Input
		labels[i] = d[idx].Label
	}
	return inputs, labels, nil
}

// Tensors reads a batch of samples and returns it as gomlx tensors.
func (d Dataset) Tensors(indices []int) (inputs *tensors.Tensor, labels *tensors.Tensor, err error) {
	in, la, err := d.Batch(indices)
	if err != nil {
		return nil, nil, err
	}
	flat, err := MakeBatchFlat(in, la)
	if err != nil {
		return nil, nil, err
	}
	return flat.ToTensors()
}

// BatchFlat stores a batch in flat contiguous buffers.
type BatchFlat struct {
	Inputs    []float32
	Labels    []float32
	BatchSize int
	InputDim  int
	LabelDim  int
}

// MakeBatchFlat flattens a batch into contiguous buffers.
func MakeBatchFlat(inputs, labels [][]float32) (*BatchFlat, error) {
	if len(inputs) != len(labels) {
		return nil, fmt.Errorf("inputs and labels batch sizes don't match: %d != %d", len(inputs), len(labels))
	}
	if len(inputs) == 0 {
		return &BatchFlat{}, nil
	}

	batchSize := len(inputs)
	inputDim := len(inputs[0])
	labelDim := len(labels[0])

	flatInputs := make([]float32, batchSize*inputDim)
	flatLabels := make([]float32, batchSize*labelDim)

	for i := range batchSize {
		if len(inputs[i]) != inputDim {
			return nil, fmt.Errorf("inconsistent input dimensions at sample %d: expected %d, got %d",
				i, inputDim, len(inputs[i]))
		}
		if len(labels[i]) != labelDim {
			return nil, fmt.Errorf("inconsistent label dimensions at sample %d: expected %d, got %d",
				i, labelDim, len(labels[i]))
		}
		copy(flatInputs[i*inputDim:], inputs[i])
		copy(flatLabels[i*labelDim:], labels[i])
	}

	return &BatchFlat{
		Inputs:    flatInputs,
		Labels:    flatLabels,
		BatchSize: batchSize,
		InputDim:  inputDim,
		LabelDim:  labelDim,
	}, nil
}

// ToTensors converts BatchFlat to gomlx tensors.
func (b *BatchFlat) ToTensors() (*tensors.Tensor, *tensors.Tensor, error) {
	if b.BatchSize == 0 || b.InputDim == 0 || b.LabelDim == 0 {
		inT := tensors.FromAnyValue(make([][]float32, 0))
		labT := tensors.FromAnyValue(make([][]float32, 0))
		return inT, labT, nil
	}
	inputs := make([][]float32, b.BatchSize)
	labels := make([][]float32, b.BatchSize)
	for i := range b.BatchSize {
		inputs[i] = b.Inputs[i*b.InputDim : (i+1)*b.InputDim]
		labels[i] = b.Labels[i*b.LabelDim : (i+1)*b.LabelDim]
	}
	return tensors.FromAnyValue(inputs), tensors.FromAnyValue(labels), nil
}

// Loader walks a Dataset in fixed-size batches of gomlx tensors, so a
// loaded dataset can feed a gomlx training loop. Yield returns io.EOF once
// the dataset is exhausted; Restart rewinds for the next epoch.
type Loader struct {
	Data      Dataset
	BatchSize int

	pos int
}

// Name returns the name of the batch source.
func (l *Loader) Name() string {
	return "LabelledDataset"
}

// Yield returns the next batch of data for the gomlx Dataset interface.
// Batch size is determined by the BatchSize field; the final batch of an
// epoch may be shorter.
func (l *Loader) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	if l.BatchSize <= 0 {
		return nil, nil, nil, fmt.Errorf("loader batch size %d must be positive", l.BatchSize)
	}
	if l.pos >= len(l.Data) {
		return nil, nil, nil, io.EOF
	}
	end := l.pos + l.BatchSize
	if end > len(l.Data) {
		end = len(l.Data)
	}
	indices := make([]int, 0, end-l.pos)
	for i := l.pos; i < end; i++ {
		indices = append(indices, i)
	}
	l.pos = end

	in, la, err := l.Data.Tensors(indices)
	if err != nil {
		return nil, nil, nil, err
	}
	return nil, []*tensors.Tensor{in}, []*tensors.Tensor{la}, nil
}

// Restart resets the loader for a new epoch.
func (l *Loader) Restart() error {
	l.pos = 0
	return nil
}

// oneHot builds a one-hot label vector of the given length. Class indices
// outside the vector mean the label file does not match the model's output
// shape.
func oneHot(class int, length int) ([]float32, error) {
	if class < 0 || class >= length {
		return nil, fmt.Errorf("label class %d does not fit output size %d", class, length)
	}
	v := make([]float32, length)
	v[class] = 1
	return v, nil
}

// sliceBounds applies offset and count to a parsed record count. A count of
// zero means all remaining records.
func sliceBounds(total int, offset, count uint) (from, to int) {
	from = int(offset)
	if from > total {
		from = total
	}
	to = total
	if count > 0 && from+int(count) < total {
		to = from + int(count)
	}
	return from, to
}
