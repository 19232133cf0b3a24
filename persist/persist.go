// Package persist reads and writes network descriptions. The on-disk
// format is a single JSON document holding the input shape, the layer
// stack, and optionally the trained weights; dumping overwrites the file
// in place with a full snapshot (there is no versioned history).
package persist

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/schustan/TypeCNN/cnn"
	"github.com/schustan/TypeCNN/datasets"
)

// Description is the JSON document describing a network.
type Description struct {
	Input   datasets.Dimensions `json:"input"`
	Layers  []cnn.LayerSpec     `json:"layers"`
	Weights [][]float32         `json:"weights,omitempty"`
	Biases  [][]float32         `json:"biases,omitempty"`
}

// Error reports a failed load or dump of a network file. It aborts the run
// before anything else starts.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("network file %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// LoadNetwork builds a network from the JSON description at path. With
// loadWeights set, stored weights are installed; otherwise (or when the
// file carries none) the network keeps its fresh seeded initialization.
func LoadNetwork(path string, loadWeights bool, seed int64) (*cnn.Network, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	var desc Description
	if err := json.Unmarshal(raw, &desc); err != nil {
		return nil, &Error{Path: path, Err: errors.Wrap(err, "invalid JSON")}
	}
	net, err := cnn.NewNetwork(desc.Input, desc.Layers, seed)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	if loadWeights && (desc.Weights != nil || desc.Biases != nil) {
		if err := net.SetParameters(desc.Weights, desc.Biases); err != nil {
			return nil, &Error{Path: path, Err: err}
		}
	}
	return net, nil
}

// DumpNetwork writes a full snapshot of the network, weights included,
// overwriting path in place.
func DumpNetwork(net *cnn.Network, path string) error {
	weights, biases := net.Parameters()
	desc := Description{
		Input:   net.InputSize(),
		Layers:  net.Layers(),
		Weights: weights,
		Biases:  biases,
	}
	raw, err := json.MarshalIndent(&desc, "", "  ")
	if err != nil {
		return &Error{Path: path, Err: err}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return &Error{Path: path, Err: err}
	}
	return nil
}
