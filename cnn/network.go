// Package cnn is the numeric model engine: a configurable feed-forward
// network with pluggable optimizers and loss functions, trained by
// mini-batch gradient descent. The run orchestration layer drives it
// through Run, Train and Validate.
package cnn

import (
	"fmt"
	"io"
	"math"
	"math/rand"

	"github.com/schustan/TypeCNN/datasets"
)

// Activation names a per-layer nonlinearity.
type Activation string

const (
	ActivationIdentity Activation = "identity"
	ActivationRelu     Activation = "relu"
	ActivationSigmoid  Activation = "sigmoid"
	ActivationTanh     Activation = "tanh"
)

func (a Activation) valid() bool {
	switch a {
	case ActivationIdentity, ActivationRelu, ActivationSigmoid, ActivationTanh:
		return true
	}
	return false
}

func (a Activation) apply(x float32) float32 {
	switch a {
	case ActivationRelu:
		if x < 0 {
			return 0
		}
		return x
	case ActivationSigmoid:
		return float32(1 / (1 + math.Exp(-float64(x))))
	case ActivationTanh:
		return float32(math.Tanh(float64(x)))
	default:
		return x
	}
}

// derivative with respect to the pre-activation, given both the
// pre-activation and the activation value.
func (a Activation) derivative(pre, act float32) float32 {
	switch a {
	case ActivationRelu:
		if pre > 0 {
			return 1
		}
		return 0
	case ActivationSigmoid:
		return act * (1 - act)
	case ActivationTanh:
		return 1 - act*act
	default:
		return 1
	}
}

// LayerSpec describes one dense layer of the network.
type LayerSpec struct {
	Units      uint       `json:"units"`
	Activation Activation `json:"activation"`
}

// DomainError reports invalid shapes or unusable data handed to the
// engine. It is fatal for the current run.
type DomainError struct {
	Reason string
}

func (e *DomainError) Error() string { return e.Reason }

func domainErrorf(format string, args ...any) *DomainError {
	return &DomainError{Reason: fmt.Sprintf(format, args...)}
}

// TrainingSettings is the per-run training configuration block.
type TrainingSettings struct {
	Epochs    uint
	BatchSize uint
	// Shuffle reorders the training data before each epoch.
	Shuffle bool
	// ErrorOutputRate prints the running average error every N samples;
	// zero disables the output.
	ErrorOutputRate uint
	// PeriodicValidation validates before the first and after every epoch.
	PeriodicValidation bool
}

// EpochListener is notified synchronously at every epoch boundary of the
// training loop. Accuracy and avgLoss are -1 when no validation data was
// evaluated for the epoch.
type EpochListener interface {
	OnEpochFinished(epoch int, settings *TrainingSettings, trainErr, accuracy, avgLoss float32)
}

// ValidationResult summarizes one validation pass.
type ValidationResult struct {
	// Accuracy is the argmax match rate in [0, 1].
	Accuracy float32
	// AvgError is the mean squared error per sample.
	AvgError float32
}

// Network is a dense feed-forward network with float32 weights. All
// methods are single-threaded; Run and Validate never mutate the network.
type Network struct {
	input Dimensions
	specs []LayerSpec

	// weights[l] is the row-major [units x fanIn] matrix of layer l;
	// biases[l] has one entry per unit.
	weights [][]float32
	biases  [][]float32

	rng      *rand.Rand
	listener EpochListener
	out      io.Writer
}

// Dimensions aliases the dataset shape type; the engine and the dataset
// layer share one notion of shape.
type Dimensions = datasets.Dimensions

// NewNetwork builds a network for the given input shape and layer stack.
// Weights are Xavier-uniform initialized from the seeded generator.
func NewNetwork(input Dimensions, layers []LayerSpec, seed int64) (*Network, error) {
	if input.Flat() <= 0 {
		return nil, domainErrorf("network input shape %s is empty", input)
	}
	if len(layers) == 0 {
		return nil, domainErrorf("network needs at least one layer")
	}
	n := &Network{
		input: input,
		specs: append([]LayerSpec(nil), layers...),
		rng:   rand.New(rand.NewSource(seed)),
	}
	fanIn := input.Flat()
	n.weights = make([][]float32, len(layers))
	n.biases = make([][]float32, len(layers))
	for l, spec := range layers {
		if spec.Units == 0 {
			return nil, domainErrorf("layer %d has zero units", l)
		}
		if !spec.Activation.valid() {
			return nil, domainErrorf("layer %d has unknown activation %q", l, spec.Activation)
		}
		fanOut := int(spec.Units)
		limit := float32(math.Sqrt(6.0 / float64(fanIn+fanOut)))
		w := make([]float32, fanOut*fanIn)
		for i := range w {
			w[i] = (n.rng.Float32()*2 - 1) * limit
		}
		n.weights[l] = w
		n.biases[l] = make([]float32, fanOut)
		fanIn = fanOut
	}
	return n, nil
}

// InputSize returns the input shape the network consumes.
func (n *Network) InputSize() Dimensions { return n.input }

// OutputSize returns the flattened output shape.
func (n *Network) OutputSize() Dimensions {
	last := n.specs[len(n.specs)-1]
	return Dimensions{Width: last.Units, Height: 1, Depth: 1}
}

// Layers returns a copy of the layer stack.
func (n *Network) Layers() []LayerSpec {
	return append([]LayerSpec(nil), n.specs...)
}

// Parameters exposes the raw weight matrices and bias vectors, one pair
// per layer, for persistence. Callers must not resize the slices.
func (n *Network) Parameters() (weights [][]float32, biases [][]float32) {
	return n.weights, n.biases
}

// SetParameters installs previously persisted weights and biases.
func (n *Network) SetParameters(weights [][]float32, biases [][]float32) error {
	if len(weights) != len(n.specs) || len(biases) != len(n.specs) {
		return domainErrorf("stored parameters cover %d layers, network has %d", len(weights), len(n.specs))
	}
	for l := range n.specs {
		if len(weights[l]) != len(n.weights[l]) {
			return domainErrorf("layer %d weight count %d does not match shape %d", l, len(weights[l]), len(n.weights[l]))
		}
		if len(biases[l]) != len(n.biases[l]) {
			return domainErrorf("layer %d bias count %d does not match shape %d", l, len(biases[l]), len(n.biases[l]))
		}
		copy(n.weights[l], weights[l])
		copy(n.biases[l], biases[l])
	}
	return nil
}

// SetOutput directs the engine's progress and summary lines to w. The
// default is to stay silent.
func (n *Network) SetOutput(w io.Writer) { n.out = w }

func (n *Network) printf(format string, args ...any) {
	if n.out != nil {
		fmt.Fprintf(n.out, format, args...)
	}
}

// SetEpochListener installs the listener invoked at each epoch boundary.
// A nil listener disables the notifications.
func (n *Network) SetEpochListener(l EpochListener) { n.listener = l }

// Run performs a forward pass over a single flattened input and returns
// the output vector. The network is not mutated.
func (n *Network) Run(input []float32) ([]float32, error) {
	_, acts, err := n.forward(input)
	if err != nil {
		return nil, err
	}
	last := acts[len(acts)-1]
	out := make([]float32, len(last))
	copy(out, last)
	return out, nil
}

// forward returns per-layer pre-activations (len = layers) and activations
// (len = layers+1, activations[0] is the input).
func (n *Network) forward(input []float32) (pres [][]float32, acts [][]float32, err error) {
	if len(input) != n.input.Flat() {
		return nil, nil, domainErrorf("input has %d elements, network expects %s", len(input), n.input)
	}
	L := len(n.specs)
	acts = make([][]float32, L+1)
	acts[0] = input
	pres = make([][]float32, L)
	for l := range n.specs {
		in := acts[l]
		outDim := len(n.biases[l])
		inDim := len(in)
		w := n.weights[l]
		pre := make([]float32, outDim)
		for j := 0; j < outDim; j++ {
			sum := n.biases[l][j]
			row := w[j*inDim : (j+1)*inDim]
			for i, x := range in {
				sum += row[i] * x
			}
			pre[j] = sum
		}
		pres[l] = pre
		act := make([]float32, outDim)
		for j, p := range pre {
			act[j] = n.specs[l].Activation.apply(p)
		}
		acts[l+1] = act
	}
	return pres, acts, nil
}

// Validate runs a full forward pass over the dataset and reports argmax
// accuracy plus the mean squared error per sample.
func (n *Network) Validate(ds datasets.Dataset) (ValidationResult, error) {
	if ds.Empty() {
		return ValidationResult{}, domainErrorf("no data to validate on, dataset empty")
	}
	outDim := n.OutputSize().Flat()
	var hits int
	var errSum float64
	for i := range ds {
		if len(ds[i].Label) != outDim {
			return ValidationResult{}, domainErrorf("sample %d label has %d elements, network outputs %d",
				i, len(ds[i].Label), outDim)
		}
		out, err := n.Run(ds[i].Input)
		if err != nil {
			return ValidationResult{}, err
		}
		if argmax(out) == argmax(ds[i].Label) {
			hits++
		}
		for j := range out {
			d := float64(out[j] - ds[i].Label[j])
			errSum += d * d
		}
	}
	res := ValidationResult{
		Accuracy: float32(hits) / float32(len(ds)),
		AvgError: float32(errSum / float64(len(ds))),
	}
	n.printf("Validation accuracy: %.2f%% (avg error %f)\n", res.Accuracy*100, res.AvgError)
	return res, nil
}

func argmax(v []float32) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
