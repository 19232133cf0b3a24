// Package run is the run-orchestration layer: it validates command-line
// arguments into a RunConfiguration, resolves datasets per mode, drives
// inference, training and validation against the model engine, and applies
// the keep-best checkpoint policy through the engine's epoch listener.
package run

import (
	"github.com/schustan/TypeCNN/cnn"
)

// RunConfig is the validated run configuration. It is immutable after
// ParseArgs returns it.
type RunConfig struct {
	// Help is set when -h/--help was given; nothing else is validated.
	Help bool

	// CNNPath is the network description file (-c/--cnn).
	CNNPath   string
	Grayscale bool

	// TypeInfo requests the numeric-type report; TypeInfoOnly means it was
	// the only flag supplied and the process exits after printing it.
	TypeInfo     bool
	TypeInfoOnly bool

	Inference     bool
	InferencePath string

	Validation       bool
	ValidationFiles  []string
	ValidationOffset uint
	ValidationNum    uint

	Training       bool
	TrainingFiles  []string
	TrainingOffset uint
	TrainingNum    uint

	Seed        int64
	LoadWeights bool
	SaveWeights bool
	KeepBest    bool

	OptimizerName string
	LearningRate  float32
	WeightDecay   float32
	LossName      string

	Settings cnn.TrainingSettings

	// PlotPath, when set, saves a training-curve PNG after training.
	PlotPath string
}
