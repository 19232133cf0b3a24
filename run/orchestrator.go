package run

import (
	"fmt"
	"io"

	"github.com/schustan/TypeCNN/cnn"
	"github.com/schustan/TypeCNN/datasets"
	"github.com/schustan/TypeCNN/persist"
)

// Model is the slice of the engine the orchestrator drives. *cnn.Network
// satisfies it.
type Model interface {
	Run(input []float32) ([]float32, error)
	Train(settings cnn.TrainingSettings, train datasets.Dataset, loss cnn.LossFunction, opt cnn.Optimizer, validation datasets.Dataset) error
	Validate(ds datasets.Dataset) (cnn.ValidationResult, error)
	InputSize() datasets.Dimensions
	OutputSize() datasets.Dimensions
	SetEpochListener(l cnn.EpochListener)
}

// Saver persists the current network state to a path. The checkpoint policy
// and the final save both go through it.
type Saver interface {
	DumpNetwork(path string) error
}

// NetworkSaver saves a concrete network as a JSON description.
type NetworkSaver struct {
	Net *cnn.Network
}

func (s NetworkSaver) DumpNetwork(path string) error {
	return persist.DumpNetwork(s.Net, path)
}

// EmptyDatasetError reports that a mode was requested but its resolved
// dataset contains no samples.
type EmptyDatasetError struct {
	Subject string
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("no data to %s on, dataset empty", e.Subject)
}

// Orchestrator runs the configured modes against a model.
type Orchestrator struct {
	Model Model
	Saver Saver

	// CNNPath is where checkpoints and the final network state are written.
	CNNPath     string
	SaveWeights bool
	KeepBest    bool
	Grayscale   bool
	PlotPath    string

	Out io.Writer
	Err io.Writer
}

func (o *Orchestrator) printf(format string, args ...any) {
	if o.Out != nil {
		fmt.Fprintf(o.Out, format, args...)
	}
}

func (o *Orchestrator) errorf(format string, args ...any) {
	if o.Err != nil {
		fmt.Fprintf(o.Err, format, args...)
	}
}

// Execute runs the modes selected by cfg. When both training and validation
// are requested, training runs first and a standalone validation pass only
// happens if training succeeded. With periodic validation the per-epoch
// passes already cover the validation set, so no extra pass runs.
func (o *Orchestrator) Execute(cfg *RunConfig) error {
	if cfg.Inference {
		return o.RunInference(cfg.InferencePath)
	}

	resolver := &datasets.Resolver{
		Grayscale: cfg.Grayscale,
		Logf: func(format string, args ...any) {
			o.errorf(format+"\n", args...)
		},
	}
	validation, err := resolver.Resolve(cfg.ValidationFiles, o.Model.InputSize(), o.Model.OutputSize(), cfg.ValidationOffset, cfg.ValidationNum)
	if err != nil {
		return err
	}
	training, err := resolver.Resolve(cfg.TrainingFiles, o.Model.InputSize(), o.Model.OutputSize(), cfg.TrainingOffset, cfg.TrainingNum)
	if err != nil {
		return err
	}

	var trainErr error
	if cfg.Training {
		trainErr = o.trainFromConfig(cfg, training, validation)
	}

	if cfg.Validation && !cfg.Settings.PeriodicValidation {
		if trainErr != nil {
			o.errorf("Problems occurred during training, skipping validation.\n")
			return trainErr
		}
		return o.RunValidation(validation)
	}
	return trainErr
}

func (o *Orchestrator) trainFromConfig(cfg *RunConfig, training, validation datasets.Dataset) error {
	opt, err := cnn.OptimizerByName(cfg.OptimizerName, cfg.LearningRate, cfg.WeightDecay)
	if err != nil {
		return err
	}
	loss, err := cnn.LossByName(cfg.LossName)
	if err != nil {
		return err
	}
	return o.RunTraining(training, cfg.Settings, opt, loss, validation)
}

// RunInference decodes a single image, runs the forward pass and prints the
// raw outputs together with the strongest class.
func (o *Orchestrator) RunInference(imagePath string) error {
	input, err := datasets.ParseImage(imagePath, o.Grayscale)
	if err != nil {
		return err
	}
	outputs, err := o.Model.Run(input)
	if err != nil {
		return err
	}
	o.printf("Output:\n")
	best := 0
	for i, v := range outputs {
		o.printf("  %d: %f\n", i, v)
		if v > outputs[best] {
			best = i
		}
	}
	o.printf("Predicted class: %d\n", best)
	return nil
}

// RunTraining trains the model on the resolved dataset. When keep-best is
// active the final state is not written again; the checkpoint policy has
// already persisted the best epoch.
func (o *Orchestrator) RunTraining(training datasets.Dataset, settings cnn.TrainingSettings, opt cnn.Optimizer, loss cnn.LossFunction, validation datasets.Dataset) error {
	if training.Empty() {
		return &EmptyDatasetError{Subject: "train"}
	}

	var listeners []cnn.EpochListener
	if o.KeepBest {
		listeners = append(listeners, NewCheckpointPolicy(o.Saver, o.CNNPath, o.Err))
	}
	var recorder *curveRecorder
	if o.PlotPath != "" {
		recorder = &curveRecorder{}
		listeners = append(listeners, recorder)
	}
	if len(listeners) > 0 {
		o.Model.SetEpochListener(fanoutListener(listeners))
	}

	if err := o.Model.Train(settings, training, loss, opt, validation); err != nil {
		return err
	}

	if recorder != nil {
		if err := recorder.SavePlot(o.PlotPath); err != nil {
			o.errorf("Could not save training plot.\n  Reason: %v\n", err)
		}
	}

	if o.SaveWeights && !o.KeepBest {
		if err := o.Saver.DumpNetwork(o.CNNPath); err != nil {
			return err
		}
	}
	return nil
}

// RunValidation runs a single validation pass over the resolved dataset.
func (o *Orchestrator) RunValidation(validation datasets.Dataset) error {
	if validation.Empty() {
		return &EmptyDatasetError{Subject: "validate"}
	}
	_, err := o.Model.Validate(validation)
	return err
}
