package run

import (
	"fmt"
	"io"

	"github.com/schustan/TypeCNN/cnn"
)

// CheckpointPolicy saves the network whenever the per-epoch validation
// accuracy strictly improves on the best value seen so far. The baseline
// starts below zero so the first measured epoch is always persisted.
type CheckpointPolicy struct {
	saver Saver
	path  string
	errw  io.Writer

	best  float32
	saves int
}

func NewCheckpointPolicy(saver Saver, path string, errw io.Writer) *CheckpointPolicy {
	return &CheckpointPolicy{saver: saver, path: path, errw: errw, best: -1}
}

func (p *CheckpointPolicy) OnEpochFinished(epoch int, settings *cnn.TrainingSettings, trainErr, accuracy, avgLoss float32) {
	if accuracy <= p.best {
		return
	}
	p.best = accuracy
	if err := p.saver.DumpNetwork(p.path); err != nil {
		if p.errw != nil {
			fmt.Fprintf(p.errw, "Could not save network to disk.\n  Reason: %v\n", err)
		}
		return
	}
	p.saves++
}

// Best returns the highest accuracy observed so far, or a negative value
// before the first epoch.
func (p *CheckpointPolicy) Best() float32 { return p.best }

// Saves returns how many checkpoints were successfully written.
func (p *CheckpointPolicy) Saves() int { return p.saves }
