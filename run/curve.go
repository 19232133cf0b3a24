package run

import (
	"image/color"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/schustan/TypeCNN/cnn"
)

// fanoutListener forwards every epoch notification to all listeners in
// order. The checkpoint policy comes first so a checkpoint is written
// before anything else reacts to the epoch.
type fanoutListener []cnn.EpochListener

func (f fanoutListener) OnEpochFinished(epoch int, settings *cnn.TrainingSettings, trainErr, accuracy, avgLoss float32) {
	for _, l := range f {
		l.OnEpochFinished(epoch, settings, trainErr, accuracy, avgLoss)
	}
}

// curveRecorder collects per-epoch training error and validation accuracy
// for the --plot output. Negative sentinel values mean no validation ran
// that epoch and are skipped.
type curveRecorder struct {
	trainErr plotter.XYs
	accuracy plotter.XYs
}

func (r *curveRecorder) OnEpochFinished(epoch int, settings *cnn.TrainingSettings, trainErr, accuracy, avgLoss float32) {
	if trainErr >= 0 {
		r.trainErr = append(r.trainErr, plotter.XY{X: float64(epoch), Y: float64(trainErr)})
	}
	if accuracy >= 0 {
		r.accuracy = append(r.accuracy, plotter.XY{X: float64(epoch), Y: float64(accuracy)})
	}
}

// SavePlot writes the collected curves as a PNG.
func (r *curveRecorder) SavePlot(path string) error {
	p := plot.New()
	p.Title.Text = "Training progress"
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = "Error / Accuracy"

	if len(r.trainErr) > 0 {
		line, err := plotter.NewLine(r.trainErr)
		if err != nil {
			return errors.Wrap(err, "training error line")
		}
		line.Color = color.RGBA{B: 255, A: 255}
		p.Add(line)
		p.Legend.Add("training error", line)
	}
	if len(r.accuracy) > 0 {
		line, err := plotter.NewLine(r.accuracy)
		if err != nil {
			return errors.Wrap(err, "accuracy line")
		}
		line.Color = color.RGBA{R: 255, A: 255}
		p.Add(line)
		p.Legend.Add("validation accuracy", line)
	}
	p.Add(plotter.NewGrid())

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}
