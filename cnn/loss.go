package cnn

import (
	"math"

	"github.com/pkg/errors"
)

// LossFunction is the scalar training objective. Gradient writes the
// derivative of the loss with respect to the network outputs into grad,
// which has the same length as pred.
type LossFunction interface {
	Loss(pred, target []float32) float32
	Gradient(pred, target []float32, grad []float32)
	Name() string
}

// LossByName constructs the loss function selected on the command line.
// Valid names are MSE, CE and CEbin.
func LossByName(name string) (LossFunction, error) {
	switch name {
	case "MSE":
		return MeanSquaredError{}, nil
	case "CE":
		return CrossEntropy{}, nil
	case "CEbin":
		return BinaryCrossEntropy{}, nil
	default:
		return nil, errors.Errorf("unknown loss function %q (want MSE|CE|CEbin)", name)
	}
}

// MeanSquaredError is the mean of squared differences over the output
// vector.
type MeanSquaredError struct{}

func (MeanSquaredError) Loss(pred, target []float32) float32 {
	var sum float32
	for i := range pred {
		d := pred[i] - target[i]
		sum += d * d
	}
	return sum / float32(len(pred))
}

func (MeanSquaredError) Gradient(pred, target []float32, grad []float32) {
	scale := 2 / float32(len(pred))
	for i := range pred {
		grad[i] = scale * (pred[i] - target[i])
	}
}

func (MeanSquaredError) Name() string { return "MSE" }

// CrossEntropy is softmax cross-entropy over the raw network outputs
// (logits). The softmax is part of the loss, so the last network layer
// stays linear.
type CrossEntropy struct{}

func softmax(logits []float32) []float32 {
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	out := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - max))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

func (CrossEntropy) Loss(pred, target []float32) float32 {
	q := softmax(pred)
	var sum float64
	for i := range q {
		if target[i] > 0 {
			sum -= float64(target[i]) * math.Log(float64(q[i])+1e-12)
		}
	}
	return float32(sum)
}

func (CrossEntropy) Gradient(pred, target []float32, grad []float32) {
	q := softmax(pred)
	for i := range q {
		grad[i] = q[i] - target[i]
	}
}

func (CrossEntropy) Name() string { return "CE" }

// BinaryCrossEntropy applies an elementwise sigmoid to the raw outputs and
// averages the binary cross-entropy over the output vector.
type BinaryCrossEntropy struct{}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

func (BinaryCrossEntropy) Loss(pred, target []float32) float32 {
	var sum float64
	for i := range pred {
		q := float64(sigmoid(pred[i]))
		t := float64(target[i])
		sum -= t*math.Log(q+1e-12) + (1-t)*math.Log(1-q+1e-12)
	}
	return float32(sum / float64(len(pred)))
}

func (BinaryCrossEntropy) Gradient(pred, target []float32, grad []float32) {
	scale := 1 / float32(len(pred))
	for i := range pred {
		grad[i] = scale * (sigmoid(pred[i]) - target[i])
	}
}

func (BinaryCrossEntropy) Name() string { return "CEbin" }
