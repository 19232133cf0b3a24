package cnn

import (
	"math"

	"github.com/pkg/errors"
)

// Optimizer applies one gradient step to the network parameters. Params
// and grads are parallel lists of parameter vectors (see parameterViews);
// optimizers with per-parameter state allocate it lazily on first use.
type Optimizer interface {
	Step(params, grads [][]float32)
	Name() string
}

// OptimizerByName constructs the optimizer selected on the command line.
// Valid names are sgd, sgdm, sgdn, adam and adagrad.
func OptimizerByName(name string, learningRate, weightDecay float32) (Optimizer, error) {
	switch name {
	case "sgd":
		return &Sgd{LearningRate: learningRate, WeightDecay: weightDecay}, nil
	case "sgdm":
		return &SgdMomentum{LearningRate: learningRate, WeightDecay: weightDecay, Momentum: 0.9}, nil
	case "sgdn":
		return &SgdNesterov{LearningRate: learningRate, WeightDecay: weightDecay, Momentum: 0.9}, nil
	case "adam":
		return &Adam{LearningRate: learningRate, WeightDecay: weightDecay, Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-8}, nil
	case "adagrad":
		return &Adagrad{LearningRate: learningRate, WeightDecay: weightDecay, Epsilon: 1e-8}, nil
	default:
		return nil, errors.Errorf("unknown optimizer %q (want sgd|sgdm|sgdn|adam|adagrad)", name)
	}
}

func likeParams(params [][]float32) [][]float32 {
	out := make([][]float32, len(params))
	for i, p := range params {
		out[i] = make([]float32, len(p))
	}
	return out
}

// Sgd is plain stochastic gradient descent.
type Sgd struct {
	LearningRate float32
	WeightDecay  float32
}

func (s *Sgd) Step(params, grads [][]float32) {
	for i, p := range params {
		g := grads[i]
		for j := range p {
			p[j] -= s.LearningRate * (g[j] + s.WeightDecay*p[j])
		}
	}
}

func (s *Sgd) Name() string { return "sgd" }

// SgdMomentum is SGD with classical momentum.
type SgdMomentum struct {
	LearningRate float32
	WeightDecay  float32
	Momentum     float32

	velocity [][]float32
}

func (s *SgdMomentum) Step(params, grads [][]float32) {
	if s.velocity == nil {
		s.velocity = likeParams(params)
	}
	for i, p := range params {
		g := grads[i]
		v := s.velocity[i]
		for j := range p {
			grad := g[j] + s.WeightDecay*p[j]
			v[j] = s.Momentum*v[j] + grad
			p[j] -= s.LearningRate * v[j]
		}
	}
}

func (s *SgdMomentum) Name() string { return "sgdm" }

// SgdNesterov is SGD with Nesterov-accelerated momentum.
type SgdNesterov struct {
	LearningRate float32
	WeightDecay  float32
	Momentum     float32

	velocity [][]float32
}

func (s *SgdNesterov) Step(params, grads [][]float32) {
	if s.velocity == nil {
		s.velocity = likeParams(params)
	}
	for i, p := range params {
		g := grads[i]
		v := s.velocity[i]
		for j := range p {
			grad := g[j] + s.WeightDecay*p[j]
			v[j] = s.Momentum*v[j] + grad
			p[j] -= s.LearningRate * (grad + s.Momentum*v[j])
		}
	}
}

func (s *SgdNesterov) Name() string { return "sgdn" }

// Adam is adaptive moment estimation.
type Adam struct {
	LearningRate float32
	WeightDecay  float32
	Beta1        float32
	Beta2        float32
	Epsilon      float32

	m, v [][]float32
	t    int
}

func (a *Adam) Step(params, grads [][]float32) {
	if a.m == nil {
		a.m = likeParams(params)
		a.v = likeParams(params)
	}
	a.t++
	bc1 := 1 - float32(math.Pow(float64(a.Beta1), float64(a.t)))
	bc2 := 1 - float32(math.Pow(float64(a.Beta2), float64(a.t)))
	for i, p := range params {
		g := grads[i]
		m := a.m[i]
		v := a.v[i]
		for j := range p {
			grad := g[j] + a.WeightDecay*p[j]
			m[j] = a.Beta1*m[j] + (1-a.Beta1)*grad
			v[j] = a.Beta2*v[j] + (1-a.Beta2)*grad*grad
			mHat := m[j] / bc1
			vHat := v[j] / bc2
			p[j] -= a.LearningRate * mHat / (float32(math.Sqrt(float64(vHat))) + a.Epsilon)
		}
	}
}

func (a *Adam) Name() string { return "adam" }

// Adagrad accumulates squared gradients to scale the step per parameter.
type Adagrad struct {
	LearningRate float32
	WeightDecay  float32
	Epsilon      float32

	accum [][]float32
}

func (a *Adagrad) Step(params, grads [][]float32) {
	if a.accum == nil {
		a.accum = likeParams(params)
	}
	for i, p := range params {
		g := grads[i]
		acc := a.accum[i]
		for j := range p {
			grad := g[j] + a.WeightDecay*p[j]
			acc[j] += grad * grad
			p[j] -= a.LearningRate * grad / (float32(math.Sqrt(float64(acc[j]))) + a.Epsilon)
		}
	}
}

func (a *Adagrad) Name() string { return "adagrad" }
