package cnn

import (
	"math"
	"testing"
)

func TestOptimizerByName(t *testing.T) {
	for _, name := range []string{"sgd", "sgdm", "sgdn", "adam", "adagrad"} {
		opt, err := OptimizerByName(name, 0.01, 0)
		if err != nil {
			t.Fatalf("OptimizerByName(%q) error: %v", name, err)
		}
		if opt.Name() != name {
			t.Errorf("optimizer %q reports name %q", name, opt.Name())
		}
	}
	if _, err := OptimizerByName("lbfgs", 0.01, 0); err == nil {
		t.Fatal("expected error for unknown optimizer")
	}
}

func TestSgdStep(t *testing.T) {
	opt := &Sgd{LearningRate: 0.1}
	params := [][]float32{{1, -2}}
	grads := [][]float32{{0.5, -0.5}}
	opt.Step(params, grads)
	if math.Abs(float64(params[0][0])-0.95) > 1e-6 || math.Abs(float64(params[0][1])+1.95) > 1e-6 {
		t.Fatalf("params after step = %v, want [0.95 -1.95]", params[0])
	}
}

func TestSgdWeightDecayPullsTowardZero(t *testing.T) {
	opt := &Sgd{LearningRate: 0.1, WeightDecay: 0.5}
	params := [][]float32{{1}}
	grads := [][]float32{{0}}
	opt.Step(params, grads)
	if !(params[0][0] < 1 && params[0][0] > 0) {
		t.Fatalf("decay-only step = %v, want value shrunk toward zero", params[0][0])
	}
}

// descend runs the optimizer on f(x) = x^2 and reports the final |x|.
func descend(t *testing.T, opt Optimizer, steps int) float32 {
	t.Helper()
	params := [][]float32{{2}}
	grads := [][]float32{{0}}
	for i := 0; i < steps; i++ {
		grads[0][0] = 2 * params[0][0]
		opt.Step(params, grads)
	}
	return float32(math.Abs(float64(params[0][0])))
}

func TestOptimizersMinimizeQuadratic(t *testing.T) {
	for _, name := range []string{"sgd", "sgdm", "sgdn", "adam", "adagrad"} {
		opt, err := OptimizerByName(name, 0.05, 0)
		if err != nil {
			t.Fatal(err)
		}
		final := descend(t, opt, 200)
		t.Logf("%s: |x| after 200 steps = %v", name, final)
		if final >= 2 {
			t.Errorf("%s did not move toward the minimum: |x| = %v", name, final)
		}
		if math.IsNaN(float64(final)) || math.IsInf(float64(final), 0) {
			t.Errorf("%s diverged: %v", name, final)
		}
	}
}

func TestAdamStateIsPerInstance(t *testing.T) {
	a := &Adam{LearningRate: 0.1, Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-8}
	b := &Adam{LearningRate: 0.1, Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-8}

	paramsA := [][]float32{{1}}
	paramsB := [][]float32{{1}}
	grads := [][]float32{{1}}

	for i := 0; i < 3; i++ {
		a.Step(paramsA, grads)
	}
	b.Step(paramsB, grads)

	// a has accumulated three moments, b only one; a fresh instance must not
	// have inherited the other's state.
	if a.t != 3 || b.t != 1 {
		t.Fatalf("step counters a=%d b=%d, want 3 and 1", a.t, b.t)
	}
}
