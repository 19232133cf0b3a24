package run

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

// countingSaver records every dump and can be told to fail.
type countingSaver struct {
	paths []string
	fail  bool
}

func (s *countingSaver) DumpNetwork(path string) error {
	if s.fail {
		return errors.Errorf("disk full")
	}
	s.paths = append(s.paths, path)
	return nil
}

func TestCheckpointPolicySavesOnImprovement(t *testing.T) {
	saver := &countingSaver{}
	p := NewCheckpointPolicy(saver, "net.json", nil)

	for epoch, acc := range []float32{0.10, 0.25, 0.60} {
		p.OnEpochFinished(epoch, nil, 0.5, acc, 0.5)
	}
	if p.Saves() != 3 {
		t.Fatalf("saves = %d, want 3 (every epoch improved)", p.Saves())
	}
	if p.Best() != 0.60 {
		t.Errorf("best = %v, want 0.60", p.Best())
	}
	for _, path := range saver.paths {
		if path != "net.json" {
			t.Errorf("saved to %q, want net.json", path)
		}
	}
}

func TestCheckpointPolicyIgnoresTiesAndRegressions(t *testing.T) {
	saver := &countingSaver{}
	p := NewCheckpointPolicy(saver, "net.json", nil)

	for epoch, acc := range []float32{0.60, 0.60, 0.55} {
		p.OnEpochFinished(epoch, nil, 0.5, acc, 0.5)
	}
	if p.Saves() != 1 {
		t.Fatalf("saves = %d, want 1 (only the first epoch improved)", p.Saves())
	}
	if p.Best() != 0.60 {
		t.Errorf("best = %v, want 0.60", p.Best())
	}
}

func TestCheckpointPolicyFirstEpochAlwaysSaves(t *testing.T) {
	saver := &countingSaver{}
	p := NewCheckpointPolicy(saver, "net.json", nil)

	// even zero accuracy beats the initial baseline
	p.OnEpochFinished(0, nil, 0.5, 0, 0.5)
	if p.Saves() != 1 {
		t.Fatalf("saves = %d, want 1", p.Saves())
	}
}

func TestCheckpointPolicyReportsFailedDump(t *testing.T) {
	saver := &countingSaver{fail: true}
	var stderr bytes.Buffer
	p := NewCheckpointPolicy(saver, "net.json", &stderr)

	p.OnEpochFinished(0, nil, 0.5, 0.4, 0.5)
	if p.Saves() != 0 {
		t.Fatalf("saves = %d, want 0", p.Saves())
	}
	if !strings.Contains(stderr.String(), "Could not save network") {
		t.Errorf("missing diagnostic, got %q", stderr.String())
	}
	// best still advances so a later equal accuracy does not retrigger
	if p.Best() != 0.4 {
		t.Errorf("best = %v, want 0.4", p.Best())
	}
}

func TestCheckpointPoliciesAreIndependent(t *testing.T) {
	saverA := &countingSaver{}
	saverB := &countingSaver{}
	a := NewCheckpointPolicy(saverA, "a.json", nil)
	b := NewCheckpointPolicy(saverB, "b.json", nil)

	a.OnEpochFinished(0, nil, 0.5, 0.9, 0.5)
	// b has its own baseline; a's high accuracy must not suppress b's save
	b.OnEpochFinished(0, nil, 0.5, 0.1, 0.5)

	if len(saverA.paths) != 1 || len(saverB.paths) != 1 {
		t.Fatalf("saves a=%d b=%d, want 1 each", len(saverA.paths), len(saverB.paths))
	}
}
