package cnn

import (
	"fmt"
	"io"
	"math"
)

// The engine keeps three internal numeric representations: activations
// flowing forward, gradients flowing backward, and stored weights. They
// are all float32 in this implementation, but the report keeps the three
// sections so their bounds stay visible independently.
type (
	ForwardType  = float32
	BackwardType = float32
	WeightType   = float32
)

const float32Epsilon = 1.1920928955078125e-07

// WriteTypeInfo prints the minimum, maximum and epsilon of each internal
// numeric representation.
func WriteTypeInfo(w io.Writer) {
	section := func(name string) {
		fmt.Fprintf(w, "=== %s ===\n", name)
		fmt.Fprintf(w, "Min: %.30g\n", -math.MaxFloat32)
		fmt.Fprintf(w, "Max: %.30g\n", math.MaxFloat32)
		fmt.Fprintf(w, "Eps: %.30g\n", float32Epsilon)
	}
	section("ForwardType")
	section("BackwardType")
	section("WeightType")
	fmt.Fprintln(w)
}
