package cnn

import (
	"github.com/schustan/TypeCNN/datasets"
)

// Train runs the full training loop: mini-batch gradient accumulation, an
// optimizer step per batch, optional shuffling per epoch, and periodic
// validation. The installed EpochListener is invoked synchronously at every
// epoch boundary; it blocks the loop until it returns.
func (n *Network) Train(settings TrainingSettings, train datasets.Dataset, loss LossFunction,
	opt Optimizer, validation datasets.Dataset) error {

	if train.Empty() {
		return domainErrorf("no data to train on, dataset empty")
	}
	if loss == nil || opt == nil {
		return domainErrorf("training needs a loss function and an optimizer")
	}
	inDim := n.input.Flat()
	outDim := n.OutputSize().Flat()
	for i := range train {
		if len(train[i].Input) != inDim {
			return domainErrorf("training sample %d has %d inputs, network expects %s", i, len(train[i].Input), n.input)
		}
		if len(train[i].Label) != outDim {
			return domainErrorf("training sample %d label has %d elements, network outputs %d", i, len(train[i].Label), outDim)
		}
	}

	epochs := settings.Epochs
	if epochs == 0 {
		epochs = 1
	}
	batchSize := int(settings.BatchSize)
	if batchSize <= 0 {
		batchSize = 1
	}

	params, grads := n.parameterViews()

	if settings.PeriodicValidation && !validation.Empty() {
		if _, err := n.Validate(validation); err != nil {
			return err
		}
	}

	indices := make([]int, len(train))
	for i := range indices {
		indices[i] = i
	}

	for epoch := 0; epoch < int(epochs); epoch++ {
		if settings.Shuffle {
			n.rng.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}

		var epochLoss float64
		var windowLoss float64
		var windowSeen uint

		for start := 0; start < len(indices); start += batchSize {
			end := start + batchSize
			if end > len(indices) {
				end = len(indices)
			}
			batch := indices[start:end]

			zeroAll(grads)
			for _, idx := range batch {
				sample := train[idx]
				pres, acts, err := n.forward(sample.Input)
				if err != nil {
					return err
				}
				out := acts[len(acts)-1]
				sampleLoss := float64(loss.Loss(out, sample.Label))
				epochLoss += sampleLoss
				windowLoss += sampleLoss
				windowSeen++

				delta := make([]float32, len(out))
				loss.Gradient(out, sample.Label, delta)
				n.accumulate(pres, acts, delta, grads)

				if settings.ErrorOutputRate > 0 && windowSeen >= settings.ErrorOutputRate {
					n.printf("Epoch %d: average error over last %d samples: %f\n",
						epoch, windowSeen, windowLoss/float64(windowSeen))
					windowLoss = 0
					windowSeen = 0
				}
			}
			scaleAll(grads, 1/float32(len(batch)))
			opt.Step(params, grads)
		}

		trainErr := float32(epochLoss / float64(len(train)))

		accuracy := float32(-1)
		avgLoss := float32(-1)
		if settings.PeriodicValidation && !validation.Empty() {
			res, err := n.Validate(validation)
			if err != nil {
				return err
			}
			accuracy = res.Accuracy
			avgLoss = res.AvgError
		}

		n.printf("Epoch %d finished, average training error %f\n", epoch, trainErr)
		if n.listener != nil {
			n.listener.OnEpochFinished(epoch, &settings, trainErr, accuracy, avgLoss)
		}
	}
	return nil
}

// parameterViews exposes the trainable parameters as a flat list (weight
// matrix then bias vector per layer) plus matching gradient buffers.
func (n *Network) parameterViews() (params, grads [][]float32) {
	for l := range n.specs {
		params = append(params, n.weights[l], n.biases[l])
		grads = append(grads, make([]float32, len(n.weights[l])), make([]float32, len(n.biases[l])))
	}
	return params, grads
}

// accumulate backpropagates the output delta of one sample and adds the
// resulting gradients into grads (laid out as in parameterViews).
func (n *Network) accumulate(pres, acts [][]float32, delta []float32, grads [][]float32) {
	for l := len(n.specs) - 1; l >= 0; l-- {
		pre := pres[l]
		act := acts[l+1]
		in := acts[l]
		spec := n.specs[l]
		for j := range delta {
			delta[j] *= spec.Activation.derivative(pre[j], act[j])
		}
		gw := grads[2*l]
		gb := grads[2*l+1]
		inDim := len(in)
		for j, dj := range delta {
			gb[j] += dj
			row := gw[j*inDim : (j+1)*inDim]
			for i, x := range in {
				row[i] += dj * x
			}
		}
		if l > 0 {
			w := n.weights[l]
			next := make([]float32, inDim)
			for i := 0; i < inDim; i++ {
				var sum float32
				for j, dj := range delta {
					sum += w[j*inDim+i] * dj
				}
				next[i] = sum
			}
			delta = next
		}
	}
}

func zeroAll(vs [][]float32) {
	for _, v := range vs {
		for i := range v {
			v[i] = 0
		}
	}
}

func scaleAll(vs [][]float32, s float32) {
	for _, v := range vs {
		for i := range v {
			v[i] *= s
		}
	}
}
