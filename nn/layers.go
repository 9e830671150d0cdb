package nn

import (
	"fmt"
	"math"
)

type (
	// Layer transforms a feature tensor of shape [positions, channels].
	Layer interface {
		Forward(x *Tensor) *Tensor
	}

	// Activation is an elementwise nonlinearity.
	Activation func(float64) float64

	// NormFactory builds a normalization layer for the given channel count.
	NormFactory func(dim int) Layer

	// Pooling reduces [positions, channels] to [1, channels].
	Pooling func(x *Tensor) *Tensor
)

// Identity passes its input through unchanged.
type Identity struct{}

func (Identity) Forward(x *Tensor) *Tensor { return x }

// Linear is a fully connected layer.
type Linear struct {
	W *Tensor // [in, out]
	B *Tensor // [1, out]
}

func NewLinear(in, out int) *Linear {
	return &Linear{
		W: NewTensorRand(in, out),
		B: NewTensor(1, out),
	}
}

func (l *Linear) Forward(x *Tensor) *Tensor {
	out := x.MatMul(l.W)
	rows, cols := out.shape[0], out.shape[1]
	for i := range rows {
		for j := range cols {
			out.data[i*cols+j] += l.B.data[j]
		}
	}
	return out
}

// ActLayer applies an Activation as a Layer.
type ActLayer struct {
	Fn Activation
}

func (a *ActLayer) Forward(x *Tensor) *Tensor {
	if a.Fn == nil {
		return x
	}
	return x.Apply(a.Fn)
}

// BatchNorm normalizes each channel with running statistics.
//
// Sync marks the layer for cross-process statistic reduction during
// training; NaiveSync additionally marks the unfused fallback reduction.
// Neither changes the inference path. Frozen pins the running stats.
type BatchNorm struct {
	Gamma, Beta             *Tensor // [1, dim]
	RunningMean, RunningVar *Tensor // [1, dim]
	Momentum, Eps           float64
	Sync, NaiveSync, Frozen bool
}

func NewBatchNorm(dim int) *BatchNorm {
	bn := &BatchNorm{
		Gamma:       NewTensor(1, dim),
		Beta:        NewTensor(1, dim),
		RunningMean: NewTensor(1, dim),
		RunningVar:  NewTensor(1, dim),
		Momentum:    0.1,
		Eps:         1e-5,
	}
	for i := range dim {
		bn.Gamma.data[i] = 1
		bn.RunningVar.data[i] = 1
	}
	return bn
}

func (bn *BatchNorm) Forward(x *Tensor) *Tensor {
	rows, cols := x.shape[0], x.shape[1]
	if cols != bn.Gamma.shape[1] {
		panic(fmt.Sprintf("nn: BatchNorm channel mismatch: %d vs %d", cols, bn.Gamma.shape[1]))
	}
	out := NewTensor(rows, cols)
	for j := range cols {
		inv := 1 / math.Sqrt(bn.RunningVar.data[j]+bn.Eps)
		for i := range rows {
			out.data[i*cols+j] = (x.data[i*cols+j]-bn.RunningMean.data[j])*inv*bn.Gamma.data[j] + bn.Beta.data[j]
		}
	}
	return out
}

// LayerNorm normalizes each position over its channels.
type LayerNorm struct {
	Gamma, Beta *Tensor // [1, dim]
	Eps         float64
}

func NewLayerNorm(dim int) *LayerNorm {
	ln := &LayerNorm{
		Gamma: NewTensor(1, dim),
		Beta:  NewTensor(1, dim),
		Eps:   1e-5,
	}
	for i := range dim {
		ln.Gamma.data[i] = 1
	}
	return ln
}

func (ln *LayerNorm) Forward(x *Tensor) *Tensor {
	rows, cols := x.shape[0], x.shape[1]
	out := NewTensor(rows, cols)
	for i := range rows {
		row := x.data[i*cols : (i+1)*cols]

		mean := 0.0
		for _, v := range row {
			mean += v
		}
		mean /= float64(cols)

		variance := 0.0
		for _, v := range row {
			d := v - mean
			variance += d * d
		}
		variance /= float64(cols)

		inv := 1 / math.Sqrt(variance+ln.Eps)
		for j, v := range row {
			out.data[i*cols+j] = (v-mean)*inv*ln.Gamma.data[j] + ln.Beta.data[j]
		}
	}
	return out
}

// GroupNorm normalizes each position over channel groups.
type GroupNorm struct {
	Groups      int
	Gamma, Beta *Tensor // [1, dim]
	Eps         float64
}

func NewGroupNorm(groups, dim int) *GroupNorm {
	if dim%groups != 0 {
		panic(fmt.Sprintf("nn: GroupNorm dim %d not divisible by groups %d", dim, groups))
	}
	gn := &GroupNorm{
		Groups: groups,
		Gamma:  NewTensor(1, dim),
		Beta:   NewTensor(1, dim),
		Eps:    1e-5,
	}
	for i := range dim {
		gn.Gamma.data[i] = 1
	}
	return gn
}

func (gn *GroupNorm) Forward(x *Tensor) *Tensor {
	rows, cols := x.shape[0], x.shape[1]
	groupSize := cols / gn.Groups
	out := NewTensor(rows, cols)
	for i := range rows {
		for g := range gn.Groups {
			lo, hi := g*groupSize, (g+1)*groupSize
			seg := x.data[i*cols+lo : i*cols+hi]

			mean := 0.0
			for _, v := range seg {
				mean += v
			}
			mean /= float64(groupSize)

			variance := 0.0
			for _, v := range seg {
				d := v - mean
				variance += d * d
			}
			variance /= float64(groupSize)

			inv := 1 / math.Sqrt(variance+gn.Eps)
			for j, v := range seg {
				col := lo + j
				out.data[i*cols+col] = (v-mean)*inv*gn.Gamma.data[col] + gn.Beta.data[col]
			}
		}
	}
	return out
}

// Dropout zeroes activations during training. Inference is identity,
// the rate is carried for checkpoint compatibility.
type Dropout struct {
	Rate float64
}

func (d *Dropout) Forward(x *Tensor) *Tensor { return x }

// DropPath is stochastic depth over residual branches. Inference is
// identity, the rate only matters under training.
type DropPath struct {
	Rate float64
}

func (d *DropPath) Forward(x *Tensor) *Tensor { return x }

// Pooling implementations.

// AvgPool averages over positions.
func AvgPool(x *Tensor) *Tensor {
	rows, cols := x.shape[0], x.shape[1]
	out := NewTensor(1, cols)
	for j := range cols {
		sum := 0.0
		for i := range rows {
			sum += x.data[i*cols+j]
		}
		out.data[j] = sum / float64(rows)
	}
	return out
}

// MaxPool takes the maximum over positions.
func MaxPool(x *Tensor) *Tensor {
	rows, cols := x.shape[0], x.shape[1]
	out := NewTensor(1, cols)
	for j := range cols {
		best := math.Inf(-1)
		for i := range rows {
			if v := x.data[i*cols+j]; v > best {
				best = v
			}
		}
		out.data[j] = best
	}
	return out
}

// AvgMaxPool averages the avg and max pools.
func AvgMaxPool(x *Tensor) *Tensor {
	return AvgPool(x).Add(MaxPool(x)).Scale(0.5)
}
