package nn

import (
	"fmt"
	"math"
	"math/rand"
)

// Tensor is a multi-dimensional array of float64 values stored in
// row-major order. Shape errors are programmer bugs and panic.
//
// Tensor is not safe for concurrent use.
type Tensor struct {
	data  []float64
	shape []int
}

// NewTensor creates a tensor with the given shape, initialized to zero.
func NewTensor(shape ...int) *Tensor {
	if len(shape) == 0 {
		panic("nn: shape cannot be empty")
	}

	size := 1
	for i, dim := range shape {
		if dim <= 0 {
			panic(fmt.Sprintf("nn: shape[%d] must be positive, got %d", i, dim))
		}
		size *= dim
	}

	shapeCopy := make([]int, len(shape))
	copy(shapeCopy, shape)

	return &Tensor{
		data:  make([]float64, size),
		shape: shapeCopy,
	}
}

// NewTensorRand creates a tensor with values drawn uniformly from [-s, s],
// where s scales inversely with the fan-in dimension.
func NewTensorRand(shape ...int) *Tensor {
	t := NewTensor(shape...)
	scale := math.Sqrt(1.0 / float64(shape[len(shape)-1]))
	for i := range t.data {
		t.data[i] = (rand.Float64()*2 - 1) * scale
	}
	return t
}

// Shape returns a copy of the tensor's shape.
func (t *Tensor) Shape() []int {
	shape := make([]int, len(t.shape))
	copy(shape, t.shape)
	return shape
}

// Size returns the total number of elements.
func (t *Tensor) Size() int {
	return len(t.data)
}

// Data exposes the flat backing slice. Mutations are visible to the tensor.
func (t *Tensor) Data() []float64 {
	return t.data
}

func (t *Tensor) index(indices ...int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("nn: expected %d indices, got %d", len(t.shape), len(indices)))
	}
	idx := 0
	for i, n := range indices {
		if n < 0 || n >= t.shape[i] {
			panic(fmt.Sprintf("nn: index %d out of range for dim %d (size %d)", n, i, t.shape[i]))
		}
		idx = idx*t.shape[i] + n
	}
	return idx
}

// At returns the element at the given indices.
func (t *Tensor) At(indices ...int) float64 {
	return t.data[t.index(indices...)]
}

// Set stores value at the given indices.
func (t *Tensor) Set(value float64, indices ...int) {
	t.data[t.index(indices...)] = value
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	c := NewTensor(t.shape...)
	copy(c.data, t.data)
	return c
}

// MatMul multiplies two 2-D tensors.
func (t *Tensor) MatMul(other *Tensor) *Tensor {
	if len(t.shape) != 2 || len(other.shape) != 2 {
		panic("nn: MatMul requires 2-D tensors")
	}
	m, k := t.shape[0], t.shape[1]
	k2, n := other.shape[0], other.shape[1]
	if k != k2 {
		panic(fmt.Sprintf("nn: MatMul shape mismatch: (%d,%d) x (%d,%d)", m, k, k2, n))
	}

	out := NewTensor(m, n)
	for i := range m {
		for l := range k {
			a := t.data[i*k+l]
			if a == 0 {
				continue
			}
			row := other.data[l*n : (l+1)*n]
			outRow := out.data[i*n : (i+1)*n]
			for j := range n {
				outRow[j] += a * row[j]
			}
		}
	}
	return out
}

// Add returns the elementwise sum of two same-shaped tensors.
func (t *Tensor) Add(other *Tensor) *Tensor {
	if t.Size() != other.Size() {
		panic(fmt.Sprintf("nn: Add size mismatch: %v vs %v", t.shape, other.shape))
	}
	out := t.Clone()
	for i, v := range other.data {
		out.data[i] += v
	}
	return out
}

// Scale returns the tensor multiplied by a scalar.
func (t *Tensor) Scale(s float64) *Tensor {
	out := t.Clone()
	for i := range out.data {
		out.data[i] *= s
	}
	return out
}

// Apply returns a new tensor with fn applied elementwise.
func (t *Tensor) Apply(fn func(float64) float64) *Tensor {
	out := t.Clone()
	for i, v := range out.data {
		out.data[i] = fn(v)
	}
	return out
}
