package layers

import (
	"fmt"
	"math"
	"strings"

	"github.com/world-in-progress/mimir/nn"
)

func relu(x float64) float64 {
	return math.Max(0, x)
}

func relu6(x float64) float64 {
	return math.Min(math.Max(0, x), 6)
}

func leakyRelu(x float64) float64 {
	if x >= 0 {
		return x
	}
	return 0.01 * x
}

func elu(x float64) float64 {
	if x >= 0 {
		return x
	}
	return math.Exp(x) - 1
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func hardSigmoid(x float64) float64 {
	return math.Min(math.Max(x/6+0.5, 0), 1)
}

func silu(x float64) float64 {
	return x * sigmoid(x)
}

func hardSwish(x float64) float64 {
	return x * hardSigmoid(x)
}

func mish(x float64) float64 {
	return x * math.Tanh(math.Log1p(math.Exp(x)))
}

func gelu(x float64) float64 {
	// tanh approximation
	return 0.5 * x * (1 + math.Tanh(math.Sqrt(2/math.Pi)*(x+0.044715*x*x*x)))
}

func geluExact(x float64) float64 {
	return 0.5 * x * (1 + math.Erf(x/math.Sqrt2))
}

func identity(x float64) float64 {
	return x
}

var actLayers = map[string]nn.Activation{
	"":             identity,
	"identity":     identity,
	"relu":         relu,
	"relu6":        relu6,
	"leaky_relu":   leakyRelu,
	"elu":          elu,
	"sigmoid":      sigmoid,
	"hard_sigmoid": hardSigmoid,
	"tanh":         math.Tanh,
	"swish":        silu,
	"silu":         silu,
	"hard_swish":   hardSwish,
	"mish":         mish,
	"gelu":         gelu,
}

// Variants only picked when jit scripted layers are allowed.
var actLayersJIT = map[string]nn.Activation{
	"gelu": geluExact,
}

// GetActLayer resolves an activation name to its function, honoring the
// current layer config when a scripted variant exists.
func GetActLayer(name string) (nn.Activation, error) {
	key := strings.ToLower(name)
	if jitAllowed() {
		if fn, ok := actLayersJIT[key]; ok {
			return fn, nil
		}
	}
	if fn, ok := actLayers[key]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown activation layer (%s)", name)
}
