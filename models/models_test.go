package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/world-in-progress/mimir/nn"
	"github.com/world-in-progress/mimir/registry"
)

func TestRegisteredFamilies(t *testing.T) {
	assert.Equal(t, []string{"efficientnet_lite0", "efficientnet_lite1"}, registry.ModuleNames("efficientnet"))
	assert.Equal(t, []string{"mobilenetv3_large", "mobilenetv3_small"}, registry.ModuleNames("mobilenetv3"))
	assert.Equal(t, []string{"mixer_b16", "mixer_s16"}, registry.ModuleNames("mixer"))
}

func TestBuildForward(t *testing.T) {
	for _, name := range []string{"efficientnet_lite0", "mobilenetv3_small", "mixer_s16"} {
		fn, err := registry.ModelEntrypoint(name)
		assert.NoError(t, err, name)

		model, err := fn(registry.Args{"num_classes": 10, "in_chans": 4})
		assert.NoError(t, err, name)
		assert.Equal(t, 10, model.NumClasses(), name)

		x := nn.NewTensorRand(5, 4)
		y := model.Forward(x)
		assert.Equal(t, []int{1, 10}, y.Shape(), name)

		assert.NotEmpty(t, model.NamedParameters(), name)
	}
}

func TestNamedParameterTracking(t *testing.T) {
	fn, _ := registry.ModelEntrypoint("mixer_s16")
	model, err := fn(registry.Args{"num_classes": 7})
	assert.NoError(t, err)

	params := model.NamedParameters()
	assert.Contains(t, params, "stem.fc.w")
	assert.Contains(t, params, "blocks.0.norm.gamma")
	assert.Contains(t, params, "blocks.0.mlp.fc1.b")
	assert.Contains(t, params, "head.w")

	assert.Equal(t, []int{128, 7}, params["head.w"].Shape())
}

func TestBatchNormOverrides(t *testing.T) {
	fn, _ := registry.ModelEntrypoint("efficientnet_lite0")
	model, err := fn(registry.Args{"bn_momentum": 0.2, "bn_eps": 0.01})
	assert.NoError(t, err)

	bn := findBatchNorm(t, model)
	assert.Equal(t, 0.2, bn.Momentum)
	assert.Equal(t, 0.01, bn.Eps)

	// TF-style defaults apply when no explicit override is given
	model, err = fn(registry.Args{"bn_tf": true})
	assert.NoError(t, err)
	bn = findBatchNorm(t, model)
	assert.Equal(t, 0.01, bn.Momentum)
	assert.Equal(t, 1e-3, bn.Eps)
}

func TestDropPathScaling(t *testing.T) {
	fn, _ := registry.ModelEntrypoint("efficientnet_lite1")
	model, err := fn(registry.Args{"drop_path_rate": 0.2})
	assert.NoError(t, err)

	rates := dropPathRates(t, model)
	assert.NotEmpty(t, rates)
	assert.Equal(t, 0.0, rates[0])
	for i := 1; i < len(rates); i++ {
		assert.Greater(t, rates[i], rates[i-1])
		assert.Less(t, rates[i], 0.2)
	}
}

func TestStringArgsResolve(t *testing.T) {
	// entrypoints called directly resolve act/norm/pool names themselves
	fn, _ := registry.ModelEntrypoint("mobilenetv3_small")
	model, err := fn(registry.Args{
		"act_layer":   "relu",
		"norm_layer":  "LN",
		"global_pool": "max",
	})
	assert.NoError(t, err)

	y := model.Forward(nn.NewTensorRand(3, 3))
	assert.Equal(t, []int{1, 1000}, y.Shape())

	_, err = fn(registry.Args{"act_layer": "warp_drive"})
	assert.Error(t, err)
	_, err = fn(registry.Args{"norm_layer": "bn"})
	assert.Error(t, err)
	_, err = fn(registry.Args{"global_pool": "pyramid"})
	assert.Error(t, err)
}

func findBatchNorm(t *testing.T, model nn.Model) *nn.BatchNorm {
	t.Helper()
	backbone, ok := model.(*Backbone)
	assert.True(t, ok)
	for _, layer := range backbone.Layers() {
		if bn, ok := layer.(*nn.BatchNorm); ok {
			return bn
		}
	}
	t.Fatal("no batchnorm layer found")
	return nil
}

func dropPathRates(t *testing.T, model nn.Model) []float64 {
	t.Helper()
	backbone, ok := model.(*Backbone)
	assert.True(t, ok)
	var rates []float64
	for _, layer := range backbone.Layers() {
		if block, ok := layer.(*Residual); ok {
			rates = append(rates, block.Drop.Rate)
		}
	}
	return rates
}
