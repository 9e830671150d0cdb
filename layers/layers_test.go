package layers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/world-in-progress/mimir/nn"
)

func TestGetActLayer(t *testing.T) {
	relu, err := GetActLayer("relu")
	assert.NoError(t, err)
	assert.Equal(t, 0.0, relu(-1))
	assert.Equal(t, 2.0, relu(2))

	relu6, err := GetActLayer("relu6")
	assert.NoError(t, err)
	assert.Equal(t, 6.0, relu6(10))

	hswish, err := GetActLayer("hard_swish")
	assert.NoError(t, err)
	assert.Equal(t, 0.0, hswish(-4))
	assert.Equal(t, 4.0, hswish(4))

	// swish is an alias of silu
	swish, err := GetActLayer("Swish")
	assert.NoError(t, err)
	silu, err := GetActLayer("silu")
	assert.NoError(t, err)
	assert.Equal(t, silu(1.3), swish(1.3))

	id, err := GetActLayer("")
	assert.NoError(t, err)
	assert.Equal(t, -3.2, id(-3.2))

	_, err = GetActLayer("warp_drive")
	assert.EqualError(t, err, "unknown activation layer (warp_drive)")
}

func TestActLayerConfig(t *testing.T) {
	// with jit allowed, gelu resolves to the exact erf form
	jitGelu, err := GetActLayer("gelu")
	assert.NoError(t, err)

	noJIT := true
	restore := SetLayerConfig(Config{NoJIT: &noJIT})
	plainGelu, err := GetActLayer("gelu")
	assert.NoError(t, err)
	restore()

	// tanh approximation and erf form differ slightly away from zero
	assert.NotEqual(t, jitGelu(1.0), plainGelu(1.0))
	assert.InDelta(t, jitGelu(1.0), plainGelu(1.0), 1e-3)

	// exportable also disables the scripted variant
	exportable := true
	restore = SetLayerConfig(Config{Exportable: &exportable})
	exportGelu, err := GetActLayer("gelu")
	assert.NoError(t, err)
	restore()
	assert.Equal(t, plainGelu(1.0), exportGelu(1.0))

	// restore must bring the scripted variant back
	restoredGelu, err := GetActLayer("gelu")
	assert.NoError(t, err)
	assert.Equal(t, jitGelu(1.0), restoredGelu(1.0))
}

func TestSetLayerConfigNesting(t *testing.T) {
	noJIT := true
	restoreOuter := SetLayerConfig(Config{NoJIT: &noJIT})
	assert.False(t, jitAllowed())

	// nil fields leave the outer override in place
	restoreInner := SetLayerConfig(Config{})
	assert.False(t, jitAllowed())
	restoreInner()

	restoreOuter()
	assert.True(t, jitAllowed())
}

func TestGetNorm(t *testing.T) {
	for _, name := range []string{"BN", "SyncBN", "nnSyncBN", "naiveSyncBN", "FrozenBN"} {
		factory, err := GetNorm(name)
		assert.NoError(t, err, name)

		layer := factory(8)
		bn, ok := layer.(*nn.BatchNorm)
		assert.True(t, ok, name)
		assert.Equal(t, IsSyncNorm(name), bn.Sync, name)
		assert.Equal(t, name == "naiveSyncBN", bn.NaiveSync, name)
		assert.Equal(t, name == "FrozenBN", bn.Frozen, name)
	}

	factory, err := GetNorm("LN")
	assert.NoError(t, err)
	_, ok := factory(8).(*nn.LayerNorm)
	assert.True(t, ok)

	factory, err = GetNorm("GN")
	assert.NoError(t, err)
	gn, ok := factory(64).(*nn.GroupNorm)
	assert.True(t, ok)
	assert.Equal(t, 32, gn.Groups)

	// group count must divide the channel count
	gn = factory(10).(*nn.GroupNorm)
	assert.Equal(t, 10, gn.Groups)

	factory, err = GetNorm("")
	assert.NoError(t, err)
	_, ok = factory(8).(nn.Identity)
	assert.True(t, ok)

	// names are case sensitive
	_, err = GetNorm("bn")
	assert.Error(t, err)
}

func TestGetPool(t *testing.T) {
	x := nn.NewTensor(2, 1)
	x.Set(1, 0, 0)
	x.Set(3, 1, 0)

	avg, err := GetPool("")
	assert.NoError(t, err)
	assert.Equal(t, 2.0, avg(x).At(0, 0))

	max, err := GetPool("MAX")
	assert.NoError(t, err)
	assert.Equal(t, 3.0, max(x).At(0, 0))

	_, err = GetPool("pyramid")
	assert.Error(t, err)
}
