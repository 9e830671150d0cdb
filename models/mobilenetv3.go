package models

import (
	"github.com/world-in-progress/mimir/nn"
	"github.com/world-in-progress/mimir/registry"
)

func mobilenetv3Small(args registry.Args) (nn.Model, error) {
	return buildStaged("mobilenetv3_small", "hard_swish", 16, []stage{
		{dim: 16, expand: 1, blocks: 1},
		{dim: 24, expand: 4, blocks: 2},
		{dim: 48, expand: 6, blocks: 3},
	}, args)
}

func mobilenetv3Large(args registry.Args) (nn.Model, error) {
	return buildStaged("mobilenetv3_large", "hard_swish", 16, []stage{
		{dim: 24, expand: 4, blocks: 2},
		{dim: 40, expand: 6, blocks: 3},
		{dim: 80, expand: 6, blocks: 4},
	}, args)
}

func init() {
	registry.MustRegister("mobilenetv3", "mobilenetv3_small", mobilenetv3Small)
	registry.MustRegister("mobilenetv3", "mobilenetv3_large", mobilenetv3Large)
}
