package models

import (
	"fmt"

	"github.com/world-in-progress/mimir/nn"
	"github.com/world-in-progress/mimir/registry"
)

// stage describes one feature stage: target width, expansion ratio of the
// inverted bottleneck, and block count.
type stage struct {
	dim    int
	expand int
	blocks int
}

func buildStaged(name string, defaultAct string, stemDim int, stages []stage, args registry.Args) (nn.Model, error) {
	o, err := optsFrom(args, defaultAct)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve args for %s: %v", name, err)
	}

	b := newBackbone(name, o.classes, o.pool)

	b.add("stem.fc", nn.NewLinear(o.inChans, stemDim))
	b.add("stem.bn", o.newNorm(stemDim))
	b.add("stem.act", &nn.ActLayer{Fn: o.act})

	totalBlocks := 0
	for _, s := range stages {
		totalBlocks += s.blocks
	}

	prev := stemDim
	blockIdx := 0
	for si, s := range stages {
		// stage transition
		tname := fmt.Sprintf("stages.%d.down", si)
		b.add(tname+".fc", nn.NewLinear(prev, s.dim))
		b.add(tname+".bn", o.newNorm(s.dim))
		b.add(tname+".act", &nn.ActLayer{Fn: o.act})
		prev = s.dim

		for bi := range s.blocks {
			// stochastic depth rate grows linearly with block depth
			rate := o.dropPathRate * float64(blockIdx) / float64(totalBlocks)
			blockIdx++

			bname := fmt.Sprintf("stages.%d.blocks.%d", si, bi)
			hidden := s.dim * s.expand
			block := &Residual{
				Body: []nn.Layer{
					b.track(bname+".expand.fc", nn.NewLinear(s.dim, hidden)),
					b.track(bname+".expand.bn", o.newNorm(hidden)),
					&nn.ActLayer{Fn: o.act},
					b.track(bname+".project.fc", nn.NewLinear(hidden, s.dim)),
					b.track(bname+".project.bn", o.newNorm(s.dim)),
				},
				Drop: &nn.DropPath{Rate: rate},
			}
			b.layers = append(b.layers, block)
		}
	}

	if o.dropRate > 0 {
		b.layers = append(b.layers, &nn.Dropout{Rate: o.dropRate})
	}

	b.setHead(prev)
	return b, nil
}

func efficientnetLite0(args registry.Args) (nn.Model, error) {
	return buildStaged("efficientnet_lite0", "relu6", 32, []stage{
		{dim: 16, expand: 1, blocks: 1},
		{dim: 24, expand: 6, blocks: 2},
		{dim: 40, expand: 6, blocks: 2},
		{dim: 80, expand: 6, blocks: 3},
	}, args)
}

func efficientnetLite1(args registry.Args) (nn.Model, error) {
	return buildStaged("efficientnet_lite1", "relu6", 32, []stage{
		{dim: 16, expand: 1, blocks: 2},
		{dim: 24, expand: 6, blocks: 3},
		{dim: 40, expand: 6, blocks: 3},
		{dim: 80, expand: 6, blocks: 4},
	}, args)
}

func init() {
	registry.MustRegister("efficientnet", "efficientnet_lite0", efficientnetLite0)
	registry.MustRegister("efficientnet", "efficientnet_lite1", efficientnetLite1)
}
