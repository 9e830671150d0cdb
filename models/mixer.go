package models

import (
	"fmt"

	"github.com/world-in-progress/mimir/nn"
	"github.com/world-in-progress/mimir/registry"
)

// buildMixer stacks channel-mixing MLP blocks over a linear patch stem.
// Unlike the staged convnet stand-ins, width is constant end to end and the
// norm sits in front of the MLP (pre-norm).
func buildMixer(name string, dim, depth, expand int, args registry.Args) (nn.Model, error) {
	if _, ok := args["norm_layer"]; !ok {
		args = args.Clone()
		args["norm_layer"] = "LN"
	}

	o, err := optsFrom(args, "gelu")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve args for %s: %v", name, err)
	}

	b := newBackbone(name, o.classes, o.pool)

	b.add("stem.fc", nn.NewLinear(o.inChans, dim))

	hidden := dim * expand
	for i := range depth {
		rate := o.dropPathRate * float64(i) / float64(depth)
		bname := fmt.Sprintf("blocks.%d", i)
		block := &Residual{
			Body: []nn.Layer{
				b.track(bname+".norm", o.newNorm(dim)),
				b.track(bname+".mlp.fc1", nn.NewLinear(dim, hidden)),
				&nn.ActLayer{Fn: o.act},
				b.track(bname+".mlp.fc2", nn.NewLinear(hidden, dim)),
			},
			Drop: &nn.DropPath{Rate: rate},
		}
		b.layers = append(b.layers, block)
	}

	b.add("norm", o.newNorm(dim))
	if o.dropRate > 0 {
		b.layers = append(b.layers, &nn.Dropout{Rate: o.dropRate})
	}

	b.setHead(dim)
	return b, nil
}

func mixerS16(args registry.Args) (nn.Model, error) {
	return buildMixer("mixer_s16", 128, 8, 4, args)
}

func mixerB16(args registry.Args) (nn.Model, error) {
	return buildMixer("mixer_b16", 256, 12, 4, args)
}

func init() {
	registry.MustRegister("mixer", "mixer_s16", mixerS16)
	registry.MustRegister("mixer", "mixer_b16", mixerB16)
}
