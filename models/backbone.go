package models

import (
	"fmt"

	"github.com/world-in-progress/mimir/layers"
	"github.com/world-in-progress/mimir/nn"
	"github.com/world-in-progress/mimir/registry"
)

type (
	// Backbone is the shared classification wrapper of every registered
	// family: feature layers, global pooling, classifier head.
	Backbone struct {
		name    string
		layers  []nn.Layer
		pool    nn.Pooling
		head    *nn.Linear
		classes int
		params  map[string]*nn.Tensor
	}

	// Residual wraps a block body with an identity shortcut and
	// stochastic depth.
	Residual struct {
		Body []nn.Layer
		Drop *nn.DropPath
	}
)

func (r *Residual) Forward(x *nn.Tensor) *nn.Tensor {
	y := x
	for _, l := range r.Body {
		y = l.Forward(y)
	}
	return x.Add(r.Drop.Forward(y))
}

func newBackbone(name string, classes int, pool nn.Pooling) *Backbone {
	return &Backbone{
		name:    name,
		pool:    pool,
		classes: classes,
		params:  make(map[string]*nn.Tensor),
	}
}

func (b *Backbone) Name() string { return b.name }

// Layers exposes the feature layers in forward order.
func (b *Backbone) Layers() []nn.Layer { return b.layers }

func (b *Backbone) Forward(x *nn.Tensor) *nn.Tensor {
	for _, l := range b.layers {
		x = l.Forward(x)
	}
	x = b.pool(x)
	return b.head.Forward(x)
}

func (b *Backbone) NamedParameters() map[string]*nn.Tensor {
	return b.params
}

func (b *Backbone) NumClasses() int {
	return b.classes
}

// track records the learnable tensors of a layer under a stable name.
func (b *Backbone) track(name string, layer nn.Layer) nn.Layer {
	switch l := layer.(type) {
	case *nn.Linear:
		b.params[name+".w"] = l.W
		b.params[name+".b"] = l.B
	case *nn.BatchNorm:
		b.params[name+".gamma"] = l.Gamma
		b.params[name+".beta"] = l.Beta
		b.params[name+".running_mean"] = l.RunningMean
		b.params[name+".running_var"] = l.RunningVar
	case *nn.LayerNorm:
		b.params[name+".gamma"] = l.Gamma
		b.params[name+".beta"] = l.Beta
	case *nn.GroupNorm:
		b.params[name+".gamma"] = l.Gamma
		b.params[name+".beta"] = l.Beta
	}
	return layer
}

func (b *Backbone) add(name string, layer nn.Layer) {
	b.layers = append(b.layers, b.track(name, layer))
}

func (b *Backbone) setHead(dim int) {
	b.head = nn.NewLinear(dim, b.classes)
	b.track("head", b.head)
}

// buildOpts is the normalized view of an argument bag. Argument values may
// arrive resolved (nn.Activation, nn.NormFactory) from the factory or as
// plain strings when an entrypoint is called directly.
type buildOpts struct {
	classes      int
	inChans      int
	act          nn.Activation
	norm         nn.NormFactory
	pool         nn.Pooling
	dropRate     float64
	dropPathRate float64
	bnMomentum   float64
	bnEps        float64
	bnTF         bool
}

func optsFrom(args registry.Args, defaultAct string) (*buildOpts, error) {
	o := &buildOpts{
		classes:      args.Int("num_classes", 1000),
		inChans:      args.Int("in_chans", 3),
		dropRate:     args.Float("drop_rate", 0),
		dropPathRate: args.Float("drop_path_rate", 0),
		bnMomentum:   args.Float("bn_momentum", 0),
		bnEps:        args.Float("bn_eps", 0),
		bnTF:         args.Bool("bn_tf", false),
	}

	switch v := args["act_layer"].(type) {
	case nn.Activation:
		o.act = v
	case func(float64) float64:
		o.act = v
	case string, nil:
		name := args.String("act_layer", defaultAct)
		act, err := layers.GetActLayer(name)
		if err != nil {
			return nil, err
		}
		o.act = act
	default:
		return nil, fmt.Errorf("act_layer has unsupported type %T", v)
	}

	switch v := args["norm_layer"].(type) {
	case nn.NormFactory:
		o.norm = v
	case func(int) nn.Layer:
		o.norm = v
	case string, nil:
		norm, err := layers.GetNorm(args.String("norm_layer", "BN"))
		if err != nil {
			return nil, err
		}
		o.norm = norm
	default:
		return nil, fmt.Errorf("norm_layer has unsupported type %T", v)
	}

	switch v := args["global_pool"].(type) {
	case nn.Pooling:
		o.pool = v
	case func(*nn.Tensor) *nn.Tensor:
		o.pool = v
	case string, nil:
		pool, err := layers.GetPool(args.String("global_pool", "avg"))
		if err != nil {
			return nil, err
		}
		o.pool = pool
	default:
		return nil, fmt.Errorf("global_pool has unsupported type %T", v)
	}

	return o, nil
}

// newNorm builds a norm layer and applies batchnorm overrides where the
// produced layer is a batchnorm.
func (o *buildOpts) newNorm(dim int) nn.Layer {
	layer := o.norm(dim)
	if bn, ok := layer.(*nn.BatchNorm); ok {
		if o.bnTF {
			// TensorFlow-style defaults
			bn.Momentum = 0.01
			bn.Eps = 1e-3
		}
		if o.bnMomentum != 0 {
			bn.Momentum = o.bnMomentum
		}
		if o.bnEps != 0 {
			bn.Eps = o.bnEps
		}
	}
	return layer
}
