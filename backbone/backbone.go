// Package backbone builds named backbone models: it looks the architecture
// up in the registry, normalizes construction arguments, instantiates the
// model and optionally restores pretrained weights.
package backbone

import (
	"fmt"

	"github.com/world-in-progress/mimir/checkpoint"
	"github.com/world-in-progress/mimir/config"
	"github.com/world-in-progress/mimir/core/comm"
	"github.com/world-in-progress/mimir/core/logger"
	"github.com/world-in-progress/mimir/layers"
	"github.com/world-in-progress/mimir/nn"
	"github.com/world-in-progress/mimir/registry"
	"github.com/world-in-progress/mimir/zoo"

	// register builtin model families
	_ "github.com/world-in-progress/mimir/models"
)

// Options carries the construction parameters of CreateModel.
// Scriptable, Exportable and NoJIT are tri-state: nil leaves the current
// layer config default in place.
type Options struct {
	Pretrained     bool
	NumClasses     int
	InChans        int
	CheckpointPath string
	Scriptable     *bool
	Exportable     *bool
	NoJIT          *bool
	Args           registry.Args
}

// NewOptions returns Options with the conventional defaults (1000 classes,
// 3 input channels).
func NewOptions() Options {
	return Options{
		NumClasses: 1000,
		InChans:    3,
	}
}

// Families that support batchnorm params or drop_connect_rate passed as args.
var bnArgFamilies = []string{"efficientnet", "mobilenetv3"}

// CreateModel builds the named model.
//
// Argument normalization, in order: batchnorm overrides are stripped for
// families that do not support them, the activation name is resolved under
// the scoped layer config, the norm layer is substituted with SyncBN when
// running distributed, the deprecated drop_connect_rate migrates to
// drop_path_rate, and unset (nil) arguments are dropped so model defaults
// remain in effect.
func CreateModel(name string, opts Options) (nn.Model, error) {
	if opts.NumClasses == 0 {
		opts.NumClasses = 1000
	}
	if opts.InChans == 0 {
		opts.InChans = 3
	}

	args := opts.Args.Clone()
	if args == nil {
		args = make(registry.Args)
	}
	args["pretrained"] = opts.Pretrained
	args["num_classes"] = opts.NumClasses
	args["in_chans"] = opts.InChans

	layerCfg := layers.Config{
		Scriptable: opts.Scriptable,
		Exportable: opts.Exportable,
		NoJIT:      opts.NoJIT,
	}

	isBNArgFamily := registry.IsModelInModules(name, bnArgFamilies...)
	if !isBNArgFamily {
		delete(args, "bn_tf")
		delete(args, "bn_momentum")
		delete(args, "bn_eps")

		// activation layer
		switch args["act_layer"].(type) {
		case nn.Activation, func(float64) float64:
			// already resolved by the caller
		default:
			restore := layers.SetLayerConfig(layerCfg)
			act, err := layers.GetActLayer(args.String("act_layer", "relu"))
			restore()
			if err != nil {
				return nil, err
			}
			args["act_layer"] = act
		}
	}

	// norm layer
	switch args["norm_layer"].(type) {
	case nn.NormFactory, func(int) nn.Layer:
		// already resolved by the caller
	default:
		normName := args.String("norm_layer", "BN")
		if comm.GetWorldSize() > 1 && !layers.IsSyncNorm(normName) {
			logger.Info("convert norm_layer %s to SyncBN", normName)
			normName = "SyncBN"
		}
		norm, err := layers.GetNorm(normName)
		if err != nil {
			return nil, err
		}
		args["norm_layer"] = norm
	}

	// handle backwards compat with drop_connect -> drop_path change
	if dropConnect, ok := args["drop_connect_rate"]; ok {
		delete(args, "drop_connect_rate")
		if dropConnect != nil && args["drop_path_rate"] == nil {
			logger.Warn("'drop_connect' as an argument is deprecated, please use 'drop_path'. Setting drop_path to %v.", dropConnect)
			args["drop_path_rate"] = dropConnect
		}
	}

	// Parameters that aren't supported by all models or are intended to only
	// override model defaults if set should be nil when unset. Remove them so
	// that non-supporting models don't break and default args remain in effect.
	for k, v := range args {
		if v == nil {
			delete(args, k)
		}
	}

	entrypoint, err := registry.ModelEntrypoint(name)
	if err != nil {
		return nil, err
	}

	restore := layers.SetLayerConfig(layerCfg)
	model, err := build(entrypoint, args)
	restore()
	if err != nil {
		return nil, fmt.Errorf("failed to build model %s: %v", name, err)
	}

	checkpointPath := opts.CheckpointPath
	if checkpointPath == "" && opts.Pretrained {
		if path, zooErr := zoo.Default().CheckpointPath(name); zooErr != nil {
			logger.Warn("no pretrained weights for %s: %v", name, zooErr)
		} else {
			checkpointPath = path
		}
	}
	if checkpointPath != "" {
		if err := checkpoint.Load(model, checkpointPath); err != nil {
			return nil, fmt.Errorf("failed to load checkpoint for %s: %v", name, err)
		}
	}

	return model, nil
}

// build invokes the entrypoint, converting constructor panics (shape bugs
// and the like) into errors.
func build(entrypoint registry.Entrypoint, args registry.Args) (model nn.Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model constructor panicked: %v", r)
		}
	}()
	return entrypoint(args)
}

// Build creates the backbone described by cfg. The optimization mode picks
// the layer config: "infer" builds scriptable layers without jit scripting,
// "jit" builds scriptable layers with jit scripting allowed.
func Build(cfg *config.BackboneConfig) (nn.Model, error) {
	scriptable := false
	exportable := false
	noJIT := false

	switch cfg.Opt {
	case "infer":
		noJIT = true
		scriptable = true
	case "jit":
		noJIT = false
		scriptable = true
	}

	opts := Options{
		Pretrained:     true,
		NumClasses:     cfg.Classes,
		InChans:        cfg.InputChannel,
		CheckpointPath: cfg.Weights,
		Scriptable:     &scriptable,
		Exportable:     &exportable,
		NoJIT:          &noJIT,
		Args: registry.Args{
			"norm_layer":  cfg.NormLayer,
			"act_layer":   cfg.Activate,
			"global_pool": cfg.PoolingLayer,
		},
	}
	return CreateModel(cfg.Backbone, opts)
}
