package layers

import (
	"fmt"

	"github.com/world-in-progress/mimir/nn"
)

// SyncNormNames lists the norm layers that already synchronize statistics
// across processes and therefore never need substitution under
// distributed training.
var SyncNormNames = []string{"SyncBN", "nnSyncBN", "naiveSyncBN"}

// IsSyncNorm reports whether name is one of the synchronized batchnorm
// variants.
func IsSyncNorm(name string) bool {
	for _, n := range SyncNormNames {
		if n == name {
			return true
		}
	}
	return false
}

func groupsFor(dim int) int {
	for g := 32; g > 1; g-- {
		if dim%g == 0 {
			return g
		}
	}
	return 1
}

var normLayers = map[string]nn.NormFactory{
	"": func(dim int) nn.Layer {
		return nn.Identity{}
	},
	"none": func(dim int) nn.Layer {
		return nn.Identity{}
	},
	"BN": func(dim int) nn.Layer {
		return nn.NewBatchNorm(dim)
	},
	"SyncBN": func(dim int) nn.Layer {
		bn := nn.NewBatchNorm(dim)
		bn.Sync = true
		return bn
	},
	"nnSyncBN": func(dim int) nn.Layer {
		bn := nn.NewBatchNorm(dim)
		bn.Sync = true
		return bn
	},
	"naiveSyncBN": func(dim int) nn.Layer {
		bn := nn.NewBatchNorm(dim)
		bn.Sync = true
		bn.NaiveSync = true
		return bn
	},
	"FrozenBN": func(dim int) nn.Layer {
		bn := nn.NewBatchNorm(dim)
		bn.Frozen = true
		return bn
	},
	"GN": func(dim int) nn.Layer {
		return nn.NewGroupNorm(groupsFor(dim), dim)
	},
	"LN": func(dim int) nn.Layer {
		return nn.NewLayerNorm(dim)
	},
}

// GetNorm resolves a normalization layer name to its factory. Names are
// case sensitive, matching the conventional short forms (BN, GN, LN, ...).
func GetNorm(name string) (nn.NormFactory, error) {
	if factory, ok := normLayers[name]; ok {
		return factory, nil
	}
	return nil, fmt.Errorf("unknown norm layer (%s)", name)
}
