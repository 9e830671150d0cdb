package layers

import (
	"fmt"
	"strings"

	"github.com/world-in-progress/mimir/nn"
)

var poolLayers = map[string]nn.Pooling{
	"":       nn.AvgPool,
	"avg":    nn.AvgPool,
	"max":    nn.MaxPool,
	"avgmax": nn.AvgMaxPool,
}

// GetPool resolves a global pooling name. The empty name defaults to
// average pooling.
func GetPool(name string) (nn.Pooling, error) {
	if pool, ok := poolLayers[strings.ToLower(name)]; ok {
		return pool, nil
	}
	return nil, fmt.Errorf("unknown pooling layer (%s)", name)
}
