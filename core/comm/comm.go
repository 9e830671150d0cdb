package comm

import (
	"sync"

	"github.com/spf13/viper"
)

// Distributed launchers export WORLD_SIZE and RANK into the environment of
// every process they spawn. A process started outside a launcher runs as a
// single-member world.
var (
	mu        sync.RWMutex
	worldSize int
	rank      int
	loaded    bool
)

func load() {
	viper.AutomaticEnv() // enable overwrite envs

	viper.SetDefault("world_size", 1)
	viper.SetDefault("rank", 0)

	worldSize = viper.GetInt("world_size")
	rank = viper.GetInt("rank")
	if worldSize < 1 {
		worldSize = 1
	}
	loaded = true
}

// GetWorldSize reports the number of processes in the distributed group.
func GetWorldSize() int {
	mu.RLock()
	if loaded {
		defer mu.RUnlock()
		return worldSize
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if !loaded {
		load()
	}
	return worldSize
}

// GetRank reports the rank of this process in the distributed group.
func GetRank() int {
	GetWorldSize()

	mu.RLock()
	defer mu.RUnlock()
	return rank
}

// SetWorldSize overrides the detected world size. Intended for tests.
func SetWorldSize(n int) {
	mu.Lock()
	defer mu.Unlock()
	if n < 1 {
		n = 1
	}
	worldSize = n
	loaded = true
}
