package zoo

import (
	"runtime"
	"sync"

	"github.com/world-in-progress/mimir/core/logger"
	"github.com/world-in-progress/mimir/core/threading"
)

// Prefetch verifies and activates the named entries concurrently, warming
// the cache before model construction. It returns the per-name resolution
// errors of the entries that failed.
func (z *Zoo) Prefetch(names ...string) map[string]error {
	if len(names) == 0 {
		return nil
	}

	workerNum := runtime.NumCPU()
	if workerNum > len(names) {
		workerNum = len(names)
	}
	sem := make(chan struct{}, workerNum)

	var mu sync.Mutex
	errs := make(map[string]error)

	group := threading.NewRoutineGroup()
	for _, name := range names {
		group.RunSafe(func() {
			sem <- struct{}{}
			defer func() { <-sem }()

			if _, err := z.CheckpointPath(name); err != nil {
				logger.Warn("prefetch of %s failed: %v", name, err)
				mu.Lock()
				errs[name] = err
				mu.Unlock()
			}
		})
	}
	group.Wait()

	if len(errs) == 0 {
		return nil
	}
	return errs
}
