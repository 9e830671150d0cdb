package threading

import (
	"github.com/world-in-progress/mimir/core/rescue"
)

// RunSafe runs the provided function recovers if function panics.
func RunSafe(fn func()) {
	defer rescue.Recover()

	fn()
}

// GoSafe runs the provided function in a goroutine, recovers if function panics.
func GoSafe(fn func()) {
	go RunSafe(fn)
}
