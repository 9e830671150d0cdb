package rescue

import (
	"github.com/world-in-progress/mimir/core/logger"
)

// Recover runs the cleanups and logs the panic value if the calling
// goroutine is panicking.
func Recover(cleanups ...func()) {
	if r := recover(); r != nil {
		for _, cleanup := range cleanups {
			cleanup()
		}
		logger.Error("recovered from panic: %v", r)
	}
}
