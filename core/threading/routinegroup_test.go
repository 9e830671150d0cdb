package threading

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoutineGroup(t *testing.T) {
	var counter atomic.Int64

	group := NewRoutineGroup()
	for range 10 {
		group.Run(func() {
			counter.Add(1)
		})
	}
	group.Wait()

	assert.Equal(t, int64(10), counter.Load())
}

func TestRoutineGroupRunSafe(t *testing.T) {
	var counter atomic.Int64

	group := NewRoutineGroup()
	for i := range 10 {
		group.RunSafe(func() {
			if i%2 == 0 {
				panic("boom")
			}
			counter.Add(1)
		})
	}
	group.Wait()

	assert.Equal(t, int64(5), counter.Load())
}
