package concurrency

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreferredCPUID_NoNode(t *testing.T) {
	n := NumCPUs()
	for w := 0; w < 2*n; w++ {
		got := PreferredCPUID(-1, w)
		assert.GreaterOrEqual(t, got, 0)
		assert.Less(t, got, maxCPUID)
	}
}

func TestPinRejectsOutOfRangeCPU(t *testing.T) {
	assert.ErrorIs(t, PinCurrentThread(-1, 1<<20), ErrInvalidCPU)
}

func TestCurrentThreadIDStableWhileLocked(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	assert.Equal(t, CurrentThreadID(), CurrentThreadID())
}

func TestNUMANodesAtLeastOne(t *testing.T) {
	assert.GreaterOrEqual(t, NUMANodes(), 1)
}
