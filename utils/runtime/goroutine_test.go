package runtime

import (
	"sync"
	"testing"

	"github.com/aspectgo/aspectgo/test/assert"
)

func TestGoroutineIDStableWithinGoroutine(t *testing.T) {
	first := GoroutineID()
	second := GoroutineID()
	assert.True(t, first > 0)
	assert.Equal(t, first, second)
}

func TestGoroutineIDDiffersAcrossGoroutines(t *testing.T) {
	main := GoroutineID()
	var other uint64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		other = GoroutineID()
	}()
	wg.Wait()
	assert.True(t, other > 0)
	assert.NotEqual(t, main, other)
}

func TestStackNotEmpty(t *testing.T) {
	assert.True(t, len(Stack()) > 0)
}
