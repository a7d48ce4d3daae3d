package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferPool(t *testing.T) {
	// Must match initialPoolSize in pool.go.
	const testInitialPoolSize = 64

	t.Run("Get and Put", func(t *testing.T) {
		pool := NewBufferPool(0)
		require.Equal(t, testInitialPoolSize, len(pool.items))

		buf := pool.Get()
		require.NotNil(t, buf)
		require.Equal(t, testInitialPoolSize-1, len(pool.items))

		buf.WriteString("page bytes")
		pool.Put(buf)
		require.Equal(t, testInitialPoolSize, len(pool.items))

		buf2 := pool.Get()
		assert.Equal(t, 0, buf2.Len(), "reused buffer should be reset")
	})

	t.Run("Get more than pool size", func(t *testing.T) {
		pool := NewBufferPool(0)
		for i := 0; i < testInitialPoolSize; i++ {
			pool.Get()
		}
		require.Empty(t, pool.items)

		newBuf := pool.Get()
		require.NotNil(t, newBuf)
		hits, misses, created, size := pool.GetMetrics()
		assert.Equal(t, uint64(testInitialPoolSize), hits)
		assert.Equal(t, uint64(1), misses)
		assert.Equal(t, uint64(testInitialPoolSize+1), created)
		assert.Equal(t, int64(0), size)

		pool.Put(newBuf)
		require.Len(t, pool.items, 1)
	})

	t.Run("With Initial Capacity", func(t *testing.T) {
		pool := NewBufferPool(128)
		buf := pool.Get()
		assert.Equal(t, 0, buf.Len())
		assert.GreaterOrEqual(t, buf.Cap(), 128)
	})

	t.Run("Concurrent Access", func(t *testing.T) {
		pool := NewBufferPool(128)
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					buf := pool.Get()
					buf.WriteString("x")
					pool.Put(buf)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, testInitialPoolSize, len(pool.items))
	})
}
