package pool

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/cpu"

	"github.com/joshuapare/memkit/mem/alloc"
)

func TestSafe_Concurrent(t *testing.T) {
	s := NewSafe(New[item](alloc.NewHeap(0)))
	require.NoError(t, s.Prealloc(4))

	const workers, rounds = 8, 500
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range rounds {
				r, err := s.Acquire()
				if !assert.NoError(t, err) {
					return
				}
				r.Value().ID = int64(w*rounds + i)
				assert.Equal(t, int64(w*rounds+i), r.Value().ID)
				assert.NoError(t, s.Release(r))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, s.InUse())
	assert.LessOrEqual(t, s.Capacity(), workers+4)
	assert.NoError(t, s.Close())
}

func TestSafe_DistinctLoans(t *testing.T) {
	s := NewSafe(New[item](alloc.NewHeap(0)))

	var mu sync.Mutex
	seen := make(map[*item]bool)
	var wg sync.WaitGroup
	refs := make(chan Ref[item], 64)
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := s.Acquire()
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			assert.False(t, seen[r.Value()], "slot loaned twice")
			seen[r.Value()] = true
			mu.Unlock()
			refs <- r
		}()
	}
	wg.Wait()
	close(refs)

	assert.Equal(t, 64, s.Capacity())
	for r := range refs {
		require.NoError(t, s.Release(r))
	}
}

func TestSafe_Padding(t *testing.T) {
	var s Safe[item]
	assert.GreaterOrEqual(t, unsafe.Offsetof(s.p), 2*unsafe.Sizeof(cpu.CacheLinePad{}))
}
