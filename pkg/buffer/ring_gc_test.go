package buffer

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestRingGCResilience verifies the ring survives concurrent GC pauses
// without losing or corrupting items, which is what the command and event
// queues crossing the audio/frontend boundary rely on in production.
func TestRingGCResilience(t *testing.T) {
	const total = 20000
	r := NewRing[int](256)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for i := 0; i < total; i++ {
			for !r.TryPush(i) {
				runtime.Gosched()
			}
		}
	}()

	gcStop := make(chan struct{})
	go func() {
		for {
			select {
			case <-gcStop:
				return
			default:
				runtime.GC()
				time.Sleep(time.Millisecond)
			}
		}
	}()

	received := make([]int, 0, total)
	for len(received) < total {
		if v, ok := r.TryPop(); ok {
			received = append(received, v)
		}
	}
	close(gcStop)
	<-writerDone

	for i, v := range received {
		assert.Equal(t, i, v, "item %d out of order or corrupted", i)
	}
}

func TestRingConcurrentStress(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in short mode")
	}

	r := NewRing[int](128)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		for {
			select {
			case <-stop:
				return
			default:
				if r.TryPush(i) {
					i++
				}
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				r.TryPop()
			}
		}
	}()

	time.Sleep(200 * time.Millisecond)
	close(stop)
	wg.Wait()
}
