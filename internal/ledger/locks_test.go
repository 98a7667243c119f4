package ledger

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPairLocks_SerializesSameKey(t *testing.T) {
	locks := newPairLocks()
	unlock := locks.lock([]string{"g/a/b"})

	acquired := make(chan struct{})
	go func() {
		release := locks.lock([]string{"g/a/b", "g/b/c"})
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held key")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was never released")
	}
}

func TestPairLocks_ForgetsIdleKeys(t *testing.T) {
	locks := newPairLocks()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock([]string{"g/a/b", "g/a/c"})
			unlock()
		}()
	}
	wg.Wait()
	assert.Zero(t, locks.size())
}

func TestNotifier(t *testing.T) {
	n := NewNotifier()
	ch, cancel := n.Subscribe("g1")

	n.Bump("g1")
	n.Bump("g1")
	n.Bump("g2")

	// Only the latest version is pending.
	assert.Equal(t, uint64(2), <-ch)
	assert.Equal(t, uint64(2), n.Version("g1"))
	assert.Equal(t, uint64(1), n.Version("g2"))

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	n.Bump("g1")
}
