package ledger

import "sync"

// pairLocks hands out one mutex per pair key and forgets it once no caller holds it.
type pairLocks struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newPairLocks() *pairLocks {
	return &pairLocks{locks: make(map[string]*refMutex)}
}

// lock acquires every key in the given order; keys must already be sorted.
func (p *pairLocks) lock(keys []string) (unlock func()) {
	held := make([]*refMutex, 0, len(keys))
	for _, k := range keys {
		p.mu.Lock()
		m, ok := p.locks[k]
		if !ok {
			m = &refMutex{}
			p.locks[k] = m
		}
		m.refs++
		p.mu.Unlock()

		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
			p.mu.Lock()
			held[i].refs--
			if held[i].refs == 0 {
				delete(p.locks, keys[i])
			}
			p.mu.Unlock()
		}
	}
}

func (p *pairLocks) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
