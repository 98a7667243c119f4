package ledger

import "sync"

// Notifier keeps a version counter per group and fans changes out to subscribers.
type Notifier struct {
	mu       sync.Mutex
	versions map[string]uint64
	subs     map[string]map[chan uint64]struct{}
}

// NewNotifier creates a Notifier with every group at version zero.
func NewNotifier() *Notifier {
	return &Notifier{
		versions: make(map[string]uint64),
		subs:     make(map[string]map[chan uint64]struct{}),
	}
}

// Version returns the number of committed mutations seen for the group.
func (n *Notifier) Version(groupID string) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.versions[groupID]
}

// Bump increments the group's version and notifies subscribers without blocking.
func (n *Notifier) Bump(groupID string) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.versions[groupID]++
	v := n.versions[groupID]
	for ch := range n.subs[groupID] {
		// Drop a stale pending value so the latest version is always delivered.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
	return v
}

// Subscribe returns a channel receiving the group's version after each mutation,
// and a cancel func that closes it.
func (n *Notifier) Subscribe(groupID string) (<-chan uint64, func()) {
	ch := make(chan uint64, 1)

	n.mu.Lock()
	if n.subs[groupID] == nil {
		n.subs[groupID] = make(map[chan uint64]struct{})
	}
	n.subs[groupID][ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs[groupID], ch)
			if len(n.subs[groupID]) == 0 {
				delete(n.subs, groupID)
			}
			n.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
