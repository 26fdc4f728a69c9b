package viewmodel

import (
	"sync"
	"time"
)

// Change kinds published after each state mutation.
const (
	ChangeLocation = "location"
	ChangeFiles    = "files"
	ChangePreview  = "preview"
	ChangeUser     = "user"
	ChangeVersion  = "version"
	ChangeToggle   = "toggle"
	ChangeDialog   = "dialog"
	ChangeBanner   = "banner"
	ChangeUpload   = "upload"
)

// Change tells renderers which part of the state moved.
type Change struct {
	Kind string
	Time time.Time
}

// subscriberBuffer is the per-subscriber queue depth.
const subscriberBuffer = 64

// broadcaster fans changes out to subscribers. Publishing never blocks:
// a subscriber whose buffer is full misses the change and picks up the
// current state on its next Snapshot.
type broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan Change]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{
		subscribers: make(map[chan Change]struct{}),
	}
}

func (b *broadcaster) subscribe() chan Change {
	ch := make(chan Change, subscriberBuffer)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *broadcaster) unsubscribe(ch chan Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[ch]; !ok {
		return
	}
	delete(b.subscribers, ch)
	close(ch)
}

func (b *broadcaster) publish(c Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- c:
		default:
		}
	}
}

func (b *broadcaster) count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
