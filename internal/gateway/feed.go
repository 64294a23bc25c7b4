package gateway

import (
	"context"
	"sync"
)

// Feed carries "collection changed" signals from writers to live queries.
// Signals coalesce: a watcher that is busy sees at most one pending signal.
type Feed interface {
	Publish(ctx context.Context, collection string)
	Watch(collection string) (<-chan struct{}, func())
}

// LocalFeed delivers change signals within one process.
type LocalFeed struct {
	mu       sync.Mutex
	watchers map[string]map[chan struct{}]struct{}
}

func NewLocalFeed() *LocalFeed {
	return &LocalFeed{watchers: make(map[string]map[chan struct{}]struct{})}
}

func (f *LocalFeed) Publish(_ context.Context, collection string) {
	f.notify(collection)
}

func (f *LocalFeed) notify(collection string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for ch := range f.watchers[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watch registers a watcher. The returned cancel func is idempotent and closes the channel.
func (f *LocalFeed) Watch(collection string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	f.mu.Lock()
	if f.watchers[collection] == nil {
		f.watchers[collection] = make(map[chan struct{}]struct{})
	}
	f.watchers[collection][ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.watchers[collection], ch)
			if len(f.watchers[collection]) == 0 {
				delete(f.watchers, collection)
			}
			f.mu.Unlock()
			close(ch)
		})
	}
}

// watcherCount is used by tests to assert teardown.
func (f *LocalFeed) watcherCount(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.watchers[collection])
}
