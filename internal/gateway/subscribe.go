package gateway

import (
	"context"
	"sync"
)

// Subscription is a live query started by Subscribe.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Unsubscribe stops the live query and waits for the delivery goroutine to
// exit. No callback runs after it returns. It must not be called from inside
// the callback.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Done is closed once the subscription has fully stopped.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Subscribe runs q once immediately and again after every change signal on the
// query's collection, handing each full snapshot to fn. Errors are delivered to
// fn as well and do not end the subscription. The subscription also ends when
// ctx is cancelled.
func Subscribe[T Document](ctx context.Context, gw Gateway, q Query, fn func([]T, error)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	// Watch before the first read so a write racing the snapshot is not lost.
	changes, stop := gw.Changes().Watch(q.Collection)

	go func() {
		defer close(sub.done)
		defer stop()

		deliver := func() {
			page, err := List[T](ctx, gw, q)
			if ctx.Err() != nil {
				return
			}
			fn(page.Items, err)
		}

		deliver()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				deliver()
			}
		}
	}()

	return sub
}
