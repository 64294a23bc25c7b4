package stores

import (
	"context"
	"errors"
	"sync"

	"github.com/chamsedd0/neighbor/pkg/logger"
	"github.com/rs/zerolog"
)

// storeBase carries what every store shares: the state mutex, the loading
// counter, the last error and the notification sink.
//
// Loading is a counter rather than a flag so IsLoading stays true until every
// concurrent operation on the store has finished.
type storeBase struct {
	mu       sync.Mutex
	inFlight int
	err      string

	notifier Notifier
	log      zerolog.Logger
}

func (b *storeBase) setup(name string, notifier Notifier) {
	b.notifier = notifier
	b.log = logger.Component("store").With().Str("store", name).Logger()
}

// track runs fn as one store operation. The loading counter covers fn and a
// failure becomes the store error. A superseded fetch leaves the error alone.
func (b *storeBase) track(op string, fn func() error) error {
	b.mu.Lock()
	b.inFlight++
	b.err = ""
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	b.inFlight--
	if err != nil && !errors.Is(err, ErrSuperseded) {
		b.err = err.Error()
	}
	b.mu.Unlock()

	if err != nil && !errors.Is(err, ErrSuperseded) && !IsPrecondition(err) {
		b.log.Warn().Err(err).Str("op", op).Msg("Store operation failed")
	}
	return err
}

func (b *storeBase) loading() bool { return b.inFlight > 0 }

func (b *storeBase) ClearError() {
	b.mu.Lock()
	b.err = ""
	b.mu.Unlock()
}

func (b *storeBase) toast(variant Variant, title, description string) {
	b.notifier.Notify(Toast{Variant: variant, Title: title, Description: description})
}

func (b *storeBase) success(description string) {
	b.toast(VariantSuccess, "Success", description)
}

// failure raises an error toast for err, unless the fetch was superseded.
func (b *storeBase) failure(title string, err error) {
	if err == nil || errors.Is(err, ErrSuperseded) {
		return
	}
	b.toast(VariantError, title, err.Error())
}

// generation orders requests that write the same list. Starting a request
// cancels the one it supersedes; a response from a superseded request is
// discarded when it lands. Guarded by the owning store's mutex.
type generation struct {
	current uint64
	cancel  context.CancelFunc
}

func (g *generation) next(ctx context.Context) (context.Context, uint64, context.CancelFunc) {
	if g.cancel != nil {
		g.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	g.current++
	g.cancel = cancel
	return ctx, g.current, cancel
}

func (g *generation) stale(n uint64) bool { return n != g.current }
