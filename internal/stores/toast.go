package stores

import (
	"sync"

	"github.com/chamsedd0/neighbor/pkg/logger"
)

type Variant string

const (
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
	VariantInfo    Variant = "info"
)

// Toast is a transient user-facing notification.
type Toast struct {
	Variant     Variant `json:"variant"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
}

// Notifier delivers toasts to whoever is watching the session.
type Notifier interface {
	Notify(t Toast)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Toast)

func (f NotifierFunc) Notify(t Toast) { f(t) }

// LogNotifier writes toasts to the application log. Used when no client is
// attached to the session, e.g. plain HTTP requests and the CLI.
type LogNotifier struct{}

func (LogNotifier) Notify(t Toast) {
	ev := logger.Debug()
	if t.Variant == VariantError {
		ev = logger.Info()
	}
	ev.Str("variant", string(t.Variant)).Str("title", t.Title).Msg(t.Description)
}

// ToastRecorder keeps every toast it receives.
type ToastRecorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *ToastRecorder) Notify(t Toast) {
	r.mu.Lock()
	r.toasts = append(r.toasts, t)
	r.mu.Unlock()
}

func (r *ToastRecorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}

// Last returns the most recent toast.
func (r *ToastRecorder) Last() (Toast, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.toasts) == 0 {
		return Toast{}, false
	}
	return r.toasts[len(r.toasts)-1], true
}

func (r *ToastRecorder) Reset() {
	r.mu.Lock()
	r.toasts = nil
	r.mu.Unlock()
}
