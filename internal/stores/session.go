// Package stores holds the per-session client state of the marketplace: the
// signed-in identity and the property, booking and message views, each backed
// by a gateway.
package stores

import (
	"context"

	"github.com/chamsedd0/neighbor/internal/blob"
	"github.com/chamsedd0/neighbor/internal/events"
	"github.com/chamsedd0/neighbor/internal/gateway"
)

// Deps are the process-wide services a session is built on. Only Gateway is
// required.
type Deps struct {
	Gateway  gateway.Gateway
	Blobs    blob.Store
	Events   events.Publisher
	Notifier Notifier
	Users    *UserDirectory
	Revoker  Revoker

	StrictBookingTransitions bool
	PageSize                 int
}

// Session is one client's set of stores. Sessions are cheap; the HTTP layer
// builds one per request and the socket layer one per connection.
type Session struct {
	Auth       *AuthStore
	Properties *PropertyStore
	Bookings   *BookingStore
	Messages   *MessageStore

	cancel context.CancelFunc
	// ownUsers is set when the session built its own directory.
	ownUsers *UserDirectory
}

// NewSession wires the stores together. ctx bounds the session's live
// queries; Close ends them early.
func NewSession(ctx context.Context, deps Deps) *Session {
	if deps.Notifier == nil {
		deps.Notifier = LogNotifier{}
	}
	if deps.Events == nil {
		deps.Events = events.Noop{}
	}
	var ownUsers *UserDirectory
	if deps.Users == nil {
		ownUsers = NewUserDirectory(deps.Gateway, 0)
		deps.Users = ownUsers
	}
	if deps.Revoker == nil {
		deps.Revoker = noopRevoker{}
	}
	if deps.Blobs == nil {
		deps.Blobs = blob.NewMemory("")
	}

	ctx, cancel := context.WithCancel(ctx)
	auth := newAuthStore(deps.Gateway, deps.Users, deps.Revoker, deps.Notifier)
	return &Session{
		Auth:       auth,
		Properties: newPropertyStore(deps.Gateway, deps.Blobs, deps.Events, auth, deps.Notifier, deps.PageSize),
		Bookings:   newBookingStore(deps.Gateway, deps.Events, auth, deps.Notifier, deps.StrictBookingTransitions),
		Messages:   newMessageStore(ctx, deps.Gateway, deps.Notifier),
		cancel:     cancel,
		ownUsers:   ownUsers,
	}
}

// Close tears down the live message query and releases the session context.
func (s *Session) Close() {
	s.Messages.Cleanup()
	s.cancel()
	if s.ownUsers != nil {
		s.ownUsers.Close()
	}
}
