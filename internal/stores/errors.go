package stores

import (
	"errors"

	"github.com/chamsedd0/neighbor/internal/gateway"
)

// Messages here are shown to users verbatim.
var (
	ErrNotLoggedIn         = errors.New("You must be logged in")
	ErrViewNotLoggedIn     = errors.New("You must be logged in to view your properties")
	ErrCreateNotLoggedIn   = errors.New("You must be logged in to create a property")
	ErrBookNotLoggedIn     = errors.New("You must be logged in to request a booking")
	ErrNotOwner            = errors.New("Only the owner can modify this property")
	ErrInvalidCredentials  = errors.New("Invalid email or password")
	ErrEmailInUse          = errors.New("Email already in use")
	ErrInvalidRole         = errors.New("Invalid role")
	ErrInvalidStatus       = errors.New("Invalid booking status")
	ErrInvalidTransition   = errors.New("Booking status change not allowed")
	ErrInvalidDates        = errors.New("End date must be after start date")
	ErrInvalidConversation = errors.New("A conversation needs exactly two participants")
	ErrTooManyConflicts    = errors.New("Property was modified concurrently, try again")

	// ErrSuperseded is returned by a fetch whose result was discarded because a
	// newer fetch of the same list started after it. Store state is untouched.
	ErrSuperseded = errors.New("request superseded by a newer one")
)

type notFoundError struct{ entity string }

func (e notFoundError) Error() string { return e.entity + " not found" }

// Is makes every not-found error match gateway.ErrNotFound.
func (e notFoundError) Is(target error) bool { return target == gateway.ErrNotFound }

var (
	ErrPropertyNotFound     error = notFoundError{"Property"}
	ErrBookingNotFound      error = notFoundError{"Booking"}
	ErrConversationNotFound error = notFoundError{"Conversation"}
	ErrUserNotFound         error = notFoundError{"User"}
)

// notFound maps gateway.ErrNotFound to the entity-specific error.
func notFound(err, entityErr error) error {
	if errors.Is(err, gateway.ErrNotFound) {
		return entityErr
	}
	return err
}

// IsPrecondition reports errors raised before any backend call because the
// session lacks identity or permission.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrNotLoggedIn) || errors.Is(err, ErrViewNotLoggedIn) ||
		errors.Is(err, ErrCreateNotLoggedIn) || errors.Is(err, ErrBookNotLoggedIn)
}
