package stores

import (
	"context"
	"time"

	"github.com/chamsedd0/neighbor/internal/events"
	"github.com/chamsedd0/neighbor/internal/gateway"
	"github.com/chamsedd0/neighbor/internal/models"
	"github.com/chamsedd0/neighbor/pkg/utils"
)

// bookingTransitions is the lifecycle enforced in strict mode. Statuses with
// no entry are terminal.
var bookingTransitions = map[models.BookingStatus][]models.BookingStatus{
	models.BookingPending:  {models.BookingApproved, models.BookingRejected, models.BookingCancelled},
	models.BookingApproved: {models.BookingCancelled, models.BookingCompleted},
}

// CanTransition reports whether strict mode allows moving from one status to another.
func CanTransition(from, to models.BookingStatus) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// BookingInput is a tenant's booking request. The owner and total price
// always come from the property.
type BookingInput struct {
	PropertyID string    `json:"propertyId" binding:"required"`
	StartDate  time.Time `json:"startDate" binding:"required"`
	EndDate    time.Time `json:"endDate" binding:"required"`
	Message    string    `json:"message"`
}

type BookingState struct {
	Bookings        []models.Booking `json:"bookings"`
	TenantBookings  []models.Booking `json:"tenantBookings"`
	OwnerBookings   []models.Booking `json:"ownerBookings"`
	SelectedBooking *models.Booking  `json:"selectedBooking"`
	IsLoading       bool             `json:"isLoading"`
	Error           string           `json:"error,omitempty"`
}

// BookingStore holds the booking views of one session.
type BookingStore struct {
	storeBase
	gw     gateway.Gateway
	events events.Publisher
	auth   identity
	strict bool

	bookings       []models.Booking
	tenantBookings []models.Booking
	ownerBookings  []models.Booking
	selected       *models.Booking

	listGen   generation
	tenantGen generation
	ownerGen  generation
}

func newBookingStore(gw gateway.Gateway, pub events.Publisher, auth identity, notifier Notifier, strict bool) *BookingStore {
	s := &BookingStore{gw: gw, events: pub, auth: auth, strict: strict}
	s.setup("bookings", notifier)
	return s
}

func (s *BookingStore) State() BookingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := BookingState{
		Bookings:       append([]models.Booking(nil), s.bookings...),
		TenantBookings: append([]models.Booking(nil), s.tenantBookings...),
		OwnerBookings:  append([]models.Booking(nil), s.ownerBookings...),
		IsLoading:      s.loading(),
		Error:          s.err,
	}
	if s.selected != nil {
		b := *s.selected
		st.SelectedBooking = &b
	}
	return st
}

// fetchInto runs a newest-first booking query and hands the result to apply
// unless a newer fetch of the same list started meanwhile.
func (s *BookingStore) fetchInto(ctx context.Context, op string, gen *generation, filters []gateway.Filter, apply func([]models.Booking)) error {
	s.mu.Lock()
	ctx, n, cancel := gen.next(ctx)
	s.mu.Unlock()
	defer cancel()

	return s.track(op, func() error {
		page, err := gateway.List[models.Booking](ctx, s.gw, gateway.Query{
			Collection: models.CollectionBookings,
			Filters:    filters,
			OrderBy:    models.FieldCreatedAt,
			Descending: true,
		})

		s.mu.Lock()
		defer s.mu.Unlock()
		if gen.stale(n) {
			return ErrSuperseded
		}
		if err != nil {
			return err
		}
		apply(page.Items)
		return nil
	})
}

func (s *BookingStore) FetchBookings(ctx context.Context) error {
	return s.fetchInto(ctx, "fetchBookings", &s.listGen, nil, func(b []models.Booking) { s.bookings = b })
}

func (s *BookingStore) FetchTenantBookings(ctx context.Context, tenantID string) error {
	return s.fetchInto(ctx, "fetchTenantBookings", &s.tenantGen,
		[]gateway.Filter{gateway.Where(models.FieldTenantID, gateway.OpEq, tenantID)},
		func(b []models.Booking) { s.tenantBookings = b })
}

func (s *BookingStore) FetchOwnerBookings(ctx context.Context, ownerID string) error {
	return s.fetchInto(ctx, "fetchOwnerBookings", &s.ownerGen,
		[]gateway.Filter{gateway.Where(models.FieldOwnerID, gateway.OpEq, ownerID)},
		func(b []models.Booking) { s.ownerBookings = b })
}

// FetchPropertyBookings writes into the same list as FetchBookings.
func (s *BookingStore) FetchPropertyBookings(ctx context.Context, propertyID string) error {
	return s.fetchInto(ctx, "fetchPropertyBookings", &s.listGen,
		[]gateway.Filter{gateway.Where(models.FieldPropertyID, gateway.OpEq, propertyID)},
		func(b []models.Booking) { s.bookings = b })
}

func (s *BookingStore) FetchBookingByID(ctx context.Context, id string) (models.Booking, error) {
	var b models.Booking
	err := s.track("fetchBookingById", func() error {
		var err error
		b, err = gateway.Fetch[models.Booking](ctx, s.gw, models.CollectionBookings, id)
		if err != nil {
			return notFound(err, ErrBookingNotFound)
		}
		s.mu.Lock()
		s.selected = &b
		s.mu.Unlock()
		return nil
	})
	return b, err
}

// CreateBooking files a pending booking for the signed-in tenant and refreshes
// the full booking list. Returns the new id.
func (s *BookingStore) CreateBooking(ctx context.Context, in BookingInput) (string, error) {
	var id string
	err := s.track("createBooking", func() error {
		uid := s.auth.CurrentUserID()
		if uid == "" {
			return ErrBookNotLoggedIn
		}
		if !in.EndDate.After(in.StartDate) {
			return ErrInvalidDates
		}

		p, err := gateway.Fetch[models.Property](ctx, s.gw, models.CollectionProperties, in.PropertyID)
		if err != nil {
			return notFound(err, ErrPropertyNotFound)
		}

		now := time.Now()
		b := models.Booking{
			ID:         utils.GenerateID(),
			PropertyID: in.PropertyID,
			TenantID:   uid,
			OwnerID:    p.OwnerID,
			StartDate:  in.StartDate,
			EndDate:    in.EndDate,
			TotalPrice: models.CalculateTotalPrice(in.StartDate, in.EndDate, p.Price, p.PriceUnit),
			Status:     models.BookingPending,
			Message:    in.Message,
			Version:    1,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.gw.Create(ctx, models.CollectionBookings, &b); err != nil {
			return err
		}
		id = b.ID
		s.publish(ctx, events.ActionCreate, b.ID)
		return ignoreSuperseded(s.FetchBookings(ctx))
	})
	if err != nil {
		s.failure("Error", err)
		return id, err
	}
	s.success("Booking request sent successfully")
	return id, nil
}

// UpdateBookingStatus overwrites the status. In strict mode the change must
// follow the booking lifecycle and is written against the version read.
func (s *BookingStore) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) error {
	err := s.track("updateBookingStatus", func() error {
		if !status.Valid() {
			return ErrInvalidStatus
		}
		fields := map[string]any{
			models.FieldStatus:    status,
			models.FieldUpdatedAt: time.Now(),
		}

		if s.strict {
			current, err := gateway.Fetch[models.Booking](ctx, s.gw, models.CollectionBookings, id)
			if err != nil {
				return notFound(err, ErrBookingNotFound)
			}
			if !CanTransition(current.Status, status) {
				return ErrInvalidTransition
			}
			if err := s.gw.UpdateIf(ctx, models.CollectionBookings, id, current.Version, fields); err != nil {
				return notFound(err, ErrBookingNotFound)
			}
		} else if err := s.gw.Increment(ctx, models.CollectionBookings, id, models.FieldVersion, 1, fields); err != nil {
			return notFound(err, ErrBookingNotFound)
		}
		s.publish(ctx, events.ActionUpdate, id)

		s.mu.Lock()
		reload := s.selected != nil && s.selected.ID == id
		s.mu.Unlock()
		if reload {
			if _, err := s.FetchBookingByID(ctx, id); err != nil {
				return err
			}
		}
		return ignoreSuperseded(s.FetchBookings(ctx))
	})
	if err != nil {
		s.failure("Error", err)
		return err
	}
	s.success("Booking status updated")
	return nil
}

func (s *BookingStore) DeleteBooking(ctx context.Context, id string) error {
	err := s.track("deleteBooking", func() error {
		if err := s.gw.Delete(ctx, models.CollectionBookings, id); err != nil {
			return notFound(err, ErrBookingNotFound)
		}
		s.mu.Lock()
		if s.selected != nil && s.selected.ID == id {
			s.selected = nil
		}
		s.mu.Unlock()
		s.publish(ctx, events.ActionDelete, id)
		return ignoreSuperseded(s.FetchBookings(ctx))
	})
	if err != nil {
		s.failure("Error", err)
		return err
	}
	s.success("Booking deleted")
	return nil
}

func (s *BookingStore) publish(ctx context.Context, action events.Action, id string) {
	e := events.Event{Entity: models.CollectionBookings, Action: action, ID: id, At: time.Now().UTC()}
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn().Err(err).Str("id", id).Msg("Failed to publish booking event")
	}
}
