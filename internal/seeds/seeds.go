// Package seeds fills a development database with sample listings,
// bookings and a conversation, going through the same stores the API uses.
package seeds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chamsedd0/neighbor/internal/models"
	"github.com/chamsedd0/neighbor/internal/stores"
	"github.com/chamsedd0/neighbor/pkg/logger"
)

// DefaultPassword is shared by every seeded account.
const DefaultPassword = "neighbor-dev"

type Options struct {
	Owners             int
	PropertiesPerOwner int
	Tenants            int
}

type Summary struct {
	Users         int
	Properties    int
	Bookings      int
	Conversations int
}

var cities = []models.Location{
	{City: "Lisbon", State: "Lisboa", Country: "Portugal"},
	{City: "Porto", State: "Porto", Country: "Portugal"},
	{City: "Austin", State: "TX", Country: "USA"},
	{City: "Denver", State: "CO", Country: "USA"},
}

var propertyTypes = []string{"apartment", "house", "studio", "condo"}

var units = []models.PriceUnit{models.PriceUnitMonth, models.PriceUnitWeek, models.PriceUnitDay}

// account signs up email, or signs in when it already exists.
func account(ctx context.Context, s *stores.Session, email string, role models.Role, name string) (bool, error) {
	err := s.Auth.SignUp(ctx, email, DefaultPassword, role, name)
	if errors.Is(err, stores.ErrEmailInUse) {
		return false, s.Auth.SignIn(ctx, email, DefaultPassword)
	}
	return err == nil, err
}

func sampleProperty(owner, n int) stores.PropertyInput {
	loc := cities[(owner+n)%len(cities)]
	loc.Address = fmt.Sprintf("%d Sample Street", 10+n)
	unit := units[n%len(units)]
	price := 900 + float64(owner*250+n*100)
	switch unit {
	case models.PriceUnitWeek:
		price /= 4
	case models.PriceUnitDay:
		price /= 30
	}
	kind := propertyTypes[n%len(propertyTypes)]
	return stores.PropertyInput{
		Title:        fmt.Sprintf("%s %d in %s", kind, n+1, loc.City),
		Description:  "Seeded listing",
		Price:        price,
		PriceUnit:    unit,
		Bedrooms:     1 + n%4,
		Bathrooms:    1 + n%2,
		SquareFeet:   500 + n*120,
		PropertyType: kind,
		Location:     loc,
		Amenities: []models.Amenity{
			{ID: "wifi", Name: "Wi-Fi", Icon: "wifi"},
			{ID: "washer", Name: "Washer"},
		},
		Availability: models.Availability{IsAvailable: true},
	}
}

// Run seeds the store behind deps. Accounts that already exist are reused;
// listings, bookings and messages are added on every run.
func Run(ctx context.Context, deps stores.Deps, opts Options) (Summary, error) {
	var sum Summary
	deps.Notifier = stores.NotifierFunc(func(stores.Toast) {})

	var ownerIDs, propertyIDs []string
	for o := 0; o < opts.Owners; o++ {
		err := func() error {
			s := stores.NewSession(ctx, deps)
			defer s.Close()

			created, err := account(ctx, s, fmt.Sprintf("owner%d@neighbor.dev", o+1), models.RoleOwner, fmt.Sprintf("Owner %d", o+1))
			if err != nil {
				return err
			}
			if created {
				sum.Users++
			}
			ownerIDs = append(ownerIDs, s.Auth.CurrentUserID())

			for n := 0; n < opts.PropertiesPerOwner; n++ {
				id, err := s.Properties.CreateProperty(ctx, sampleProperty(o, n))
				if err != nil {
					return fmt.Errorf("property %d: %w", n+1, err)
				}
				propertyIDs = append(propertyIDs, id)
				sum.Properties++
			}
			return nil
		}()
		if err != nil {
			return sum, fmt.Errorf("owner %d: %w", o+1, err)
		}
	}

	start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 1, 0)
	for t := 0; t < opts.Tenants; t++ {
		err := func() error {
			s := stores.NewSession(ctx, deps)
			defer s.Close()

			created, err := account(ctx, s, fmt.Sprintf("tenant%d@neighbor.dev", t+1), models.RoleTenant, fmt.Sprintf("Tenant %d", t+1))
			if err != nil {
				return err
			}
			if created {
				sum.Users++
			}

			if len(propertyIDs) > 0 {
				from := start.AddDate(0, 0, 7*t)
				if _, err := s.Bookings.CreateBooking(ctx, stores.BookingInput{
					PropertyID: propertyIDs[t%len(propertyIDs)],
					StartDate:  from,
					EndDate:    from.AddDate(0, 0, 14),
					Message:    "Seeded booking request",
				}); err != nil {
					return fmt.Errorf("booking: %w", err)
				}
				sum.Bookings++
			}

			if len(ownerIDs) > 0 {
				uid := s.Auth.CurrentUserID()
				owner := ownerIDs[t%len(ownerIDs)]
				convID, err := s.Messages.CreateConversation(ctx, []string{uid, owner}, "")
				if err != nil {
					return fmt.Errorf("conversation: %w", err)
				}
				if _, err := s.Messages.SendMessage(ctx, convID, uid, owner, "Hi! Is the place still available?"); err != nil {
					return fmt.Errorf("message: %w", err)
				}
				sum.Conversations++
			}
			return nil
		}()
		if err != nil {
			return sum, fmt.Errorf("tenant %d: %w", t+1, err)
		}
	}

	logger.Info().
		Int("users", sum.Users).
		Int("properties", sum.Properties).
		Int("bookings", sum.Bookings).
		Int("conversations", sum.Conversations).
		Msg("Seed complete")
	return sum, nil
}
