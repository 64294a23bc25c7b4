package handlers

import (
	"net/http"

	"github.com/chamsedd0/neighbor/internal/models"
	"github.com/chamsedd0/neighbor/internal/stores"
	apperrors "github.com/chamsedd0/neighbor/pkg/errors"
	"github.com/gin-gonic/gin"
)

// isParty reports whether the session may see and act on b.
func isParty(s *stores.Session, b models.Booking) bool {
	uid := s.Auth.CurrentUserID()
	return uid == b.TenantID || uid == b.OwnerID || s.Auth.Role() == models.RoleAdmin
}

// canSetStatus reports whether the session may move b to status. Tenants
// may only cancel; every other change belongs to the owner or an admin.
func canSetStatus(s *stores.Session, b models.Booking, status models.BookingStatus) bool {
	uid := s.Auth.CurrentUserID()
	if uid == b.OwnerID || s.Auth.Role() == models.RoleAdmin {
		return true
	}
	return uid == b.TenantID && status == models.BookingCancelled
}

// ListBookings serves ?scope=tenant|owner|property. Without a scope tenants
// see their requests, owners the requests on their listings and admins
// everything.
func ListBookings(c *gin.Context) {
	s := session(c)
	ctx := c.Request.Context()
	uid := s.Auth.CurrentUserID()

	scope := c.Query("scope")
	if scope == "" {
		switch s.Auth.Role() {
		case models.RoleTenant:
			scope = "tenant"
		case models.RoleOwner:
			scope = "owner"
		case models.RoleAdmin:
		default:
			fail(c, apperrors.Forbidden("Insufficient permissions"))
			return
		}
	}

	var (
		bookings []models.Booking
		err      error
	)
	switch scope {
	case "tenant":
		err = s.Bookings.FetchTenantBookings(ctx, uid)
		bookings = s.Bookings.State().TenantBookings
	case "owner":
		err = s.Bookings.FetchOwnerBookings(ctx, uid)
		bookings = s.Bookings.State().OwnerBookings
	case "property":
		propertyID := c.Query("propertyId")
		if propertyID == "" {
			badRequest(c, "propertyId is required")
			return
		}
		p, perr := s.Properties.FetchPropertyByID(ctx, propertyID)
		if perr != nil {
			fail(c, perr)
			return
		}
		if p.OwnerID != uid && s.Auth.Role() != models.RoleAdmin {
			fail(c, apperrors.Forbidden("Only the owner can view bookings for this property"))
			return
		}
		err = s.Bookings.FetchPropertyBookings(ctx, propertyID)
		bookings = s.Bookings.State().Bookings
	case "":
		err = s.Bookings.FetchBookings(ctx)
		bookings = s.Bookings.State().Bookings
	default:
		badRequest(c, "scope must be tenant, owner or property")
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"bookings": list(bookings)})
}

func loadBooking(c *gin.Context) (models.Booking, bool) {
	s := session(c)
	b, err := s.Bookings.FetchBookingByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return b, false
	}
	if !isParty(s, b) {
		fail(c, apperrors.Forbidden("Not a party to this booking"))
		return b, false
	}
	return b, true
}

func GetBooking(c *gin.Context) {
	b, ok := loadBooking(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, gin.H{"booking": b})
}

func CreateBooking(c *gin.Context) {
	var input stores.BookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	s := session(c)
	ctx := c.Request.Context()
	id, err := s.Bookings.CreateBooking(ctx, input)
	if err != nil {
		fail(c, err)
		return
	}
	b, err := s.Bookings.FetchBookingByID(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"booking": b})
}

type bookingStatusInput struct {
	Status models.BookingStatus `json:"status" binding:"required"`
}

func UpdateBookingStatus(c *gin.Context) {
	var input bookingStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	b, ok := loadBooking(c)
	if !ok {
		return
	}

	s := session(c)
	if !canSetStatus(s, b, input.Status) {
		fail(c, apperrors.Forbidden("Only the owner can change this booking's status"))
		return
	}
	ctx := c.Request.Context()
	if err := s.Bookings.UpdateBookingStatus(ctx, b.ID, input.Status); err != nil {
		fail(c, err)
		return
	}
	b, err := s.Bookings.FetchBookingByID(ctx, b.ID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"booking": b})
}

func DeleteBooking(c *gin.Context) {
	b, ok := loadBooking(c)
	if !ok {
		return
	}
	if err := session(c).Bookings.DeleteBooking(c.Request.Context(), b.ID); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Booking deleted"})
}
