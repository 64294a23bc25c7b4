package models

import (
	"math"
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingApproved  BookingStatus = "approved"
	BookingRejected  BookingStatus = "rejected"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingApproved, BookingRejected, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// Booking is a tenant's request to rent a property for a date range.
type Booking struct {
	ID         string        `gorm:"primaryKey;type:text" json:"id" bson:"_id"`
	PropertyID string        `gorm:"index;type:text;not null" json:"propertyId" bson:"property_id"`
	TenantID   string        `gorm:"index;type:text;not null" json:"tenantId" bson:"tenant_id"`
	OwnerID    string        `gorm:"index;type:text;not null" json:"ownerId" bson:"owner_id"`
	StartDate  time.Time     `json:"startDate" bson:"start_date"`
	EndDate    time.Time     `json:"endDate" bson:"end_date"`
	TotalPrice float64       `json:"totalPrice" bson:"total_price"`
	Status     BookingStatus `gorm:"type:text;not null" json:"status" bson:"status"`
	Message    string        `gorm:"type:text" json:"message,omitempty" bson:"message,omitempty"`
	Version    int64         `gorm:"not null" json:"version" bson:"version"`
	CreatedAt  time.Time     `gorm:"index" json:"createdAt" bson:"created_at"`
	UpdatedAt  time.Time     `json:"updatedAt" bson:"updated_at"`
}

func (Booking) TableName() string { return CollectionBookings }

func (b Booking) DocID() string { return b.ID }

func (b Booking) OrderValue(field string) time.Time {
	return orderValue(field, b.CreatedAt, b.UpdatedAt)
}

// CalculateTotalPrice prices a stay of whole days at the given rate.
// Weekly and monthly rates are prorated over 7 and 30 days.
func CalculateTotalPrice(start, end time.Time, price float64, unit PriceUnit) float64 {
	days := math.Floor(end.Sub(start).Hours() / 24)

	switch unit {
	case PriceUnitDay:
		return price * days
	case PriceUnitWeek:
		return price * (days / 7)
	case PriceUnitMonth:
		return price * (days / 30)
	}
	return 0
}
