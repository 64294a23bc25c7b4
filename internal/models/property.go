package models

import (
	"database/sql/driver"
	"time"

	"gorm.io/datatypes"
)

type PriceUnit string

const (
	PriceUnitDay   PriceUnit = "day"
	PriceUnitWeek  PriceUnit = "week"
	PriceUnitMonth PriceUnit = "month"
)

// Valid reports whether u is one of the supported billing periods.
func (u PriceUnit) Valid() bool {
	switch u {
	case PriceUnitDay, PriceUnitWeek, PriceUnitMonth:
		return true
	}
	return false
}

type Coordinates struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

type Location struct {
	Address     string       `json:"address" bson:"address"`
	City        string       `json:"city" bson:"city"`
	State       string       `json:"state" bson:"state"`
	ZipCode     string       `json:"zipCode" bson:"zip_code"`
	Country     string       `json:"country" bson:"country"`
	Coordinates *Coordinates `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
}

// String renders "city, state, country" for listings.
func (l Location) String() string {
	return l.City + ", " + l.State + ", " + l.Country
}

func (Location) GormDataType() string { return "json" }

func (l Location) Value() (driver.Value, error) { return jsonColumn(l) }

func (l *Location) Scan(src any) error { return scanJSONColumn(src, l) }

type Availability struct {
	IsAvailable   bool       `json:"isAvailable" bson:"is_available"`
	AvailableFrom *time.Time `json:"availableFrom,omitempty" bson:"available_from,omitempty"`
	AvailableTo   *time.Time `json:"availableTo,omitempty" bson:"available_to,omitempty"`
}

func (Availability) GormDataType() string { return "json" }

func (a Availability) Value() (driver.Value, error) { return jsonColumn(a) }

func (a *Availability) Scan(src any) error { return scanJSONColumn(src, a) }

type Amenity struct {
	ID   string `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
	Icon string `json:"icon,omitempty" bson:"icon,omitempty"`
}

type PropertyImage struct {
	ID         string `json:"id" bson:"id"`
	URL        string `json:"url" bson:"url"`
	IsFeatured bool   `json:"isFeatured" bson:"is_featured"`
}

// Property is a rental listing owned by a single user.
type Property struct {
	ID           string                             `gorm:"primaryKey;type:text" json:"id" bson:"_id"`
	OwnerID      string                             `gorm:"index;type:text;not null" json:"ownerId" bson:"owner_id"`
	Title        string                             `gorm:"type:text;not null" json:"title" bson:"title"`
	Description  string                             `gorm:"type:text" json:"description" bson:"description"`
	Price        float64                            `gorm:"index" json:"price" bson:"price"`
	PriceUnit    PriceUnit                          `gorm:"type:text" json:"priceUnit" bson:"price_unit"`
	Bedrooms     int                                `json:"bedrooms" bson:"bedrooms"`
	Bathrooms    int                                `json:"bathrooms" bson:"bathrooms"`
	SquareFeet   int                                `json:"squareFeet" bson:"square_feet"`
	PropertyType string                             `gorm:"type:text;index" json:"propertyType" bson:"property_type"`
	Location     Location                           `json:"location" bson:"location"`
	Amenities    datatypes.JSONSlice[Amenity]       `json:"amenities" bson:"amenities"`
	Images       datatypes.JSONSlice[PropertyImage] `json:"images" bson:"images"`
	Availability Availability                       `json:"availability" bson:"availability"`
	Version      int64                              `gorm:"not null" json:"version" bson:"version"`
	CreatedAt    time.Time                          `gorm:"index" json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time                          `json:"updatedAt" bson:"updated_at"`
}

func (Property) TableName() string { return CollectionProperties }

func (p Property) DocID() string { return p.ID }

func (p Property) OrderValue(field string) time.Time {
	return orderValue(field, p.CreatedAt, p.UpdatedAt)
}

// FeaturedImage returns the image flagged as featured, if any.
func (p Property) FeaturedImage() (PropertyImage, bool) {
	for _, img := range p.Images {
		if img.IsFeatured {
			return img, true
		}
	}
	return PropertyImage{}, false
}
