package models

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
	RoleTenant Role = "tenant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOwner, RoleTenant:
		return true
	}
	return false
}

// User is the profile stored for an identity, keyed by uid.
// Role is assigned at signup and never changed afterwards.
type User struct {
	ID           string    `gorm:"primaryKey;type:text" json:"uid" bson:"_id"`
	Email        string    `gorm:"uniqueIndex;type:text;not null" json:"email" bson:"email"`
	DisplayName  string    `gorm:"type:text" json:"displayName" bson:"display_name"`
	Role         Role      `gorm:"type:text;not null" json:"role" bson:"role"`
	PhotoURL     string    `gorm:"type:text" json:"photoURL,omitempty" bson:"photo_url,omitempty"`
	Provider     string    `gorm:"type:text" json:"provider" bson:"provider"`
	PasswordHash string    `gorm:"type:text" json:"-" bson:"password_hash,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}

func (User) TableName() string { return CollectionUsers }

func (u User) DocID() string { return u.ID }

func (u User) OrderValue(field string) time.Time {
	return orderValue(field, u.CreatedAt, u.UpdatedAt)
}
