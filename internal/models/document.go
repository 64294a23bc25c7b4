package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Collection names, shared by every gateway backend.
const (
	CollectionUsers         = "users"
	CollectionProperties    = "properties"
	CollectionBookings      = "bookings"
	CollectionConversations = "conversations"
	CollectionMessages      = "messages"
)

// Field names as stored. GORM columns and BSON keys use the same spelling.
const (
	FieldID             = "id"
	FieldCreatedAt      = "created_at"
	FieldUpdatedAt      = "updated_at"
	FieldVersion        = "version"
	FieldOwnerID        = "owner_id"
	FieldTitle          = "title"
	FieldDescription    = "description"
	FieldPriceUnit      = "price_unit"
	FieldSquareFeet     = "square_feet"
	FieldLocation       = "location"
	FieldAmenities      = "amenities"
	FieldAvailability   = "availability"
	FieldTenantID       = "tenant_id"
	FieldPropertyID     = "property_id"
	FieldPrice          = "price"
	FieldBedrooms       = "bedrooms"
	FieldBathrooms      = "bathrooms"
	FieldPropertyType   = "property_type"
	FieldImages         = "images"
	FieldStatus         = "status"
	FieldEmail          = "email"
	FieldParticipants   = "participants"
	FieldParticipantKey = "participant_key"
	FieldConversationID = "conversation_id"
	FieldReceiverID     = "receiver_id"
	FieldRead           = "read"
	FieldLastMessage    = "last_message"
	FieldUnreadCount    = "unread_count"
)

// orderValue picks the timestamp a list is ordered by.
func orderValue(field string, createdAt, updatedAt time.Time) time.Time {
	if field == FieldUpdatedAt {
		return updatedAt
	}
	return createdAt
}

// jsonColumn marshals a nested value into a JSON column.
func jsonColumn(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// scanJSONColumn decodes a JSON column produced by jsonColumn.
func scanJSONColumn(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("models: cannot scan %T into JSON column", src)
	}
}

// Tables lists the models persisted by the relational backend, in migration order.
func Tables() []any {
	return []any{&User{}, &Property{}, &Booking{}, &Conversation{}, &Message{}}
}
