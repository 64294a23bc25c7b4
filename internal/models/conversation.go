package models

import (
	"database/sql/driver"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// LastMessage is the denormalized copy of a conversation's newest message.
type LastMessage struct {
	ID        string    `json:"id" bson:"id"`
	Content   string    `json:"content" bson:"content"`
	SenderID  string    `json:"senderId" bson:"sender_id"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

func (*LastMessage) GormDataType() string { return "json" }

func (m *LastMessage) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return jsonColumn(m)
}

func (m *LastMessage) Scan(src any) error { return scanJSONColumn(src, m) }

// Conversation is a two-party message thread, optionally about a property.
type Conversation struct {
	ID             string                      `gorm:"primaryKey;type:text" json:"id" bson:"_id"`
	Participants   datatypes.JSONSlice[string] `json:"participants" bson:"participants"`
	ParticipantKey string                      `gorm:"index;type:text;not null" json:"-" bson:"participant_key"`
	PropertyID     string                      `gorm:"type:text" json:"propertyId,omitempty" bson:"property_id,omitempty"`
	LastMessage    *LastMessage                `json:"lastMessage,omitempty" bson:"last_message,omitempty"`
	UnreadCount    int                         `gorm:"not null" json:"unreadCount" bson:"unread_count"`
	Version        int64                       `gorm:"not null" json:"version" bson:"version"`
	CreatedAt      time.Time                   `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time                   `gorm:"index" json:"updatedAt" bson:"updated_at"`
}

func (Conversation) TableName() string { return CollectionConversations }

func (c Conversation) DocID() string { return c.ID }

func (c Conversation) OrderValue(field string) time.Time {
	return orderValue(field, c.CreatedAt, c.UpdatedAt)
}

// HasParticipant reports whether uid takes part in the conversation.
func (c Conversation) HasParticipant(uid string) bool {
	for _, p := range c.Participants {
		if p == uid {
			return true
		}
	}
	return false
}

// Counterpart returns the other participant, or "" if uid is not a participant.
func (c Conversation) Counterpart(uid string) string {
	if !c.HasParticipant(uid) {
		return ""
	}
	for _, p := range c.Participants {
		if p != uid {
			return p
		}
	}
	return ""
}

// SortParticipants returns a sorted copy of ids. Conversations are always stored
// with sorted participants so the existence check is order-insensitive.
func SortParticipants(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

// ParticipantKey joins sorted participant ids into the lookup key.
func ParticipantKey(ids []string) string {
	return strings.Join(SortParticipants(ids), "|")
}

// Message is one entry of a conversation. Only Read ever changes after creation.
type Message struct {
	ID             string    `gorm:"primaryKey;type:text" json:"id" bson:"_id"`
	ConversationID string    `gorm:"index;type:text;not null" json:"conversationId" bson:"conversation_id"`
	SenderID       string    `gorm:"type:text;not null" json:"senderId" bson:"sender_id"`
	ReceiverID     string    `gorm:"index;type:text;not null" json:"receiverId" bson:"receiver_id"`
	Content        string    `gorm:"type:text;not null" json:"content" bson:"content"`
	Read           bool      `gorm:"not null" json:"read" bson:"read"`
	CreatedAt      time.Time `gorm:"index" json:"createdAt" bson:"created_at"`
}

func (Message) TableName() string { return CollectionMessages }

func (m Message) DocID() string { return m.ID }

func (m Message) OrderValue(string) time.Time { return m.CreatedAt }
