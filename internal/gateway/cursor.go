package gateway

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Cursor references the last record of a page: its ordering value plus its id,
// which breaks ties between records sharing a timestamp.
type Cursor struct {
	Value time.Time `json:"v"`
	ID    string    `json:"id"`
}

// Encode renders the cursor as an opaque URL-safe token.
func (c Cursor) Encode() string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses a token produced by Encode.
func DecodeCursor(token string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", ErrInvalidQuery)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.ID == "" {
		return nil, fmt.Errorf("%w: malformed cursor", ErrInvalidQuery)
	}
	c.Value = c.Value.UTC()
	return &c, nil
}
