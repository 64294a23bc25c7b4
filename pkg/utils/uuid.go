package utils

import "github.com/google/uuid"

// GenerateID returns a new random document id.
func GenerateID() string {
	return uuid.New().String()
}

// ShortID returns the first 8 hex characters of a random UUID.
func ShortID() string {
	return uuid.New().String()[:8]
}

// IsUUID checks if the string is a valid UUID
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
