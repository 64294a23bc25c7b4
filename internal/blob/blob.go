// Package blob stores property images in object storage.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrNotFound = errors.New("blob not found")

// Store puts and deletes objects addressed by key.
type Store interface {
	// Put uploads body under key and returns its public URL.
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// PropertyImageKey is the storage key of one property image.
func PropertyImageKey(propertyID, imageID string) string {
	return fmt.Sprintf("properties/%s/%s", propertyID, imageID)
}

func publicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
