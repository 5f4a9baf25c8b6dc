// Package objectstore is the gateway to the document blob store. Documents
// are written once at upload and read once per processing attempt; nothing
// here deletes.
package objectstore

import (
	"context"
	"fmt"

	id "talanta/pkg/domain"
)

// Key is the canonical object key for one verification's document.
func Key(userID id.UserID, recID id.VerificationID, ext string) string {
	return fmt.Sprintf("verifications/%s/%s.%s", userID, recID, ext)
}

// Gateway stores and retrieves document blobs.
type Gateway interface {
	// Put writes the document under key with the given content type.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get reads the document. A missing object comes back wrapping
	// sentinel.ErrNotFound; an unreachable store wraps
	// sentinel.ErrUnavailable.
	Get(ctx context.Context, key string) ([]byte, error)
}
