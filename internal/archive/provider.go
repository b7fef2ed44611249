// Package archive defines the blob storage used to retain fetched page
// content for offline audits. The abstraction keeps the monitor
// independent of a specific backend (GCS, the local filesystem, or none).
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Provider is the common interface for a blob store.
type Provider interface {
	// Save uploads data to a specified object path/key in the store.
	Save(ctx context.Context, objectName string, data []byte) error
}

// NoOpProvider discards all content. Useful for dry runs and tests.
type NoOpProvider struct{}

// Save for NoOpProvider does nothing and always returns nil.
func (n *NoOpProvider) Save(_ context.Context, _ string, _ []byte) error {
	return nil
}

var invalidObjectChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ObjectName builds a stable object key from the prefix, the target host,
// the fetch day, and a content digest, so repeat saves of identical
// content on the same day collapse to one object.
func ObjectName(prefix, host string, fetchedAt time.Time, data []byte) string {
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])[:16]
	cleanedHost := invalidObjectChars.ReplaceAllString(host, "_")
	name := fmt.Sprintf("%s/%s_%s.txt", fetchedAt.UTC().Format("2006-01-02"), cleanedHost, digest)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
