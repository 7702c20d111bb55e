package gcs

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrInvalidURI is returned for strings that are not gs://bucket/object.
var ErrInvalidURI = errors.New("invalid GCS URI")

const scheme = "gs://"

// IsURI reports whether s uses the gs:// scheme.
func IsURI(s string) bool {
	return strings.HasPrefix(s, scheme)
}

// ParseURI splits "gs://bucket/path/to/object" into bucket and object.
func ParseURI(uri string) (bucket, object string, err error) {
	if !IsURI(uri) {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidURI, uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, scheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w (no object path): %s", ErrInvalidURI, uri)
	}
	return parts[0], parts[1], nil
}

// URI builds a gs:// URI.
func URI(bucket, object string) string {
	return scheme + bucket + "/" + strings.TrimPrefix(object, "/")
}

// ExtractFilename returns the last path element of a GCS URI.
// e.g., "gs://bucket/folder/batch.csv" → "batch.csv"
func ExtractFilename(uri string) string {
	trimmed := strings.TrimPrefix(uri, scheme)
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}
