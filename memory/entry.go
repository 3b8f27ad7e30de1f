package memory

import (
	"fmt"
	"path"
	"strings"
)

// Entry is a key-value pair. Keys are /-separated relative paths.
type Entry struct {
	Key   string
	Value []byte
}

// ValidateKey rejects keys that are empty, absolute, hidden or that escape
// the store root.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	if path.Clean(key) != key {
		return fmt.Errorf("%w: %s is not a clean path", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || strings.HasPrefix(part, ".") {
			return fmt.Errorf("%w: %s", ErrInvalidKey, key)
		}
	}
	return nil
}
