package credential

import (
	"context"
	"errors"
	"strings"
)

// DefaultNamespace separates camera secrets from other application secrets.
const DefaultNamespace = "camera"

// Store is the secret store consumed by the camera manager. Get reports
// (secret, true, nil) when the key exists; a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, secret string) error
	Delete(ctx context.Context, key string) error
}

// ErrEmptyKey is returned for blank credential keys.
var ErrEmptyKey = errors.New("credential: empty key")

// Resolve fetches a secret and treats blank values as absent.
func Resolve(ctx context.Context, s Store, key string) (string, bool) {
	if s == nil || strings.TrimSpace(key) == "" {
		return "", false
	}
	secret, ok, err := s.Get(ctx, key)
	if err != nil || !ok || secret == "" {
		return "", false
	}
	return secret, true
}

func namespacedKey(namespace, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrEmptyKey
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return namespace + "." + key, nil
}
