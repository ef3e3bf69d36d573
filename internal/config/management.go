package config

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// ManagementEnabled reports whether the management API requires a key.
func (s SecurityConfig) ManagementEnabled() bool {
	return s.ManagementKey != "" || s.ManagementKeyHash != ""
}

// CheckManagementKey verifies a candidate against the plain key or the bcrypt hash.
func CheckManagementKey(s SecurityConfig, candidate string) bool {
	if candidate == "" {
		return false
	}
	if s.ManagementKey != "" && subtle.ConstantTimeCompare([]byte(candidate), []byte(s.ManagementKey)) == 1 {
		return true
	}
	if s.ManagementKeyHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(s.ManagementKeyHash), []byte(candidate)); err == nil {
			return true
		}
	}
	return false
}

// HashManagementKey produces a bcrypt hash for security.management_key_hash.
func HashManagementKey(key string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
