package config

import (
	"context"
	"fmt"
	"strings"

	"camgate-go/internal/credential"
)

// OpenStore builds the configured secret store. Redis stores should be
// closed by the caller; they satisfy io.Closer.
func (c CredentialsConfig) OpenStore(ctx context.Context) (credential.Store, error) {
	ns := c.Namespace
	if ns == "" {
		ns = credential.DefaultNamespace
	}
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case "", "memory":
		return credential.NewMemoryStore(ns), nil
	case "file":
		path, err := expandHome(c.FilePath)
		if err != nil {
			return nil, err
		}
		return credential.NewFileStore(path, c.Passphrase, ns)
	case "redis":
		rc := c.Redis
		if rc.Namespace == "" {
			rc.Namespace = ns
		}
		return credential.NewRedisStore(ctx, rc)
	default:
		return nil, fmt.Errorf("credentials.backend %q is not supported", c.Backend)
	}
}
