package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Validate reports every problem found, joined.
func (c *FileConfig) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	switch c.Storage.Label() {
	case "file":
	case "redis":
		if c.Storage.RedisAddr == "" {
			errs = append(errs, errors.New("storage.redis_addr is required for the redis backend"))
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres backend"))
		}
	case "mongodb":
		if c.Storage.MongoURI == "" {
			errs = append(errs, errors.New("storage.mongodb_uri is required for the mongodb backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend))
	}

	switch strings.ToLower(c.Credentials.Backend) {
	case "", "memory":
	case "file":
		if c.Credentials.FilePath == "" || c.Credentials.Passphrase == "" {
			errs = append(errs, errors.New("credentials.file_path and credentials.passphrase are required for the file backend"))
		}
	case "redis":
		if c.Credentials.Redis.Addr == "" {
			errs = append(errs, errors.New("credentials.redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("credentials.backend %q is not supported", c.Credentials.Backend))
	}

	if c.Security.ManagementKeyHash != "" {
		if _, err := bcrypt.Cost([]byte(c.Security.ManagementKeyHash)); err != nil {
			errs = append(errs, fmt.Errorf("security.management_key_hash is not a bcrypt hash: %w", err))
		}
	}
	if c.RTSP.ReadyAttempts < 0 || c.RTSP.FrameAttempts < 0 {
		errs = append(errs, errors.New("rtsp attempts must not be negative"))
	}
	if t := strings.ToLower(c.RTSP.Transport); t != "" && t != "tcp" && t != "udp" {
		errs = append(errs, fmt.Errorf("rtsp.transport %q must be tcp or udp", c.RTSP.Transport))
	}
	if c.RateLimit.Enabled && c.RateLimit.RPS <= 0 {
		errs = append(errs, errors.New("rate_limit.rps must be positive when enabled"))
	}
	return errors.Join(errs...)
}
