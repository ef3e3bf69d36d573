package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProviderKind identifies the backend protocol of a camera.
type ProviderKind string

const (
	KindRTSP        ProviderKind = "rtsp"
	KindVendorLocal ProviderKind = "vendor-local"
	KindHubProxy    ProviderKind = "hub-proxy"
)

// AllKinds lists every supported provider kind in a stable order.
var AllKinds = []ProviderKind{KindRTSP, KindVendorLocal, KindHubProxy}

// ParseProviderKind accepts the canonical names plus a few loose spellings.
func ParseProviderKind(raw string) (ProviderKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "rtsp":
		return KindRTSP, nil
	case "vendor-local", "vendor_local", "vendorlocal":
		return KindVendorLocal, nil
	case "hub-proxy", "hub_proxy", "hubproxy":
		return KindHubProxy, nil
	default:
		return "", fmt.Errorf("unknown provider kind %q", raw)
	}
}

// RequiresSecret reports whether a provider of this kind cannot work without a stored secret.
func (k ProviderKind) RequiresSecret() bool {
	return k == KindVendorLocal || k == KindHubProxy
}

// CameraConfig is the persisted descriptor of one camera.
type CameraConfig struct {
	ID        string       `json:"id" yaml:"id" bson:"id"`
	Name      string       `json:"name" yaml:"name" bson:"name"`
	Kind      ProviderKind `json:"kind" yaml:"kind" bson:"kind"`
	CreatedAt time.Time    `json:"created_at" yaml:"created_at" bson:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" yaml:"updated_at" bson:"updated_at"`

	// rtsp
	StreamURL string `json:"stream_url,omitempty" yaml:"stream_url,omitempty" bson:"stream_url,omitempty"`

	// vendor-local (Username is also used by rtsp)
	Host     string `json:"host,omitempty" yaml:"host,omitempty" bson:"host,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty" bson:"port,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty" bson:"username,omitempty"`

	// hub-proxy
	HubBaseURL string `json:"hub_base_url,omitempty" yaml:"hub_base_url,omitempty" bson:"hub_base_url,omitempty"`
	EntityID   string `json:"entity_id,omitempty" yaml:"entity_id,omitempty" bson:"entity_id,omitempty"`

	// CredentialKey ties the config to its secret; empty means "use ID".
	CredentialKey string `json:"credential_key,omitempty" yaml:"credential_key,omitempty" bson:"credential_key,omitempty"`
}

// NewCameraID returns a fresh opaque camera identifier.
func NewCameraID() string {
	return uuid.NewString()
}

// NewCameraConfig fills identity and timestamps for a new camera.
func NewCameraConfig(name string, kind ProviderKind) CameraConfig {
	now := time.Now().UTC()
	return CameraConfig{
		ID:        NewCameraID(),
		Name:      name,
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SecretKey is the key under which the camera's secret is stored.
func (c CameraConfig) SecretKey() string {
	if k := strings.TrimSpace(c.CredentialKey); k != "" {
		return k
	}
	return c.ID
}

// Touch marks the config as modified now.
func (c *CameraConfig) Touch() {
	c.UpdatedAt = time.Now().UTC()
}

// Normalize assigns an ID and timestamps where missing.
func (c *CameraConfig) Normalize() {
	if strings.TrimSpace(c.ID) == "" {
		c.ID = NewCameraID()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
}

// Validate checks the structural fields that do not depend on the kind.
func (c CameraConfig) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("camera id is required")
	}
	switch c.Kind {
	case KindRTSP, KindVendorLocal, KindHubProxy:
	default:
		return fmt.Errorf("unknown provider kind %q", c.Kind)
	}
	return nil
}
