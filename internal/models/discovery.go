package models

import (
	"fmt"
	"net"
	"strconv"
)

// DiscoveryResult is one camera candidate found on the local network.
type DiscoveryResult struct {
	Kind         ProviderKind      `json:"kind"`
	Name         string            `json:"name"`
	Host         string            `json:"host"`
	Port         int               `json:"port,omitempty"`
	ServiceType  string            `json:"service_type"`
	SuggestedURL string            `json:"suggested_url,omitempty"`
	TXT          map[string]string `json:"txt,omitempty"`
}

// DedupKey identifies a result within one discovery session.
func (r DiscoveryResult) DedupKey() string {
	return fmt.Sprintf("%s|%s|%d", r.Kind, r.Host, r.Port)
}

// Address renders host[:port].
func (r DiscoveryResult) Address() string {
	if r.Port > 0 {
		return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
	}
	return r.Host
}

// ToConfig promotes the result into a new camera config. Credentials are not
// part of a discovery result and must be supplied separately.
func (r DiscoveryResult) ToConfig() CameraConfig {
	name := r.Name
	if name == "" {
		name = r.Host
	}
	cfg := NewCameraConfig(name, r.Kind)
	switch r.Kind {
	case KindRTSP:
		cfg.StreamURL = r.SuggestedURL
	case KindVendorLocal:
		cfg.Host = r.Host
		cfg.Port = r.Port
	case KindHubProxy:
		cfg.HubBaseURL = r.SuggestedURL
	}
	return cfg
}
