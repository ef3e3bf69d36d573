package discovery

import (
	"net"
	"strconv"
	"strings"

	"camgate-go/internal/models"
)

const defaultRTSPPort = 554

// ServiceType pairs a provider kind with one advertised service type.
type ServiceType struct {
	Kind    models.ProviderKind
	Service string
}

// DefaultServiceTypes covers every provider kind. The hub is advertised
// under two historical names.
var DefaultServiceTypes = []ServiceType{
	{Kind: models.KindVendorLocal, Service: "_tapo._tcp"},
	{Kind: models.KindHubProxy, Service: "_home-assistant._tcp"},
	{Kind: models.KindHubProxy, Service: "_hass._tcp"},
	{Kind: models.KindRTSP, Service: "_rtsp._tcp"},
}

// parseTXT turns key=value records into a map. Keys are lower-cased; a bare
// key maps to "true".
func parseTXT(records []string) map[string]string {
	if len(records) == 0 {
		return nil
	}
	out := make(map[string]string, len(records))
	for _, rec := range records {
		if rec == "" {
			continue
		}
		k, v, ok := strings.Cut(rec, "=")
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if !ok {
			v = "true"
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// entryHost prefers an IPv4 address, then IPv6, then the advertised name.
func entryHost(e Entry) string {
	for _, ip := range e.AddrIPv4 {
		if ip != nil {
			return ip.String()
		}
	}
	for _, ip := range e.AddrIPv6 {
		if ip != nil {
			return ip.String()
		}
	}
	return strings.TrimSuffix(e.HostName, ".")
}

// hubURLHint returns an explicit base URL advertised in TXT metadata.
func hubURLHint(txt map[string]string) string {
	for _, key := range []string{"base_url", "internal_url"} {
		if v := strings.TrimSpace(txt[key]); v != "" {
			return strings.TrimRight(v, "/")
		}
	}
	return ""
}

func hubUsesTLS(txt map[string]string) bool {
	for _, key := range []string{"https", "ssl", "tls"} {
		if truthy(txt[key]) {
			return true
		}
	}
	return false
}

// resultFor builds the discovery result for a resolved entry.
func resultFor(st ServiceType, e Entry) (models.DiscoveryResult, bool) {
	host := entryHost(e)
	if host == "" {
		return models.DiscoveryResult{}, false
	}
	txt := parseTXT(e.Text)
	r := models.DiscoveryResult{
		Kind:        st.Kind,
		Name:        e.Instance,
		Host:        host,
		Port:        e.Port,
		ServiceType: st.Service,
		TXT:         txt,
	}
	switch st.Kind {
	case models.KindRTSP:
		port := e.Port
		if port <= 0 {
			port = defaultRTSPPort
		}
		r.SuggestedURL = "rtsp://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/"
	case models.KindHubProxy:
		if hint := hubURLHint(txt); hint != "" {
			r.SuggestedURL = hint
			break
		}
		scheme := "http"
		if hubUsesTLS(txt) {
			scheme = "https"
		}
		authority := host
		if e.Port > 0 {
			authority = net.JoinHostPort(host, strconv.Itoa(e.Port))
		} else if strings.Contains(host, ":") {
			authority = "[" + host + "]"
		}
		r.SuggestedURL = scheme + "://" + authority
	case models.KindVendorLocal:
		// host and port only; the user supplies credentials
	}
	return r, true
}
