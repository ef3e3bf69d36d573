package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProviderKind(t *testing.T) {
	for raw, want := range map[string]ProviderKind{
		"rtsp":         KindRTSP,
		" RTSP ":       KindRTSP,
		"vendor_local": KindVendorLocal,
		"hub-proxy":    KindHubProxy,
	} {
		got, err := ParseProviderKind(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}
	_, err := ParseProviderKind("onvif")
	assert.Error(t, err)
}

func TestSecretKeyDefaultsToID(t *testing.T) {
	cfg := NewCameraConfig("porch", KindHubProxy)
	assert.Equal(t, cfg.ID, cfg.SecretKey())

	cfg.CredentialKey = "imported-key"
	assert.Equal(t, "imported-key", cfg.SecretKey())
}

func TestNormalizeAndValidate(t *testing.T) {
	var cfg CameraConfig
	cfg.Kind = KindRTSP
	cfg.Normalize()
	require.NotEmpty(t, cfg.ID)
	require.False(t, cfg.CreatedAt.IsZero())
	require.Equal(t, cfg.CreatedAt, cfg.UpdatedAt)
	require.NoError(t, cfg.Validate())

	cfg.Kind = "bogus"
	require.Error(t, cfg.Validate())
}

func TestDiscoveryResultToConfig(t *testing.T) {
	r := DiscoveryResult{Kind: KindRTSP, Name: "garage", Host: "10.0.0.5", Port: 8554, SuggestedURL: "rtsp://10.0.0.5:8554/"}
	cfg := r.ToConfig()
	assert.Equal(t, KindRTSP, cfg.Kind)
	assert.Equal(t, "rtsp://10.0.0.5:8554/", cfg.StreamURL)
	assert.Equal(t, "garage", cfg.Name)

	v := DiscoveryResult{Kind: KindVendorLocal, Host: "10.0.0.7", Port: 443}
	vc := v.ToConfig()
	assert.Equal(t, "10.0.0.7", vc.Host)
	assert.Equal(t, 443, vc.Port)
	assert.Equal(t, "10.0.0.7", vc.Name)
	assert.Equal(t, "10.0.0.7:443", v.Address())
	assert.NotEqual(t, v.DedupKey(), r.DedupKey())
}
