package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.VendorLocal.InsecureTLS)
	assert.Equal(t, 20*time.Second, cfg.HTTPTimeout())
	assert.Equal(t, 10*time.Second, cfg.DiscoveryTimeout())
	assert.Equal(t, 150*time.Millisecond, cfg.RTSPPollInterval())
	assert.Equal(t, 20, cfg.RTSP.ReadyAttempts)
	assert.Equal(t, 10, cfg.RTSP.FrameAttempts)
}

func TestLoadFileYAMLKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
monitor:
  interval_sec: 0
rtsp:
  ready_attempts: 3
`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 3, cfg.RTSP.ReadyAttempts)
	assert.Equal(t, 10, cfg.RTSP.FrameAttempts, "untouched keys keep defaults")
	assert.Equal(t, time.Duration(0), cfg.MonitorInterval())
	assert.True(t, cfg.VendorLocal.InsecureTLS)
}

func TestLoadFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camgate.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"discovery":{"timeout_sec":3}}`), 0o600))
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.DiscoveryTimeout())
}

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8780, cfg.Server.Port)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CAMGATE_PORT", "9100")
	t.Setenv("CAMGATE_VENDOR_LOCAL_INSECURE_TLS", "false")
	t.Setenv("CAMGATE_CORS_ORIGINS", "http://a, http://b")
	t.Setenv("CAMGATE_RATE_LIMIT_RPS", "2.5")
	t.Setenv("CAMGATE_REDIS_DB", "not-a-number")

	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.False(t, cfg.VendorLocal.InsecureTLS)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 2.5, cfg.RateLimit.RPS)
	assert.Equal(t, 0, cfg.Storage.RedisDB, "unparseable values are ignored")
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 0
	cfg.Storage.Backend = "postgres"
	cfg.Credentials.Backend = "file"
	cfg.Security.ManagementKeyHash = "plain"
	cfg.RTSP.Transport = "quic"

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "server.port")
	assert.Contains(t, msg, "postgres_dsn")
	assert.Contains(t, msg, "passphrase")
	assert.Contains(t, msg, "bcrypt")
	assert.Contains(t, msg, "rtsp.transport")
}

func TestManagementKey(t *testing.T) {
	hash, err := HashManagementKey("s3cret")
	require.NoError(t, err)

	sec := SecurityConfig{ManagementKeyHash: hash}
	assert.True(t, sec.ManagementEnabled())
	assert.True(t, CheckManagementKey(sec, "s3cret"))
	assert.False(t, CheckManagementKey(sec, "wrong"))
	assert.False(t, CheckManagementKey(sec, ""))

	plain := SecurityConfig{ManagementKey: "k"}
	assert.True(t, CheckManagementKey(plain, "k"))
	assert.False(t, SecurityConfig{}.ManagementEnabled())
}

func TestConfigManagerUpdatePersistsAndNotifies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camgate.yaml")
	require.NoError(t, Save(path, DefaultConfig()))

	cm, err := NewConfigManager(path)
	require.NoError(t, err)
	t.Cleanup(cm.Close)

	var seen atomic.Int32
	cm.OnChange(func(cfg *FileConfig) {
		if cfg.Monitor.IntervalSec == 42 {
			seen.Add(1)
		}
	})

	require.NoError(t, cm.Update(func(c *FileConfig) { c.Monitor.IntervalSec = 42 }))
	assert.Equal(t, int32(1), seen.Load())
	assert.Equal(t, 42, cm.GetConfig().Monitor.IntervalSec)

	reloaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 42, reloaded.Monitor.IntervalSec)

	err = cm.Update(func(c *FileConfig) { c.Server.Port = -1 })
	require.Error(t, err)
	assert.Equal(t, 8780, cm.GetConfig().Server.Port, "invalid update is not applied")
}

func TestConfigManagerHotReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte("monitor:\n  interval_sec: 5\n"), 0o600))

	cm, err := NewConfigManager(path)
	require.NoError(t, err)
	t.Cleanup(cm.Close)

	changed := make(chan int, 4)
	cm.OnChange(func(cfg *FileConfig) { changed <- cfg.Monitor.IntervalSec })

	// ensure the new mtime is strictly later
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("monitor:\n  interval_sec: 7\n"), 0o600))
	future := time.Now().Add(time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	select {
	case v := <-changed:
		assert.Equal(t, 7, v)
	case <-time.After(7 * time.Second):
		t.Fatal("config change was not picked up")
	}
}

func TestGetConfigReturnsCopy(t *testing.T) {
	cm, err := NewConfigManager("")
	require.NoError(t, err)
	t.Cleanup(cm.Close)
	cfg := cm.GetConfig()
	cfg.Server.Port = 1
	assert.NotEqual(t, 1, cm.GetConfig().Server.Port)
}

func TestOpenStoreBackends(t *testing.T) {
	ctx := context.Background()

	mem, err := CredentialsConfig{}.OpenStore(ctx)
	require.NoError(t, err)
	require.NoError(t, mem.Set(ctx, "cam", "pw"))

	fileCfg := CredentialsConfig{Backend: "file", FilePath: filepath.Join(t.TempDir(), "secrets.json"), Passphrase: "pp"}
	fs, err := fileCfg.OpenStore(ctx)
	require.NoError(t, err)
	require.NoError(t, fs.Set(ctx, "cam", "pw"))

	_, err = CredentialsConfig{Backend: "vault"}.OpenStore(ctx)
	require.Error(t, err)
}
