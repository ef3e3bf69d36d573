package config

import (
	"camgate-go/internal/credential"
	"camgate-go/internal/monitoring/tracing"
	"camgate-go/internal/storage"
)

// FileConfig is the on-disk configuration document (YAML or JSON).
type FileConfig struct {
	Server      ServerConfig      `yaml:"server" json:"server"`
	Security    SecurityConfig    `yaml:"security" json:"security"`
	Storage     storage.Options   `yaml:"storage" json:"storage"`
	Credentials CredentialsConfig `yaml:"credentials" json:"credentials"`
	HTTP        HTTPConfig        `yaml:"http" json:"http"`
	RTSP        RTSPConfig        `yaml:"rtsp" json:"rtsp"`
	VendorLocal VendorLocalConfig `yaml:"vendor_local" json:"vendor_local"`
	Discovery   DiscoveryConfig   `yaml:"discovery" json:"discovery"`
	Monitor     MonitorConfig     `yaml:"monitor" json:"monitor"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" json:"rate_limit"`
	Tracing     tracing.Config    `yaml:"tracing" json:"tracing"`
}

type ServerConfig struct {
	Host        string   `yaml:"host" json:"host"`
	Port        int      `yaml:"port" json:"port"`
	CORSOrigins []string `yaml:"cors_origins,omitempty" json:"cors_origins,omitempty"`
}

type SecurityConfig struct {
	Debug     bool   `yaml:"debug" json:"debug"`
	LogFile   string `yaml:"log_file,omitempty" json:"log_file,omitempty"`
	LogFormat string `yaml:"log_format,omitempty" json:"log_format,omitempty"`
	LogLevel  string `yaml:"log_level,omitempty" json:"log_level,omitempty"`

	// Either a plain key or a bcrypt hash; both empty leaves the API open.
	ManagementKey     string `yaml:"management_key,omitempty" json:"-"`
	ManagementKeyHash string `yaml:"management_key_hash,omitempty" json:"management_key_hash,omitempty"`

	// Off restricts the API to loopback clients. RemoteAllowIPs, when set,
	// narrows remote access to these IPs or CIDRs.
	AllowRemote    bool     `yaml:"allow_remote" json:"allow_remote"`
	RemoteAllowIPs []string `yaml:"remote_allow_ips,omitempty" json:"remote_allow_ips,omitempty"`
}

// CredentialsConfig selects the secret store.
type CredentialsConfig struct {
	Backend    string                      `yaml:"backend" json:"backend"` // memory|file|redis
	FilePath   string                      `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	Passphrase string                      `yaml:"passphrase,omitempty" json:"-"`
	Namespace  string                      `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Redis      credential.RedisStoreConfig `yaml:"redis" json:"redis"`
}

type HTTPConfig struct {
	RequestTimeoutSec int `yaml:"request_timeout_sec" json:"request_timeout_sec"`
}

type RTSPConfig struct {
	ReadyAttempts  int    `yaml:"ready_attempts" json:"ready_attempts"`
	FrameAttempts  int    `yaml:"frame_attempts" json:"frame_attempts"`
	PollIntervalMS int    `yaml:"poll_interval_ms" json:"poll_interval_ms"`
	FFmpegPath     string `yaml:"ffmpeg_path,omitempty" json:"ffmpeg_path,omitempty"`
	Transport      string `yaml:"transport,omitempty" json:"transport,omitempty"` // tcp|udp
}

type VendorLocalConfig struct {
	InsecureTLS bool `yaml:"insecure_tls" json:"insecure_tls"`
	DefaultPort int  `yaml:"default_port,omitempty" json:"default_port,omitempty"`
}

type DiscoveryConfig struct {
	TimeoutSec int    `yaml:"timeout_sec" json:"timeout_sec"`
	Domain     string `yaml:"domain,omitempty" json:"domain,omitempty"`
}

type MonitorConfig struct {
	IntervalSec int  `yaml:"interval_sec" json:"interval_sec"`
	AutoStart   bool `yaml:"auto_start" json:"auto_start"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" json:"enabled"`
	RPS     float64 `yaml:"rps" json:"rps"`
	Burst   int     `yaml:"burst" json:"burst"`
}
