package config

// applyEnv overlays CAMGATE_* environment variables onto cfg.
func applyEnv(cfg *FileConfig) {
	setStringFromEnv("HOST", &cfg.Server.Host)
	setIntFromEnv("PORT", &cfg.Server.Port)
	if v := getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitAndTrim(v, ",")
	}

	setToggleFromEnv("DEBUG", &cfg.Security.Debug)
	setStringFromEnv("LOG_FILE", &cfg.Security.LogFile)
	setStringFromEnv("LOG_FORMAT", &cfg.Security.LogFormat)
	setStringFromEnv("LOG_LEVEL", &cfg.Security.LogLevel)
	setStringFromEnv("MANAGEMENT_KEY", &cfg.Security.ManagementKey)
	setStringFromEnv("MANAGEMENT_KEY_HASH", &cfg.Security.ManagementKeyHash)
	setToggleFromEnv("ALLOW_REMOTE", &cfg.Security.AllowRemote)
	if v := getenv("REMOTE_ALLOW_IPS"); v != "" {
		cfg.Security.RemoteAllowIPs = splitAndTrim(v, ",")
	}

	setStringFromEnv("STORAGE_BACKEND", &cfg.Storage.Backend)
	setStringFromEnv("STORAGE_DIR", &cfg.Storage.BaseDir)
	setStringFromEnv("REDIS_ADDR", &cfg.Storage.RedisAddr)
	setStringFromEnv("REDIS_PASSWORD", &cfg.Storage.RedisPassword)
	setIntFromEnv("REDIS_DB", &cfg.Storage.RedisDB)
	setStringFromEnv("POSTGRES_DSN", &cfg.Storage.PostgresDSN)
	setStringFromEnv("MONGODB_URI", &cfg.Storage.MongoURI)
	setStringFromEnv("MONGODB_DATABASE", &cfg.Storage.MongoDatabase)

	setStringFromEnv("CREDENTIALS_BACKEND", &cfg.Credentials.Backend)
	setStringFromEnv("CREDENTIALS_FILE", &cfg.Credentials.FilePath)
	setStringFromEnv("CREDENTIALS_PASSPHRASE", &cfg.Credentials.Passphrase)
	setStringFromEnv("CREDENTIALS_REDIS_ADDR", &cfg.Credentials.Redis.Addr)
	setStringFromEnv("CREDENTIALS_REDIS_PASSWORD", &cfg.Credentials.Redis.Password)

	setIntFromEnv("HTTP_REQUEST_TIMEOUT_SEC", &cfg.HTTP.RequestTimeoutSec)

	setIntFromEnv("RTSP_READY_ATTEMPTS", &cfg.RTSP.ReadyAttempts)
	setIntFromEnv("RTSP_FRAME_ATTEMPTS", &cfg.RTSP.FrameAttempts)
	setIntFromEnv("RTSP_POLL_INTERVAL_MS", &cfg.RTSP.PollIntervalMS)
	setStringFromEnv("FFMPEG_PATH", &cfg.RTSP.FFmpegPath)

	setToggleFromEnv("VENDOR_LOCAL_INSECURE_TLS", &cfg.VendorLocal.InsecureTLS)

	setIntFromEnv("DISCOVERY_TIMEOUT_SEC", &cfg.Discovery.TimeoutSec)

	setIntFromEnv("MONITOR_INTERVAL_SEC", &cfg.Monitor.IntervalSec)
	setToggleFromEnv("MONITOR_AUTO_START", &cfg.Monitor.AutoStart)

	setToggleFromEnv("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	setFloatFromEnv("RATE_LIMIT_RPS", &cfg.RateLimit.RPS)
	setIntFromEnv("RATE_LIMIT_BURST", &cfg.RateLimit.Burst)

	setStringFromEnv("OTLP_ENDPOINT", &cfg.Tracing.Endpoint)
	setToggleFromEnv("OTLP_INSECURE", &cfg.Tracing.Insecure)
}
