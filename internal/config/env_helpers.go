package config

import (
	"os"
	"strconv"
	"strings"
)

const envPrefix = "CAMGATE_"

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

func setStringFromEnv(key string, target *string) {
	if v := getenv(key); v != "" {
		*target = v
	}
}

func setIntFromEnv(key string, target *int) {
	if v := getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func setFloatFromEnv(key string, target *float64) {
	if v := getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

func setToggleFromEnv(key string, target *bool) {
	switch strings.ToLower(getenv(key)) {
	case "1", "true", "yes", "on":
		*target = true
	case "0", "false", "no", "off":
		*target = false
	}
}

func splitAndTrim(input, sep string) []string {
	parts := strings.Split(input, sep)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
