package storage

import (
	"encoding/json"
	"fmt"

	"camgate-go/internal/models"
)

func encodeConfig(cfg models.CameraConfig) ([]byte, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode camera %s: %w", cfg.ID, err)
	}
	return data, nil
}

func decodeConfig(data []byte) (models.CameraConfig, error) {
	var cfg models.CameraConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return models.CameraConfig{}, fmt.Errorf("decode camera: %w", err)
	}
	return cfg, nil
}
