package utils

import (
	"fmt"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// Config gathers the environment-driven settings for one monitor run.
type Config struct {
	// Live inference WebSocket endpoint, e.g. wss://host/v1/live.
	LiveEndpoint string
	APIKey       string
	Model        string

	// SystemInstruction sent with the session setup message.
	SystemInstruction string

	// Base URL for the actuator endpoints (/call911, /sendNotification, /door).
	ActuatorBaseURL string

	// FrameInterval controls the still-image cadence.
	FrameInterval time.Duration
	// DecodeInterval controls how often the inbound queue is drained.
	DecodeInterval time.Duration

	CameraDevice     int
	AudioDevice      string
	NativeSampleRate int
}

const defaultSystemInstruction = "You are a security camera AI assistant. " +
	"Analyze video frames and audio for potential security threats. " +
	"Assess risk levels as SAFE, WARNING, or DANGER. " +
	"Provide detailed descriptions of what you observe. " +
	"Look for suspicious activities, unauthorized access, or safety hazards."

// LoadConfig reads settings from the environment, applying defaults where a
// variable is unset. Only the live endpoint and actuator base URL are
// mandatory.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		LiveEndpoint:      os.Getenv("SENTINEL_LIVE_ENDPOINT"),
		APIKey:            os.Getenv("GOOGLE_API_KEY"),
		Model:             os.Getenv("SENTINEL_MODEL"),
		SystemInstruction: os.Getenv("SENTINEL_SYSTEM_INSTRUCTION"),
		ActuatorBaseURL:   os.Getenv("SENTINEL_ACTUATOR_URL"),
		AudioDevice:       os.Getenv("SENTINEL_AUDIO_DEVICE"),
		FrameInterval:     time.Second,
		DecodeInterval:    50 * time.Millisecond,
		NativeSampleRate:  48000,
	}

	if cfg.LiveEndpoint == "" {
		return nil, fmt.Errorf("SENTINEL_LIVE_ENDPOINT not set")
	}
	if cfg.ActuatorBaseURL == "" {
		return nil, fmt.Errorf("SENTINEL_ACTUATOR_URL not set")
	}
	if cfg.APIKey == "" {
		log.Warn("GOOGLE_API_KEY not set, connecting unauthenticated")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-live-2.5-flash-preview"
	}
	if cfg.SystemInstruction == "" {
		cfg.SystemInstruction = defaultSystemInstruction
	}

	if raw := os.Getenv("SENTINEL_FRAME_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			cfg.FrameInterval = d
		} else {
			log.Warn("Invalid SENTINEL_FRAME_INTERVAL, using default: ", raw)
		}
	}
	if raw := os.Getenv("SENTINEL_DECODE_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			cfg.DecodeInterval = d
		} else {
			log.Warn("Invalid SENTINEL_DECODE_INTERVAL, using default: ", raw)
		}
	}
	if raw := os.Getenv("SENTINEL_CAMERA_DEVICE"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			cfg.CameraDevice = n
		} else {
			log.Warn("Invalid SENTINEL_CAMERA_DEVICE, using default: ", raw)
		}
	}
	if raw := os.Getenv("SENTINEL_AUDIO_RATE"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.NativeSampleRate = n
		} else {
			log.Warn("Invalid SENTINEL_AUDIO_RATE, using default: ", raw)
		}
	}

	return cfg, nil
}
