package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            int
	Password        string
	LogDirectory    string
	DatabasePath    string
	StaticDirectory string

	CameraDevice int
	CameraFacing string
	CameraWidth  int // ideal, the device may grant something else
	CameraHeight int

	RasterSize      int    // side of the square raster handed to the decoder
	InversionMode   string // normal, inverted or both
	UpdatePolicy    string // always or change
	DisplayTruncate int

	OverlayTimeout   time.Duration
	HighlightTimeout time.Duration
	GraceWindow      time.Duration // 0 disables the no-detection grace window
	TickInterval     time.Duration
	Preview          bool

	HistoryBufferLimit   int
	HistoryFlushInterval time.Duration
}

// Load reads an optional .env file and builds the configuration from the environment.
func Load() *Config {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	return &Config{
		Port:                 getEnvAsInt("PORT", 8080),
		Password:             getEnv("PASSWORD", "skaner"),
		LogDirectory:         getEnv("LOG_DIR", filepath.Join(".", "logs")),
		DatabasePath:         getEnv("DB_PATH", filepath.Join(".", "data", "detections.db")),
		StaticDirectory:      getEnv("STATIC_DIR", "static"),
		CameraDevice:         getEnvAsInt("CAMERA_DEVICE", 0),
		CameraFacing:         getEnv("CAMERA_FACING", "environment"),
		CameraWidth:          getEnvAsInt("CAMERA_WIDTH", 640),
		CameraHeight:         getEnvAsInt("CAMERA_HEIGHT", 480),
		RasterSize:           getEnvAsInt("RASTER_SIZE", 320),
		InversionMode:        getEnv("INVERSION_MODE", "both"),
		UpdatePolicy:         getEnv("UPDATE_POLICY", "always"),
		DisplayTruncate:      getEnvAsInt("DISPLAY_TRUNCATE", 25),
		OverlayTimeout:       getEnvAsDuration("OVERLAY_TIMEOUT", 5*time.Second),
		HighlightTimeout:     getEnvAsDuration("HIGHLIGHT_TIMEOUT", 2*time.Second),
		GraceWindow:          getEnvAsDuration("GRACE_WINDOW", 2*time.Second),
		TickInterval:         getEnvAsDuration("TICK_INTERVAL", 16*time.Millisecond),
		Preview:              getEnvAsBool("PREVIEW", false),
		HistoryBufferLimit:   getEnvAsInt("HISTORY_BUFFER_LIMIT", 64),
		HistoryFlushInterval: getEnvAsDuration("HISTORY_FLUSH_INTERVAL", 10*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("2s", "1500ms") or a bare number of milliseconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d >= 0 {
		return d
	}
	if ms := getEnvAsInt64(key, -1); ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}
