package config

import (
	"os"
	"strconv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort   int
	DatabasePath string
	CORSOrigin   string

	// Hosted inference endpoint for waste classification.
	RoboflowAPIURL     string
	RoboflowAPIKey     string
	RoboflowModelID    string
	WasteMinConfidence float64

	// External routing collaborators.
	GeocoderURL string
	RouterURL   string

	// Seed identity for the privileged account.
	AdminUsername string
	AdminEmail    string
	AdminPassword string

	// Cron spec for the daily waste stats rollup.
	StatsRollupSpec string
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}

	confStr := getEnv("WASTE_MIN_CONFIDENCE", "0.4")
	minConfidence, err := strconv.ParseFloat(confStr, 64)
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerPort:   port,
		DatabasePath: getEnv("DATABASE_PATH", "./civicgrid.db"),
		CORSOrigin:   getEnv("CORS_ORIGIN", "http://localhost:3000"),

		RoboflowAPIURL:     getEnv("ROBOFLOW_API_URL", "https://detect.roboflow.com"),
		RoboflowAPIKey:     getEnv("ROBOFLOW_API_KEY", ""),
		RoboflowModelID:    getEnv("ROBOFLOW_MODEL_ID", "waste-management-ivrbu/1"),
		WasteMinConfidence: minConfidence,

		GeocoderURL: getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
		RouterURL:   getEnv("ROUTER_URL", "https://router.project-osrm.org"),

		AdminUsername: getEnv("ADMIN_USERNAME", "Shrinjita"),
		AdminEmail:    getEnv("ADMIN_EMAIL", "shrinjitapaul@gmail.com"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "password123"),

		StatsRollupSpec: getEnv("STATS_ROLLUP_SPEC", "0 0 * * *"),
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
