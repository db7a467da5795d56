package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/weather-dashboard/internal/common"
	"github.com/i474232898/weather-dashboard/internal/settings"
	"github.com/i474232898/weather-dashboard/internal/storage"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

type AppConfig struct {
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string `validate:"required,url"`

	// HTTPTimeout bounds each provider request (0 = no timeout).
	HTTPTimeout time.Duration `validate:"gte=0"`

	// DefaultCity seeds the settings when nothing is persisted yet.
	DefaultCity string

	SettingsBackend string `validate:"oneof=memory file sqlite"`
	SettingsPath    string `validate:"required_unless=SettingsBackend memory"`

	// RefreshInterval drives the periodic refresh (0 = disabled).
	RefreshInterval time.Duration `validate:"gte=0"`

	// ForecastCityTimezone groups forecast days in the city's own offset
	// instead of the server's local zone.
	ForecastCityTimezone bool

	Port string `validate:"required,numeric"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.OpenWeatherBaseURL = getenvDefault("OPENWEATHER_BASE_URL", weather.DefaultBaseURL)

	timeout, err := getenvDuration("HTTP_TIMEOUT", 0)
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout = timeout

	cfg.DefaultCity = common.FirstNonEmpty(os.Getenv("DEFAULT_CITY"), settings.DefaultCity)

	cfg.SettingsBackend = getenvDefault("SETTINGS_BACKEND", storage.BackendFile)
	cfg.SettingsPath = getenvDefault("SETTINGS_PATH", defaultSettingsPath(cfg.SettingsBackend))

	interval, err := getenvDuration("REFRESH_INTERVAL", 0)
	if err != nil {
		return nil, err
	}
	cfg.RefreshInterval = interval

	cfg.ForecastCityTimezone = getenvBool("FORECAST_CITY_TIMEZONE", false)
	cfg.Port = getenvDefault("PORT", "8080")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Defaults returns the settings used when none are persisted.
func (c *AppConfig) Defaults() settings.Settings {
	d := settings.Defaults()
	d.DefaultCity = c.DefaultCity
	return d
}

func defaultSettingsPath(backend string) string {
	switch backend {
	case storage.BackendSQLite:
		return "weather-settings.db"
	case storage.BackendFile:
		return "weather-settings.json"
	default:
		return ""
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
		log.Printf("INFO: ignoring invalid %s=%q", key, v)
	}
	return def
}
