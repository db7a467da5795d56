package settings

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/weather-dashboard/internal/storage"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// StorageKey is the single storage entry holding the user's settings.
const StorageKey = "weather-settings"

// DefaultCity is the built-in city shown when nothing else is configured.
const DefaultCity = "Tainan,TW"

var validate = validator.New()

// Settings are the user preferences persisted between sessions.
type Settings struct {
	DefaultCity     string        `json:"defaultCity"`
	TemperatureUnit weather.Units `json:"temperatureUnit" validate:"oneof=metric imperial"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		DefaultCity:     DefaultCity,
		TemperatureUnit: weather.Metric,
	}
}

// Validate checks s against its field rules.
func (s Settings) Validate() error {
	return validate.Struct(s)
}

// Load reads the persisted settings and merges them over defaults. A missing,
// unreadable or malformed entry yields defaults; an invalid unit is replaced
// by the default unit and the other fields are kept.
func Load(store storage.Storage, defaults Settings) Settings {
	raw, ok, err := store.GetItem(StorageKey)
	if err != nil {
		log.Printf("ERROR: reading %s from storage: %v; using defaults", StorageKey, err)
		return defaults
	}
	if !ok {
		return defaults
	}

	merged := defaults
	if err := json.Unmarshal([]byte(raw), &merged); err != nil {
		log.Printf("ERROR: persisted %s is malformed: %v; using defaults", StorageKey, err)
		return defaults
	}
	if err := merged.Validate(); err != nil {
		log.Printf("ERROR: persisted %s has an invalid temperature unit: %v; using %s", StorageKey, err, defaults.TemperatureUnit)
		merged.TemperatureUnit = defaults.TemperatureUnit
	}
	return merged
}

// Save persists the full settings object.
func Save(store storage.Storage, s Settings) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := store.SetItem(StorageKey, string(b)); err != nil {
		return fmt.Errorf("persist settings: %w", err)
	}
	return nil
}
