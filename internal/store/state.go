package store

import (
	"time"

	"github.com/i474232898/weather-dashboard/internal/settings"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// State is everything the presentation layer renders. Values handed out by
// the store are snapshots: the pointed-to weather data is replaced wholesale
// on every fetch and never modified in place.
type State struct {
	CurrentWeather *weather.CurrentConditions `json:"currentWeather"`
	Forecast       *weather.ForecastSet       `json:"forecast"`
	Loading        bool                       `json:"loading"`
	Error          *string                    `json:"error"`
	SearchCity     string                     `json:"searchCity"`
	Settings       settings.Settings          `json:"settings"`

	// UpdatedAt is when CurrentWeather was last replaced.
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// TemperatureSymbol is the display symbol for the active unit.
func (s State) TemperatureSymbol() string {
	return s.Settings.TemperatureUnit.TemperatureSymbol()
}

// WindSpeedUnit is the wind speed label for the active unit.
func (s State) WindSpeedUnit() string {
	return s.Settings.TemperatureUnit.WindSpeedUnit()
}
