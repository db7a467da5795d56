package weather

import (
	"fmt"
	"net/http"
)

// Units selects the unit system requested from the provider.
type Units string

const (
	Metric   Units = "metric"
	Imperial Units = "imperial"
)

// Valid reports whether u is a unit system the provider understands.
func (u Units) Valid() bool {
	return u == Metric || u == Imperial
}

// TemperatureSymbol returns the display symbol for temperatures in u.
func (u Units) TemperatureSymbol() string {
	if u == Metric {
		return "°C"
	}
	return "°F"
}

// WindSpeedUnit returns the display label for wind speeds in u.
func (u Units) WindSpeedUnit() string {
	if u == Metric {
		return "m/s"
	}
	return "mph"
}

// Coord is a provider coordinate pair.
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Condition is one entry of the provider's ordered weather condition list.
type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type MainReadings struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Pressure  float64 `json:"pressure"`
	Humidity  float64 `json:"humidity"`
}

type Wind struct {
	Speed float64 `json:"speed"`
	Deg   float64 `json:"deg"`
	Gust  float64 `json:"gust,omitempty"`
}

type Clouds struct {
	All float64 `json:"all"`
}

type Sys struct {
	Type    int    `json:"type"`
	ID      int    `json:"id"`
	Country string `json:"country"`
	Sunrise int64  `json:"sunrise"`
	Sunset  int64  `json:"sunset"`
}

// CurrentConditions is the current-weather payload as returned by the provider.
// Coord is nil when the response carries no coordinates.
type CurrentConditions struct {
	Coord      *Coord       `json:"coord,omitempty"`
	Weather    []Condition  `json:"weather"`
	Base       string       `json:"base"`
	Main       MainReadings `json:"main"`
	Visibility int          `json:"visibility"`
	Wind       Wind         `json:"wind"`
	Clouds     Clouds       `json:"clouds"`
	Dt         int64        `json:"dt"`
	Sys        Sys          `json:"sys"`
	Timezone   int          `json:"timezone"`
	ID         int          `json:"id"`
	Name       string       `json:"name"`
	Cod        int          `json:"cod"`
}

type DailyTemperature struct {
	Day   float64 `json:"day"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Night float64 `json:"night"`
	Eve   float64 `json:"eve"`
	Morn  float64 `json:"morn"`
}

type DailyFeelsLike struct {
	Day   float64 `json:"day"`
	Night float64 `json:"night"`
	Eve   float64 `json:"eve"`
	Morn  float64 `json:"morn"`
}

// DailyForecastEntry aggregates the 3-hour samples of one calendar day.
//
// Only Temp.Min and Temp.Max look at every sample of the day. All other values
// come from the first sample seen for the date, and the fields the 3-hour feed
// does not carry (sun and moon times, moon phase, dew point, UV index, wind
// gust) are always zero.
type DailyForecastEntry struct {
	Dt        int64            `json:"dt"`
	Date      string           `json:"date"`
	Sunrise   int64            `json:"sunrise"`
	Sunset    int64            `json:"sunset"`
	Moonrise  int64            `json:"moonrise"`
	Moonset   int64            `json:"moonset"`
	MoonPhase float64          `json:"moon_phase"`
	Temp      DailyTemperature `json:"temp"`
	FeelsLike DailyFeelsLike   `json:"feels_like"`
	Pressure  float64          `json:"pressure"`
	Humidity  float64          `json:"humidity"`
	DewPoint  float64          `json:"dew_point"`
	WindSpeed float64          `json:"wind_speed"`
	WindDeg   float64          `json:"wind_deg"`
	WindGust  float64          `json:"wind_gust"`
	Weather   []Condition      `json:"weather"`
	Clouds    float64          `json:"clouds"`
	Pop       float64          `json:"pop"`
	Rain      float64          `json:"rain"`
	UVI       float64          `json:"uvi"`
}

// ForecastSet is the reduced daily forecast for one location.
type ForecastSet struct {
	Lat            float64              `json:"lat"`
	Lon            float64              `json:"lon"`
	City           string               `json:"city"`
	Country        string               `json:"country"`
	Timezone       string               `json:"timezone"`
	TimezoneOffset int                  `json:"timezone_offset"`
	Daily          []DailyForecastEntry `json:"daily"`
}

// ForecastSample is one 3-hour step of the provider's forecast feed.
type ForecastSample struct {
	Dt      int64          `json:"dt"`
	Main    MainReadings   `json:"main"`
	Weather []Condition    `json:"weather"`
	Clouds  Clouds         `json:"clouds"`
	Wind    Wind           `json:"wind"`
	Pop     float64        `json:"pop"`
	Rain    *Precipitation `json:"rain,omitempty"`
	DtTxt   string         `json:"dt_txt"`
}

// Precipitation is a volume accumulated over the sample window, in mm.
type Precipitation struct {
	ThreeHours float64 `json:"3h"`
}

// ForecastCity is the location block attached to a forecast feed.
type ForecastCity struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Coord    Coord  `json:"coord"`
	Country  string `json:"country"`
	Timezone int    `json:"timezone"`
	Sunrise  int64  `json:"sunrise"`
	Sunset   int64  `json:"sunset"`
}

// ForecastResponse is the raw 5-day/3-hour forecast payload.
type ForecastResponse struct {
	Cnt  int              `json:"cnt"`
	List []ForecastSample `json:"list"`
	City ForecastCity     `json:"city"`
}

// APIError is returned for any non-2xx provider response. Cod is an int or a
// string depending on the endpoint. Message is the provider's own text and is
// empty when the body carried none.
type APIError struct {
	StatusCode int    `json:"-"`
	Cod        any    `json:"cod"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("API error (HTTP %d): %s", e.StatusCode, msg)
}
