package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultBaseURL is the OpenWeatherMap 2.5 API root.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

	// PlaceholderAPIKey is sent when no key is configured. The provider
	// rejects it at call time.
	PlaceholderAPIKey = "YOUR_API_KEY"
)

// Client issues read requests against OpenWeatherMap. It holds no mutable
// state once built and may be shared between goroutines.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration

	// bucketZone decides which calendar day a forecast sample belongs to.
	bucketZone *time.Location
	cityZone   bool

	rest *resty.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root (tests, proxies).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient makes the client send requests through hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every request. Zero keeps the transport defaults.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithBucketZone sets the zone used to group forecast samples by date.
func WithBucketZone(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.bucketZone = loc
		}
	}
}

// WithCityTimezone groups forecast samples by the forecast city's own UTC
// offset instead of the bucket zone.
func WithCityTimezone(enabled bool) Option {
	return func(c *Client) { c.cityZone = enabled }
}

// NewClient creates a Client for the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	if apiKey == "" {
		log.Printf("INFO: OpenWeatherMap API key is not configured; using placeholder key")
		apiKey = PlaceholderAPIKey
	}

	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		bucketZone: time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}

	rest := resty.New()
	if c.httpClient != nil {
		// SetTimeout writes through to the wrapped client; work on a copy.
		hc := *c.httpClient
		rest = resty.NewWithClient(&hc)
	}
	rest.SetBaseURL(c.baseURL).
		SetHeader("Accept", "application/json")
	if c.timeout > 0 {
		rest.SetTimeout(c.timeout)
	}

	// Only the path is logged so the appid never reaches the logs.
	rest.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		path := ""
		if resp.RawResponse != nil && resp.RawResponse.Request != nil {
			path = resp.RawResponse.Request.URL.Path
		}
		log.Printf("DEBUG: openweathermap %s %s -> %d (%s)", resp.Request.Method, path, resp.StatusCode(), resp.Time())
		return nil
	})

	c.rest = rest
	return c
}

// GetCurrentWeather fetches current conditions for a free-text location name
// such as "Taipei,TW".
func (c *Client) GetCurrentWeather(ctx context.Context, city string, units Units) (*CurrentConditions, error) {
	params := map[string]string{
		"q":     city,
		"units": unitsParam(units),
	}

	var out CurrentConditions
	if err := c.get(ctx, "/weather", params, &out); err != nil {
		log.Printf("ERROR: fetching current weather for %q: %v", city, err)
		return nil, err
	}
	return &out, nil
}

// GetWeatherByCoords fetches current conditions for a coordinate pair.
func (c *Client) GetWeatherByCoords(ctx context.Context, lat, lon float64, units Units) (*CurrentConditions, error) {
	var out CurrentConditions
	if err := c.get(ctx, "/weather", coordParams(lat, lon, units), &out); err != nil {
		log.Printf("ERROR: fetching weather by coordinates (%v, %v): %v", lat, lon, err)
		return nil, err
	}
	return &out, nil
}

// GetForecast fetches the 5-day/3-hour feed for a coordinate pair and reduces
// it to daily entries.
func (c *Client) GetForecast(ctx context.Context, lat, lon float64, units Units) (*ForecastSet, error) {
	var raw ForecastResponse
	if err := c.get(ctx, "/forecast", coordParams(lat, lon, units), &raw); err != nil {
		log.Printf("ERROR: fetching forecast for (%v, %v): %v", lat, lon, err)
		return nil, err
	}

	label := timezoneLabel(raw.City.Timezone)
	zone := c.bucketZone
	if c.cityZone {
		zone = time.FixedZone(label, raw.City.Timezone)
	}

	return &ForecastSet{
		Lat:            raw.City.Coord.Lat,
		Lon:            raw.City.Coord.Lon,
		City:           raw.City.Name,
		Country:        raw.City.Country,
		Timezone:       label,
		TimezoneOffset: raw.City.Timezone,
		Daily:          DailyFromSamples(raw.List, zone),
	}, nil
}

// get performs a GET on endpoint and decodes a 2xx body into out. Non-2xx
// responses come back as *APIError; its Message stays empty unless the
// provider sent one.
func (c *Client) get(ctx context.Context, endpoint string, params map[string]string, out any) error {
	params["appid"] = c.apiKey

	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(endpoint)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}

	if resp.IsError() {
		apiErr := &APIError{StatusCode: resp.StatusCode()}
		if err := json.Unmarshal(resp.Body(), apiErr); err != nil {
			log.Printf("DEBUG: openweathermap error body is not JSON: %v", err)
		}
		return apiErr
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func coordParams(lat, lon float64, units Units) map[string]string {
	return map[string]string{
		"lat":   strconv.FormatFloat(lat, 'f', -1, 64),
		"lon":   strconv.FormatFloat(lon, 'f', -1, 64),
		"units": unitsParam(units),
	}
}

func unitsParam(u Units) string {
	if u == "" {
		return string(Metric)
	}
	return string(u)
}
