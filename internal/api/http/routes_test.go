package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-dashboard/internal/settings"
	"github.com/i474232898/weather-dashboard/internal/storage"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// stubClient answers every city with fixed Tainan conditions unless failWith
// is set.
type stubClient struct {
	failWith   error
	lastCity   string
	lastUnits  weather.Units
	coordsHits int
}

func (s *stubClient) GetCurrentWeather(_ context.Context, city string, units weather.Units) (*weather.CurrentConditions, error) {
	s.lastCity, s.lastUnits = city, units
	if s.failWith != nil {
		return nil, s.failWith
	}
	return &weather.CurrentConditions{
		Coord: &weather.Coord{Lat: 22.99, Lon: 120.21},
		Main:  weather.MainReadings{Temp: 29.4},
		Name:  city,
	}, nil
}

func (s *stubClient) GetWeatherByCoords(ctx context.Context, lat, lon float64, units weather.Units) (*weather.CurrentConditions, error) {
	s.coordsHits++
	return s.GetCurrentWeather(ctx, "Tainan", units)
}

func (s *stubClient) GetForecast(_ context.Context, lat, lon float64, _ weather.Units) (*weather.ForecastSet, error) {
	return &weather.ForecastSet{Lat: lat, Lon: lon, Daily: []weather.DailyForecastEntry{{Date: "2024-05-01"}}}, nil
}

func newTestApp(t *testing.T) (*fiber.App, *stubClient, *store.Store) {
	t.Helper()
	return newTestAppWithContext(t, context.Background())
}

func newTestAppWithContext(t *testing.T, ctx context.Context) (*fiber.App, *stubClient, *store.Store) {
	t.Helper()

	client := &stubClient{}
	st := store.New(client, storage.NewMemory(), settings.Defaults())

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(ctx, app, st)
	return app, client, st
}

func doRequest(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, map[string]any) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, out
}

func TestGetState(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, body := doRequest(t, app, http.MethodGet, "/api/v1/state", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if body["temperatureSymbol"] != "°C" || body["windSpeedUnit"] != "m/s" {
		t.Errorf("unexpected labels %v %v", body["temperatureSymbol"], body["windSpeedUnit"])
	}
	if body["currentWeather"] != nil || body["loading"] != false {
		t.Errorf("expected empty state, got %v", body)
	}
}

func TestCurrentWeatherRequiresCity(t *testing.T) {
	app, client, _ := newTestApp(t)

	resp, body := doRequest(t, app, http.MethodGet, "/api/v1/weather/current?city=%20%20", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
	if body["error"] != true {
		t.Errorf("expected error envelope, got %v", body)
	}
	if client.lastCity != "" {
		t.Errorf("expected no client call, got %q", client.lastCity)
	}
}

func TestCurrentWeather(t *testing.T) {
	app, client, _ := newTestApp(t)

	resp, body := doRequest(t, app, http.MethodGet, "/api/v1/weather/current?city=Taipei,TW", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if client.lastCity != "Taipei,TW" {
		t.Errorf("expected fetch of Taipei,TW, got %q", client.lastCity)
	}
	current, _ := body["currentWeather"].(map[string]any)
	if current["name"] != "Taipei,TW" {
		t.Errorf("expected current weather for Taipei,TW, got %v", body["currentWeather"])
	}
	if body["forecast"] == nil {
		t.Error("expected forecast in state")
	}
}

func TestCurrentWeatherProviderFailure(t *testing.T) {
	app, client, _ := newTestApp(t)
	client.failWith = &weather.APIError{StatusCode: 404, Message: "city not found"}

	resp, body := doRequest(t, app, http.MethodGet, "/api/v1/weather/current?city=Atlantis", "")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d", http.StatusBadGateway, resp.StatusCode)
	}
	if body["error"] != "city not found" {
		t.Errorf("expected provider message in state, got %v", body["error"])
	}
}

func TestCoordsValidation(t *testing.T) {
	app, client, _ := newTestApp(t)

	for _, target := range []string{
		"/api/v1/weather/coords?lat=22.99",
		"/api/v1/weather/coords?lat=abc&lon=120",
		"/api/v1/weather/coords?lat=91&lon=120",
		"/api/v1/weather/coords?lat=22&lon=181",
	} {
		resp, _ := doRequest(t, app, http.MethodGet, target, "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected status %d, got %d", target, http.StatusBadRequest, resp.StatusCode)
		}
	}
	if client.coordsHits != 0 {
		t.Errorf("expected no client calls, got %d", client.coordsHits)
	}

	resp, _ := doRequest(t, app, http.MethodGet, "/api/v1/weather/coords?lat=22.99&lon=120.21", "")
	if resp.StatusCode != http.StatusOK || client.coordsHits != 1 {
		t.Errorf("expected one successful lookup, got status %d and %d calls", resp.StatusCode, client.coordsHits)
	}
}

func TestSearch(t *testing.T) {
	app, client, st := newTestApp(t)

	resp, _ := doRequest(t, app, http.MethodPost, "/api/v1/weather/search", `{"query":"   "}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if client.lastCity != "" || st.State().CurrentWeather != nil {
		t.Error("expected blank search to do nothing")
	}

	resp, _ = doRequest(t, app, http.MethodPost, "/api/v1/weather/search", `{"query":" Kaohsiung "}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if client.lastCity != "Kaohsiung" {
		t.Errorf("expected trimmed search, got %q", client.lastCity)
	}
}

func TestSearchMalformedBody(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, body := doRequest(t, app, http.MethodPost, "/api/v1/weather/search", `{"query":`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
	if body["message"] != "invalid request body" {
		t.Errorf("unexpected message %v", body["message"])
	}
}

func TestLoadDefaultAndRefresh(t *testing.T) {
	app, client, _ := newTestApp(t)

	doRequest(t, app, http.MethodPost, "/api/v1/weather/default", "")
	if client.lastCity != "Tainan,TW" {
		t.Errorf("expected default city fetch, got %q", client.lastCity)
	}

	doRequest(t, app, http.MethodGet, "/api/v1/weather/current?city=Taipei", "")
	doRequest(t, app, http.MethodPost, "/api/v1/weather/refresh", "")
	if client.lastCity != "Taipei" {
		t.Errorf("expected refresh of displayed city, got %q", client.lastCity)
	}
}

func TestSettings(t *testing.T) {
	app, client, _ := newTestApp(t)

	_, body := doRequest(t, app, http.MethodGet, "/api/v1/settings", "")
	if body["defaultCity"] != "Tainan,TW" || body["temperatureUnit"] != "metric" {
		t.Errorf("unexpected settings %v", body)
	}

	resp, body := doRequest(t, app, http.MethodPut, "/api/v1/settings/city", `{"city":"Taipei,TW"}`)
	if resp.StatusCode != http.StatusOK || body["defaultCity"] != "Taipei,TW" {
		t.Errorf("expected updated city, got %d %v", resp.StatusCode, body)
	}

	resp, _ = doRequest(t, app, http.MethodPut, "/api/v1/settings/city", `{"city":""}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status %d for empty city, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	resp, _ = doRequest(t, app, http.MethodPut, "/api/v1/settings/unit", `{"unit":"kelvin"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status %d for kelvin, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	resp, body = doRequest(t, app, http.MethodPut, "/api/v1/settings/unit", `{"unit":"imperial"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if body["temperatureSymbol"] != "°F" || body["windSpeedUnit"] != "mph" {
		t.Errorf("expected imperial labels, got %v", body)
	}
	if client.lastCity != "" {
		t.Errorf("expected no refetch without displayed weather, got %q", client.lastCity)
	}
}

func TestEventsStreamEndsWhenServerStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	app, _, _ := newTestAppWithContext(t, ctx)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	resp, err := app.Test(req, 2000)
	if err != nil {
		t.Fatalf("expected the stream to finish, got %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %s", got)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.HasPrefix(string(body), "event: state\ndata: {") {
		t.Errorf("expected the initial state event, got %q", body)
	}
}

func TestWriteStateEvent(t *testing.T) {
	var sb strings.Builder
	w := bufio.NewWriter(&sb)

	s := store.State{Settings: settings.Defaults(), SearchCity: "Tainan"}
	if err := writeStateEvent(w, json.Marshal, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := sb.String()
	if !strings.HasPrefix(out, "event: state\ndata: {") || !strings.HasSuffix(out, "}\n\n") {
		t.Fatalf("unexpected event framing %q", out)
	}
	if !strings.Contains(out, `"searchCity":"Tainan"`) || !strings.Contains(out, `"temperatureSymbol":"°C"`) {
		t.Errorf("unexpected event payload %q", out)
	}
}

func TestOfferLatestKeepsNewest(t *testing.T) {
	ch := make(chan store.State, 1)

	offerLatest(ch, store.State{SearchCity: "first"})
	offerLatest(ch, store.State{SearchCity: "second"})

	if got := (<-ch).SearchCity; got != "second" {
		t.Errorf("expected newest snapshot, got %q", got)
	}
	select {
	case s := <-ch:
		t.Errorf("expected empty channel, got %+v", s)
	default:
	}
}
