package httpapi

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-dashboard/internal/settings"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

// ErrorHandler renders every handler error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. ctx is the
// server's lifetime; long-lived streams close when it is done.
func RegisterRoutes(ctx context.Context, app *fiber.App, st *store.Store) {
	v1 := app.Group("/api/v1")

	v1.Get("/state", func(c *fiber.Ctx) error {
		return c.JSON(newStateView(st.State()))
	})

	v1.Get("/events", streamEvents(ctx, st))

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		q := cityQuery{City: strings.TrimSpace(c.Query("city"))}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		st.FetchCurrentWeather(c.UserContext(), q.City)
		return respondWithState(c, st.State())
	})

	v1.Get("/weather/coords", func(c *fiber.Ctx) error {
		q, err := parseCoordsQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		st.FetchWeatherByCoords(c.UserContext(), q.Lat, q.Lon)
		return respondWithState(c, st.State())
	})

	v1.Post("/weather/search", func(c *fiber.Ctx) error {
		var req searchRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}

		st.SetSearchCity(req.Query)
		st.SearchWeather(c.UserContext())
		return respondWithState(c, st.State())
	})

	v1.Post("/weather/default", func(c *fiber.Ctx) error {
		st.LoadDefaultCityWeather(c.UserContext())
		return respondWithState(c, st.State())
	})

	v1.Post("/weather/refresh", func(c *fiber.Ctx) error {
		st.Refresh(c.UserContext())
		return respondWithState(c, st.State())
	})

	v1.Get("/settings", func(c *fiber.Ctx) error {
		return c.JSON(newSettingsView(st.State()))
	})

	v1.Put("/settings/city", func(c *fiber.Ctx) error {
		var req cityRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}

		if err := st.SetDefaultCity(strings.TrimSpace(req.City)); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save settings")
		}
		return c.JSON(newSettingsView(st.State()))
	})

	v1.Put("/settings/unit", func(c *fiber.Ctx) error {
		var req unitRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}

		if err := st.SetTemperatureUnit(c.UserContext(), req.Unit); err != nil {
			if errors.Is(err, store.ErrInvalidUnit) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save settings")
		}
		return c.JSON(newSettingsView(st.State()))
	})
}

// stateView is the store state plus the labels derived from the active unit.
type stateView struct {
	store.State
	TemperatureSymbol string `json:"temperatureSymbol"`
	WindSpeedUnit     string `json:"windSpeedUnit"`
}

func newStateView(s store.State) stateView {
	return stateView{
		State:             s,
		TemperatureSymbol: s.TemperatureSymbol(),
		WindSpeedUnit:     s.WindSpeedUnit(),
	}
}

type settingsView struct {
	settings.Settings
	TemperatureSymbol string `json:"temperatureSymbol"`
	WindSpeedUnit     string `json:"windSpeedUnit"`
}

func newSettingsView(s store.State) settingsView {
	return settingsView{
		Settings:          s.Settings,
		TemperatureSymbol: s.TemperatureSymbol(),
		WindSpeedUnit:     s.WindSpeedUnit(),
	}
}

// respondWithState answers with the state, as 502 when the last fetch failed.
func respondWithState(c *fiber.Ctx, s store.State) error {
	if s.Error != nil {
		c.Status(fiber.StatusBadGateway)
	}
	return c.JSON(newStateView(s))
}

// bindJSON decodes the request body into req and validates it.
func bindJSON(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

type cityQuery struct {
	City string `validate:"required,max=200"`
}

// coordsQuery holds query parameters for coordinate lookups.
type coordsQuery struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lon float64 `validate:"gte=-180,lte=180"`
}

func parseCoordsQuery(c *fiber.Ctx) (coordsQuery, error) {
	var q coordsQuery

	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return q, errors.New("lat and lon query parameters are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return q, errors.New("invalid lat; use a decimal number")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return q, errors.New("invalid lon; use a decimal number")
	}

	q.Lat, q.Lon = lat, lon
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// searchRequest is the body of a search. Blank queries are accepted and
// leave the state untouched.
type searchRequest struct {
	Query string `json:"query" validate:"max=200"`
}

type cityRequest struct {
	City string `json:"city" validate:"required,max=200"`
}

type unitRequest struct {
	Unit weather.Units `json:"unit" validate:"required,oneof=metric imperial"`
}
