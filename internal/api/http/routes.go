package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/weatherpulse/internal/geo"
	"github.com/i474232898/weatherpulse/internal/store"
	"github.com/i474232898/weatherpulse/internal/weather"
)

var validate = validator.New()

// statusClientClosedRequest is the non-standard status for requests the
// client abandoned before a response was ready.
const statusClientClosedRequest = 499

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	v1 := app.Group("/api/v1")

	v1.Get("/dashboard", func(c *fiber.Ctx) error {
		q, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		dashboard, err := service.Dashboard(c.UserContext(), q)
		if err != nil {
			return upstreamError(logger, "dashboard", q, err)
		}

		return c.JSON(dashboard)
	})

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		q, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := service.Current(c.UserContext(), q)
		if err != nil {
			return upstreamError(logger, "current weather", q, err)
		}

		return c.JSON(report)
	})

	v1.Get("/weather/air-quality", func(c *fiber.Ctx) error {
		var req coordsQuery
		req.Lat = c.Query("lat")
		req.Lon = c.Query("lon")
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		q, err := req.toQuery()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		aq, err := service.AirQuality(c.UserContext(), *q.Coords)
		if err != nil {
			return upstreamError(logger, "air quality", q, err)
		}

		return c.JSON(aq)
	})

	v1.Get("/weather/forecast", func(c *fiber.Ctx) error {
		q, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		days, err := intQuery(c, "days", weather.ForecastDays)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		req := forecastQuery{Days: days}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "days must be between 1 and 5")
		}

		forecast, err := service.Forecast(c.UserContext(), q, req.Days)
		if err != nil {
			return upstreamError(logger, "forecast", q, err)
		}

		return c.JSON(fiber.Map{
			"query": q,
			"days":  forecast,
		})
	})

	v1.Get("/weather/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		snapshots, err := service.History(req.Query, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather history for requested range")
			}
			logger.Error("Failed to read history", zap.String("key", req.Query.Key()), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}

		return c.JSON(fiber.Map{
			"query":     req.Query,
			"from":      req.From,
			"to":        req.To,
			"snapshots": snapshots,
		})
	})

	v1.Get("/searches/recent", func(c *fiber.Ctx) error {
		limit, err := intQuery(c, "limit", 10)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		req := recentQuery{Limit: limit}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and 50")
		}

		recent, err := service.Recent(req.Limit)
		if err != nil {
			logger.Error("Failed to read recent searches", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch recent searches")
		}
		if recent == nil {
			recent = []weather.Dashboard{}
		}

		return c.JSON(fiber.Map{
			"searches": recent,
		})
	})
}

// upstreamError logs err and maps it onto an HTTP status.
func upstreamError(logger *zap.Logger, what string, q weather.Query, err error) error {
	switch {
	case errors.Is(err, weather.ErrLocationNotFound):
		return fiber.NewError(fiber.StatusNotFound, "location not found")
	case errors.Is(err, weather.ErrNoForecast):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, weather.ErrInvalidDays):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		logger.Debug("Request canceled by client",
			zap.String("what", what),
			zap.String("query", q.String()))
		return fiber.NewError(statusClientClosedRequest, "request canceled")
	}

	logger.Error("Failed to fetch "+what,
		zap.String("query", q.String()),
		zap.Error(err))

	switch {
	case errors.Is(err, weather.ErrProviderNotConfigured):
		return fiber.NewError(fiber.StatusServiceUnavailable, "weather provider not configured")
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, "weather provider timed out")
	default:
		return fiber.NewError(fiber.StatusBadGateway, "failed to fetch "+what)
	}
}

// locationQuery holds query parameters for identifying a location: a city
// name or a lat/lon pair.
type locationQuery struct {
	City string `validate:"required_without=Lat,max=100"`
	Lat  string `validate:"required_without=City,required_with=Lon,omitempty,latitude"`
	Lon  string `validate:"required_with=Lat,omitempty,longitude"`
}

func (l locationQuery) toQuery() (weather.Query, error) {
	if l.Lat != "" && l.Lon != "" {
		return coordsQuery{Lat: l.Lat, Lon: l.Lon}.toQuery()
	}
	return weather.CityQuery(l.City), nil
}

func parseLocationQuery(c *fiber.Ctx) (weather.Query, error) {
	var l locationQuery

	l.City = c.Query("city")
	l.Lat = c.Query("lat")
	l.Lon = c.Query("lon")

	if err := validate.Struct(l); err != nil {
		return weather.Query{}, err
	}

	return l.toQuery()
}

// coordsQuery holds query parameters for coordinate-only endpoints.
type coordsQuery struct {
	Lat string `validate:"required,latitude"`
	Lon string `validate:"required,longitude"`
}

func (c coordsQuery) toQuery() (weather.Query, error) {
	lat, err := strconv.ParseFloat(c.Lat, 64)
	if err != nil {
		return weather.Query{}, errors.New("invalid lat")
	}
	lon, err := strconv.ParseFloat(c.Lon, 64)
	if err != nil {
		return weather.Query{}, errors.New("invalid lon")
	}
	return weather.Query{Coords: &geo.Coordinates{Lat: lat, Lon: lon}}, nil
}

type forecastQuery struct {
	Days int `validate:"min=1,max=5"`
}

type recentQuery struct {
	Limit int `validate:"min=1,max=50"`
}

func intQuery(c *fiber.Ctx, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Query weather.Query `validate:"-"`
	From  time.Time     `validate:"required"`
	To    time.Time     `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	q, err := parseLocationQuery(c)
	if err != nil {
		return err
	}
	h.Query = q

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
