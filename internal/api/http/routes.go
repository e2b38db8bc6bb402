package httpapi

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/pm25-dashboard/internal/airquality"
)

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *airquality.Service, staticDir string) {
	app.Get("/", func(c *fiber.Ctx) error {
		index := filepath.Join(staticDir, "index.html")
		if _, err := os.Stat(index); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load the dashboard")
		}
		return c.SendFile(index)
	})
	app.Static("/static", staticDir)

	app.Get("/data", func(c *fiber.Ctx) error {
		return c.JSON(service.Data())
	})

	app.Post("/predict", func(c *fiber.Ctx) error {
		fv, err := airquality.ParseFeatureVector(c.Body())
		if err != nil {
			return toHTTPError(err)
		}

		value, err := service.Predict(c.UserContext(), fv)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(fiber.Map{"prediction": value})
	})

	history := func(c *fiber.Ctx) error {
		return c.JSON(service.History(c.UserContext()))
	}
	app.Get("/history.json", history)
	app.Get("/get-history", history)

	app.Get("/get-forecast", func(c *fiber.Ctx) error {
		days, err := parseDays(c.Query("days"))
		if err != nil {
			return toHTTPError(err)
		}

		points, err := service.Forecast(c.UserContext(), days)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(points)
	})
}

// parseDays reads the forecast horizon; empty means the default.
func parseDays(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return airquality.DefaultForecastDays, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &airquality.ValidationError{Reason: "days must be a positive integer"}
	}
	return n, nil
}

// toHTTPError maps service errors onto status codes.
func toHTTPError(err error) error {
	var (
		ve *airquality.ValidationError
		me *airquality.ModelInferenceError
		se *airquality.StorageError
	)
	switch {
	case errors.As(err, &ve):
		return fiber.NewError(fiber.StatusBadRequest, ve.Error())
	case errors.As(err, &me):
		return fiber.NewError(fiber.StatusInternalServerError, me.Error())
	case errors.As(err, &se):
		return fiber.NewError(fiber.StatusInternalServerError, "failed to record prediction: "+se.Error())
	case errors.Is(err, airquality.ErrEmptyDataset):
		return fiber.NewError(fiber.StatusInternalServerError, "no complete dataset rows to forecast from")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
