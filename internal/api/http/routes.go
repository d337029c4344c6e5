package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/rainfield/internal/archive"
	"github.com/i474232898/rainfield/internal/rainfield"
	"github.com/i474232898/rainfield/internal/store"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *rainfield.Service, arch *archive.Archive, defaults rainfield.FieldParams) {
	rainmap := app.Group("/rainmap")

	rainmap.Get("/realtime", func(c *fiber.Ctx) error {
		params, err := parseFieldQuery(c, defaults)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := service.GetInterpolatedField(c.UserContext(), params.GridSize, params.Density)
		if err != nil {
			var se *rainfield.ServiceError
			if errors.As(err, &se) {
				return fiber.NewError(fiber.StatusInternalServerError, se.Detail)
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		return c.JSON(report)
	})

	rainmap.Get("/latest", func(c *fiber.Ctx) error {
		params, err := parseFieldQuery(c, defaults)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := service.GetLatest(params)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no rain field cached yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read cached rain field")
		}

		return c.JSON(report)
	})

	rainmap.Get("/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c, defaults); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		reports, err := service.GetRange(req.Field, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no rain fields for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read rain field history")
		}

		return c.JSON(fiber.Map{
			"grid_size": req.Field.GridSize,
			"density":   req.Field.Density,
			"from":      req.From,
			"to":        req.To,
			"reports":   reports,
		})
	})

	registerArchiveRoutes(app, arch)
}

// parseFieldQuery reads grid_size and density, falling back to defaults when absent.
// Range checks are left to the service.
func parseFieldQuery(c *fiber.Ctx, defaults rainfield.FieldParams) (rainfield.FieldParams, error) {
	params := defaults

	if v := c.Query("grid_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return params, errors.New("grid_size must be an integer")
		}
		params.GridSize = n
	}
	if v := c.Query("density"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return params, errors.New("density must be an integer")
		}
		params.Density = n
	}

	return params, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Field rainfield.FieldParams
	From  time.Time `validate:"required"`
	To    time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx, defaults rainfield.FieldParams) error {
	field, err := parseFieldQuery(c, defaults)
	if err != nil {
		return err
	}
	h.Field = field

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
