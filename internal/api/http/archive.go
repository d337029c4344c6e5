package httpapi

import (
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/rainfield/internal/archive"
)

var stormIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func init() {
	_ = validate.RegisterValidation("stormid", func(fl validator.FieldLevel) bool {
		return stormIDPattern.MatchString(fl.Field().String())
	})
}

// dateScope identifies a listing of archived maps.
type dateScope struct {
	Date  string `validate:"required,numeric,max=14"`
	Scope string `validate:"omitempty,stormid,max=32"`
}

// stormRef identifies a single storm, optionally on a given date.
type stormRef struct {
	Date string `validate:"omitempty,numeric,max=14"`
	ID   string `validate:"required,stormid,max=32"`
}

func registerArchiveRoutes(app *fiber.App, arch *archive.Archive) {
	if arch == nil {
		return
	}
	api := app.Group("/api")

	api.Get("/snapshots/latest", func(c *fiber.Ctx) error {
		snap, err := arch.Latest()
		if err != nil {
			return archiveError(err, "no data generated yet")
		}
		return c.JSON(snap)
	})

	api.Get("/storms", func(c *fiber.Ctx) error {
		doc, err := arch.LatestStorms()
		if err != nil {
			return archiveError(err, "no general storms JSON found")
		}
		c.Type("json")
		return c.Send(doc.Data)
	})

	api.Get("/storms/:id", func(c *fiber.Ctx) error {
		ref, err := bindStormRef(c)
		if err != nil {
			return err
		}
		doc, err := arch.StormByID(ref.ID)
		if err != nil {
			return archiveError(err, "no JSON found for storm "+ref.ID)
		}
		c.Type("json")
		return c.Send(doc.Data)
	})

	api.Get("/maps", func(c *fiber.Ctx) error {
		img, err := arch.LatestGeneralMap()
		if err != nil {
			return archiveError(err, "no general map found")
		}
		c.Type("png")
		return c.Send(img)
	})

	api.Get("/maps/:id", func(c *fiber.Ctx) error {
		ref, err := bindStormRef(c)
		if err != nil {
			return err
		}
		img, err := arch.LatestStormMap(ref.ID)
		if err != nil {
			return archiveError(err, "no map found for storm "+ref.ID)
		}
		c.Type("png")
		return c.Send(img)
	})

	api.Get("/date/:date/snapshot", func(c *fiber.Ctx) error {
		q, err := bindDateScope(c)
		if err != nil {
			return err
		}
		snap, err := arch.ByDate(q.Date)
		if err != nil {
			return archiveError(err, "no data found for date "+q.Date)
		}
		return c.JSON(snap)
	})

	api.Get("/date/:date/storms", func(c *fiber.Ctx) error {
		q, err := bindDateScope(c)
		if err != nil {
			return err
		}
		snap, docs, err := arch.StormsJSON(q.Date)
		if err != nil {
			return archiveError(err, "no JSON files found for date "+q.Date)
		}
		return c.JSON(fiber.Map{
			"date":        q.Date,
			"directory":   snap.Name,
			"total_files": len(docs),
			"data":        docs,
		})
	})

	api.Get("/date/:date/storms/:id", func(c *fiber.Ctx) error {
		ref, err := bindStormRef(c)
		if err != nil {
			return err
		}
		if ref.Date == "" {
			return fiber.NewError(fiber.StatusBadRequest, "date is required")
		}
		doc, err := arch.StormByDate(ref.Date, ref.ID)
		if err != nil {
			return archiveError(err, "no JSON found for storm "+ref.ID+" on "+ref.Date)
		}
		return c.JSON(fiber.Map{
			"date":     ref.Date,
			"storm_id": ref.ID,
			"file":     doc.File,
			"data":     doc.Data,
		})
	})

	api.Get("/date/:date/maps/:scope/list", func(c *fiber.Ctx) error {
		q, err := bindDateScope(c)
		if err != nil {
			return err
		}
		images, err := arch.ListImages(q.Date, q.Scope)
		if err != nil {
			return archiveError(err, "no maps found for "+q.Scope+" on "+q.Date)
		}
		return c.JSON(fiber.Map{
			"date":         q.Date,
			"scope":        q.Scope,
			"total_images": len(images),
			"images":       images,
		})
	})

	api.Get("/date/:date/maps/:scope/:index", func(c *fiber.Ctx) error {
		q, err := bindDateScope(c)
		if err != nil {
			return err
		}
		index, err := c.ParamsInt("index")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "index must be an integer")
		}
		img, err := arch.ImageByIndex(q.Date, q.Scope, index)
		if err != nil {
			return archiveError(err, "no maps found for "+q.Scope+" on "+q.Date)
		}
		c.Type("png")
		return c.Send(img)
	})
}

func bindDateScope(c *fiber.Ctx) (dateScope, error) {
	q := dateScope{Date: c.Params("date"), Scope: c.Params("scope")}
	if err := validate.Struct(q); err != nil {
		return q, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return q, nil
}

func bindStormRef(c *fiber.Ctx) (stormRef, error) {
	ref := stormRef{Date: c.Params("date"), ID: c.Params("id")}
	if err := validate.Struct(ref); err != nil {
		return ref, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return ref, nil
}

func archiveError(err error, notFound string) error {
	switch {
	case errors.Is(err, archive.ErrIndexOutOfRange):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, archive.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, notFound)
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "failed to read archive")
	}
}
