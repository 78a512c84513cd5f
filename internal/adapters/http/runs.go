package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/epiviz/internal/core/usecases"
)

// ListRunsHandler returns stored runs, newest first.
func ListRunsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		runs, err := deps.Heatmaps.Runs(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}

		pg, start, end := paginate(c, len(runs), 50, 200)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: runs[start:end], Pagination: pg})
	}
}

// GetRunHandler returns one run.
func GetRunHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		run, err := deps.Heatmaps.Run(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(run)
	}
}

// RunTownsHandler returns a page of a run's towns with their peak day.
func RunTownsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		towns, err := deps.Heatmaps.Towns(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}

		pg, start, end := paginate(c, len(towns), 100, 1000)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: towns[start:end], Pagination: pg})
	}
}

// RunFocusHandler returns the bounding box of a run's towns.
func RunFocusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		box, err := deps.Heatmaps.RunFocus(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(box)
	}
}

// FrameHandler colours a run's towns for one day.
func FrameHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		day, err := strconv.Atoi(c.Params("day"))
		if err != nil {
			return errBadRequest(c, "day must be an integer")
		}

		q := usecases.FrameQuery{
			RunID:    c.Params("id"),
			Day:      day,
			Gradient: c.Query("gradient"),
			Map:      c.Query("map"),
		}
		if q.Scale, err = queryFloat(c, "scale", 0); err != nil {
			return errBadRequest(c, err.Error())
		}
		if q.Map != "" {
			if q.Width, err = requireFloat(c, "width"); err != nil {
				return errBadRequest(c, err.Error())
			}
			if q.Height, err = requireFloat(c, "height"); err != nil {
				return errBadRequest(c, err.Error())
			}
			if q.Margin, err = queryFloat(c, "margin", 0); err != nil {
				return errBadRequest(c, err.Error())
			}
			box, ok, err := queryBox(c)
			if err != nil {
				return errBadRequest(c, err.Error())
			}
			if ok {
				q.Focus = &box
			}
		}

		frame, err := deps.Heatmaps.Frame(c.UserContext(), q)
		if err != nil {
			return errFromDomain(c, err)
		}

		// Stored runs never change once ingested.
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(frame)
	}
}
