package http

import (
	"bytes"
	"image/png"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/image/bmp"

	"github.com/samirrijal/epiviz/internal/core/usecases"
)

const (
	defaultLegendWidth  = 256
	defaultLegendHeight = 16
)

// ListGradientsHandler returns every registered gradient.
func ListGradientsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Gradients.List())
	}
}

// GetGradientHandler returns one gradient by name or slug.
func GetGradientHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		info, err := deps.Gradients.Get(nameParam(c, "name"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(info)
	}
}

// ResolveColourHandler looks a value up in a gradient.
func ResolveColourHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		value, err := requireFloat(c, "value")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		scale, err := queryFloat(c, "scale", 0)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		res, err := deps.Gradients.Resolve(nameParam(c, "name"), value, scale)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(res)
	}
}

// LegendHandler renders a gradient as a PNG or BMP strip.
func LegendHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		width := c.QueryInt("width", defaultLegendWidth)
		height := c.QueryInt("height", defaultLegendHeight)
		format := strings.ToLower(c.Query("format", "png"))
		if format != "png" && format != "bmp" {
			return errBadRequest(c, "format must be png or bmp")
		}

		img, err := deps.Gradients.Legend(nameParam(c, "name"), width, height)
		if err != nil {
			return errFromDomain(c, err)
		}

		var buf bytes.Buffer
		if format == "bmp" {
			err = bmp.Encode(&buf, img)
			c.Set(fiber.HeaderContentType, "image/bmp")
		} else {
			err = png.Encode(&buf, img)
			c.Set(fiber.HeaderContentType, "image/png")
		}
		if err != nil {
			return errInternal(c, "encode legend: "+err.Error())
		}

		c.Set("Cache-Control", "public, max-age=86400")
		return c.Send(buf.Bytes())
	}
}

// ListMapsHandler returns every registered map.
func ListMapsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Maps.List())
	}
}

// GetMapHandler returns one map by name or slug.
func GetMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := deps.Maps.Get(nameParam(c, "name"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(m)
	}
}

// FitMapHandler fits a map image into a viewport.
func FitMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		width, err := requireFloat(c, "width")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		height, err := requireFloat(c, "height")
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		size, err := deps.Maps.Fit(nameParam(c, "name"), width, height)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(size)
	}
}

// CropMapHandler computes the viewport onto a map that shows a focus box.
// The focus is either an explicit box or a point with a radius in km.
func CropMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := usecases.CropQuery{Strict: c.QueryBool("strict", false)}
		var err error
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
			q.Focus = box
		} else {
			lat, err := requireFloat(c, "lat")
			if err != nil {
				return errBadRequest(c, "give min_lat/max_lat/min_lon/max_lon or lat/lon/radius_km: "+err.Error())
			}
			lon, err := requireFloat(c, "lon")
			if err != nil {
				return errBadRequest(c, err.Error())
			}
			radius, err := requireFloat(c, "radius_km")
			if err != nil {
				return errBadRequest(c, err.Error())
			}
			if q.Focus, err = deps.Maps.FocusAround(lat, lon, radius); err != nil {
				return errFromDomain(c, err)
			}
		}

		view, err := deps.Maps.Crop(c.UserContext(), nameParam(c, "name"), q)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(view)
	}
}
