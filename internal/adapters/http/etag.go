package http

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"

	"github.com/gofiber/fiber/v2"
)

// ETagMiddleware tags successful GET responses with a weak ETag derived from
// the body and answers 304 when If-None-Match already carries it.
func ETagMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}
		resp := c.Response()
		if c.Method() != fiber.MethodGet || resp.StatusCode() != fiber.StatusOK || len(resp.Body()) == 0 {
			return nil
		}

		sum := sha256.Sum256(resp.Body())
		tag := []byte(`W/"` + hex.EncodeToString(sum[:8]) + `"`)
		c.Set(fiber.HeaderETag, string(tag))

		for _, candidate := range bytes.Split(c.Request().Header.Peek(fiber.HeaderIfNoneMatch), []byte(",")) {
			if bytes.Equal(bytes.TrimSpace(candidate), tag) {
				c.Status(fiber.StatusNotModified)
				resp.ResetBody()
				break
			}
		}
		return nil
	}
}
