package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// PaginatedResponse is the envelope of every list endpoint that pages.
type PaginatedResponse struct {
	Data       any        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Pagination describes one page of an offset/limit listing.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// paginate reads offset and limit from the query and clamps them against
// total. It returns the page description and the slice bounds to serve. An
// offset past the end yields an empty page at total.
func paginate(c *fiber.Ctx, total, defLimit, maxLimit int) (Pagination, int, int) {
	offset := max(c.QueryInt("offset", 0), 0)
	limit := c.QueryInt("limit", defLimit)
	if limit <= 0 || limit > maxLimit {
		limit = defLimit
	}
	start := min(offset, total)
	end := start + min(limit, total-start)
	return Pagination{Offset: start, Limit: limit, Total: total}, start, end
}

// SetLinkHeaders writes an RFC 8288 Link header for p. Query parameters other
// than offset and limit are carried over to every link.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	q := url.Values{}
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		q.Add(string(k), string(v))
	})
	link := func(offset int, rel string) string {
		q.Set("offset", strconv.Itoa(offset))
		q.Set("limit", strconv.Itoa(p.Limit))
		return fmt.Sprintf(`<%s?%s>; rel="%s"`, c.Path(), q.Encode(), rel)
	}

	links := []string{link(0, "first")}
	if p.Offset > 0 {
		links = append(links, link(max(p.Offset-p.Limit, 0), "prev"))
	}
	if p.Limit < p.Total-p.Offset {
		links = append(links, link(p.Offset+p.Limit, "next"))
	}
	links = append(links, link(max(p.Total-p.Limit, 0), "last"))
	c.Set("Link", strings.Join(links, ", "))
}
