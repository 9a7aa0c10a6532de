// Package pagination reads page/limit query parameters and shapes paged list payloads.
package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is a validated page request. Page is 1-based.
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Parse reads ?page= and ?limit=. Garbage or out of range values fall back to the defaults,
// and limit is capped at MaxLimit.
func Parse(c *gin.Context) Params {
	return New(queryInt(c, "page"), queryInt(c, "limit"))
}

// New clamps page and limit into a usable Params
func New(page, limit int) Params {
	if page < 1 {
		page = DefaultPage
	}
	switch {
	case limit < 1:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}

// Result wraps one page of items under key together with the paging metadata
func (p Params) Result(key string, items interface{}, total int64) map[string]interface{} {
	pages := int64(0)
	if total > 0 {
		pages = (total + int64(p.Limit) - 1) / int64(p.Limit)
	}
	return map[string]interface{}{
		key:           items,
		"total":       total,
		"page":        p.Page,
		"limit":       p.Limit,
		"total_pages": pages,
	}
}
