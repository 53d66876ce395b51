package utils

import (
	"strconv" // String conversion

	"github.com/gin-gonic/gin" // Gin web framework
)

// Page size bounds
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Page is a limit/offset window over a list
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ParsePage reads limit and offset query parameters, clamping them to sane bounds
func ParsePage(c *gin.Context) Page {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	if err != nil || limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}

// List is the envelope returned by paginated endpoints
type List[T any] struct {
	Data   []T   `json:"data"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// NewList builds the envelope, never emitting a null data array
func NewList[T any](data []T, total int64, p Page) List[T] {
	if data == nil {
		data = []T{}
	}
	return List[T]{Data: data, Total: total, Limit: p.Limit, Offset: p.Offset}
}
