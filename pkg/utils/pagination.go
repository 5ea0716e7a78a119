package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// LimitOffset extracts limit/offset query parameters, clamping to sane bounds.
func LimitOffset(c echo.Context, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	offset = 0

	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}

	if offsetStr := c.QueryParam("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return limit, offset
}
