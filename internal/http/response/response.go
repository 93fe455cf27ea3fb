package response

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Response is the JSON envelope shared by every API endpoint.
type Response[T any] struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	Data      T              `json:"data"`
	Meta      map[string]any `json:"meta,omitempty"`
	ErrorCode string         `json:"error_code,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// Pagination is the meta block of paged listings.
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
}

// OK writes a 200 success envelope.
func OK[T any](c *fiber.Ctx, data T, message string) error {
	return c.Status(fiber.StatusOK).JSON(&Response[T]{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

// OKWithMeta writes a 200 success envelope carrying meta.
func OKWithMeta[T any](c *fiber.Ctx, data T, meta map[string]any, message string) error {
	return c.Status(fiber.StatusOK).JSON(&Response[T]{
		Success:   true,
		Message:   message,
		Data:      data,
		Meta:      meta,
		Timestamp: time.Now().UnixMilli(),
	})
}

// Fail writes an error envelope with status.
func Fail(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(&Response[any]{
		Success:   false,
		Message:   message,
		ErrorCode: code,
		Timestamp: time.Now().UnixMilli(),
	})
}
