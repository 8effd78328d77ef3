package api

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/taklabs/coordinator/internal/idempotency"
)

// HeaderIdempotencyKey is the header carrying the client-supplied key.
const HeaderIdempotencyKey = "Idempotency-Key"

// IdempotencyMiddleware short-circuits replayed mutating calls. A key
// may arrive via the Idempotency-Key header or an idempotency_key body
// field; a hit within the retention window returns the original status
// and body byte-for-byte without touching business logic. Only 2xx
// responses are recorded.
func IdempotencyMiddleware(guard *idempotency.Guard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPut, fiber.MethodDelete:
		default:
			return c.Next()
		}

		key := c.Get(HeaderIdempotencyKey)
		if key == "" {
			var probe struct {
				Key string `json:"idempotency_key"`
			}
			if err := json.Unmarshal(c.Body(), &probe); err == nil {
				key = probe.Key
			}
		}
		if key == "" {
			return c.Next()
		}

		if rec := guard.Lookup(c.Context(), key); rec != nil {
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			c.Set("Idempotency-Replayed", "true")
			return c.Status(rec.Status).Send(rec.Body)
		}

		if err := c.Next(); err != nil {
			return err
		}

		status := c.Response().StatusCode()
		if status >= 200 && status < 300 {
			body := make([]byte, len(c.Response().Body()))
			copy(body, c.Response().Body())
			guard.Record(c.Context(), key, idempotency.Record{Status: status, Body: body})
		}
		return nil
	}
}
