package api

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/Veraticus/cardwise/internal/common"
)

const requestIDLocal = "requestid"

// requestID reuses the caller's X-Request-ID or assigns a uuid, echoes it in
// the response and keeps it in Locals.
func requestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		Generator:  uuid.NewString,
		ContextKey: requestIDLocal,
	})
}

// propagateRequestID copies the id assigned by requestID into the user
// context so that services can log it.
func propagateRequestID(c *fiber.Ctx) error {
	if id, ok := c.Locals(requestIDLocal).(string); ok {
		c.SetUserContext(common.WithRequestID(c.UserContext(), id))
	}
	return c.Next()
}

// accessLog logs one line per request. Handler errors are rendered here so
// that the logged status is the one sent.
func accessLog(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		level := slog.LevelInfo
		if status >= fiber.StatusInternalServerError {
			level = slog.LevelError
		}

		logger.Log(c.UserContext(), level, "HTTP request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", common.RequestIDFrom(c.UserContext()))
		return nil
	}
}
