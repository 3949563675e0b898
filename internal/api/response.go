package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Veraticus/cardwise/internal/common"
)

// Envelope is the body of every API response.
type Envelope struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
	Success bool   `json:"success"`
}

func respond(c *fiber.Ctx, message string, data any) error {
	return c.JSON(Envelope{Success: true, Message: message, Data: data})
}

func respondStatus(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Envelope{Success: status < fiber.StatusBadRequest, Message: message, Data: data})
}

// bind decodes the JSON body into out.
func bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return common.InvalidInput("Request body must be valid JSON")
	}
	return nil
}

// handleError renders err as an error envelope. Internal errors keep their
// message out of production responses.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := common.StatusCode(err)
	message := common.PublicMessage(err)

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status = fiberErr.Code
		message = fiberErr.Message
	}

	logger := s.logger.With(
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"request_id", common.RequestIDFrom(c.UserContext()))

	if status >= fiber.StatusInternalServerError {
		logger.Error("request failed", "error", err)
		if s.opts.Production && common.KindOf(err) == common.KindInternal && fiberErr == nil {
			message = "Internal Server Error"
		}
	} else {
		logger.Debug("request rejected", "error", err)
	}

	return c.Status(status).JSON(Envelope{Success: false, Message: message})
}
