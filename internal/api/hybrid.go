package api

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Veraticus/cardwise/internal/common"
	"github.com/Veraticus/cardwise/internal/hybrid"
	"github.com/Veraticus/cardwise/internal/model"
)

// MaxBatchSize caps the messages accepted by one batch request.
const MaxBatchSize = 100

type thresholdRequest struct {
	Threshold *float64 `json:"threshold"`
}

type batchRequest struct {
	SMSList []model.SMSInput `json:"smsList"`
}

func (s *Server) hybridParse(c *fiber.Ctx) error {
	var req smsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}

	parsed, err := s.deps.Hybrid.ParseSMS(c.UserContext(), req.Message, req.Sender)
	if err != nil {
		return err
	}
	return respond(c, "SMS parsed successfully with hybrid parser", parsed)
}

func (s *Server) hybridTest(c *fiber.Ctx) error {
	var req smsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}

	result, err := s.deps.Hybrid.TestParse(c.UserContext(), req.Message, req.Sender)
	if err != nil && common.KindOf(err) == common.KindInvalidInput {
		return err
	}
	return respond(c, "SMS parsing test completed", result)
}

func (s *Server) hybridStats(c *fiber.Ctx) error {
	return respond(c, "Parser statistics retrieved successfully", s.deps.Hybrid.Stats())
}

func (s *Server) hybridDetailedStats(c *fiber.Ctx) error {
	return respond(c, "Detailed parser statistics retrieved successfully", s.deps.Hybrid.DetailedStats(c.UserContext()))
}

func (s *Server) hybridConfig(c *fiber.Ctx) error {
	return respond(c, "Parser configuration retrieved successfully", s.deps.Hybrid.Config())
}

func (s *Server) updateHybridConfig(c *fiber.Ctx) error {
	var update hybrid.ConfigUpdate
	if err := bind(c, &update); err != nil {
		return err
	}
	if t := update.LLMConfidenceThreshold; t != nil && (*t < 0 || *t > 1) {
		return common.InvalidInput("Confidence threshold must be a number between 0 and 1")
	}

	return respond(c, "Parser configuration updated successfully", s.deps.Hybrid.UpdateConfig(update))
}

func (s *Server) enableLLM(c *fiber.Ctx) error {
	s.deps.Hybrid.EnableLLM()
	return respond(c, "LLM parsing enabled successfully", s.deps.Hybrid.Config())
}

func (s *Server) disableLLM(c *fiber.Ctx) error {
	s.deps.Hybrid.DisableLLM()
	return respond(c, "LLM parsing disabled successfully", s.deps.Hybrid.Config())
}

func (s *Server) setConfidenceThreshold(c *fiber.Ctx) error {
	var req thresholdRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Threshold == nil || *req.Threshold < 0 || *req.Threshold > 1 {
		return common.InvalidInput("Confidence threshold must be a number between 0 and 1")
	}

	threshold := s.deps.Hybrid.SetConfidenceThreshold(*req.Threshold)
	return respond(c, "Confidence threshold updated successfully", fiber.Map{
		"threshold": threshold,
		"config":    s.deps.Hybrid.Config(),
	})
}

func (s *Server) clearCache(c *fiber.Ctx) error {
	s.deps.Hybrid.ClearCache()
	return respond(c, "Parser cache cleared successfully", nil)
}

func (s *Server) testConnection(c *fiber.Ctx) error {
	connected := s.deps.Hybrid.TestConnection(c.UserContext())
	return respond(c, "LLM connection test completed", fiber.Map{
		"connected": connected,
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) hybridBatch(c *fiber.Ctx) error {
	var req batchRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if len(req.SMSList) == 0 {
		return common.InvalidInput("Valid SMS list array is required")
	}
	if len(req.SMSList) > MaxBatchSize {
		return common.InvalidInput(fmt.Sprintf("At most %d messages can be parsed per batch", MaxBatchSize))
	}

	results := s.deps.Hybrid.ParseMultipleSMS(c.UserContext(), req.SMSList)
	return respond(c, "Multiple SMS parsed successfully", fiber.Map{
		"total":   len(req.SMSList),
		"parsed":  len(results),
		"results": results,
	})
}
