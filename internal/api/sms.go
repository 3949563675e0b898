package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Veraticus/cardwise/internal/common"
	"github.com/Veraticus/cardwise/internal/model"
)

type smsRequest struct {
	Message string `json:"message"`
	Sender  string `json:"sender"`
	UserID  string `json:"userId,omitempty"`
}

func (r smsRequest) validate() error {
	if strings.TrimSpace(r.Message) == "" || strings.TrimSpace(r.Sender) == "" {
		return common.InvalidInput("Message and sender are required")
	}
	return nil
}

type testPatternRequest struct {
	Message   string `json:"message"`
	PatternID string `json:"patternId"`
}

func (s *Server) parseSMS(c *fiber.Ctx) error {
	var req smsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}

	parsed, err := s.deps.Regex.Parse(req.Message, req.Sender)
	if err != nil {
		return err
	}
	return respond(c, "SMS parsed successfully", parsed)
}

func (s *Server) validateSMS(c *fiber.Ctx) error {
	var req smsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return respond(c, "SMS validation completed", s.deps.Regex.Validate(req.Message, req.Sender))
}

func (s *Server) supportedBanks(c *fiber.Ctx) error {
	banks := s.deps.Regex.SupportedBanks()
	countries := make([]model.Country, 0)
	seen := make(map[model.Country]bool)
	for _, b := range banks {
		if !seen[b.Country] {
			seen[b.Country] = true
			countries = append(countries, b.Country)
		}
	}

	return respond(c, "Supported banks retrieved successfully", fiber.Map{
		"banks":     banks,
		"total":     len(banks),
		"countries": countries,
	})
}

func (s *Server) supportedPatterns(c *fiber.Ctx) error {
	patterns := s.deps.Regex.SupportedPatterns()
	banks := make([]string, 0)
	countries := make([]model.Country, 0)
	seenBank := make(map[string]bool)
	seenCountry := make(map[model.Country]bool)
	for _, p := range patterns {
		if !seenBank[p.Bank] {
			seenBank[p.Bank] = true
			banks = append(banks, p.Bank)
		}
		if !seenCountry[p.Country] {
			seenCountry[p.Country] = true
			countries = append(countries, p.Country)
		}
	}

	return respond(c, "Supported patterns retrieved successfully", fiber.Map{
		"patterns":  patterns,
		"total":     len(patterns),
		"banks":     banks,
		"countries": countries,
	})
}

func (s *Server) parsingStats(c *fiber.Ctx) error {
	return respond(c, "Parsing statistics retrieved successfully", s.deps.Regex.Stats())
}

func (s *Server) testPattern(c *fiber.Ctx) error {
	var req testPatternRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result, err := s.deps.Regex.TestPattern(req.Message, req.PatternID)
	if err != nil {
		return err
	}
	return respond(c, "Pattern test completed", result)
}
