package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Veraticus/cardwise/internal/model"
	"github.com/Veraticus/cardwise/internal/payment"
)

type smsWebhookResponse struct {
	Transaction *model.SMSTransaction `json:"transaction"`
	Parsed      model.ParsedSMSData   `json:"parsed"`
	Created     bool                  `json:"created"`
}

// smsWebhook parses an incoming SMS and stores it. A redelivered SMS returns
// the stored record with 200 instead of 201.
func (s *Server) smsWebhook(c *fiber.Ctx) error {
	var req smsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}

	ctx := c.UserContext()
	parsed, err := s.deps.Hybrid.ParseSMS(ctx, req.Message, req.Sender)
	if err != nil {
		return err
	}

	txn := model.NewSMSTransaction(parsed, req.UserID)
	created, err := s.deps.Store.SaveSMSTransaction(ctx, txn)
	if err != nil {
		return err
	}

	resp := smsWebhookResponse{Transaction: txn, Parsed: parsed, Created: created}
	if !created {
		s.logger.Info("duplicate SMS received", "transaction_id", txn.ID, "sender", req.Sender)
		return respondStatus(c, fiber.StatusOK, "SMS already recorded", resp)
	}

	s.logger.Info("SMS transaction recorded",
		"transaction_id", txn.ID,
		"bank", txn.BankCode,
		"amount", txn.Amount,
		"pattern", txn.Pattern)
	return respondStatus(c, fiber.StatusCreated, "SMS transaction recorded", resp)
}

func (s *Server) paymentWebhook(c *fiber.Ctx) error {
	var data model.PaymentWebhookData
	if err := bind(c, &data); err != nil {
		return err
	}

	result := s.deps.Payments.ProcessWebhook(c.UserContext(), data)
	switch {
	case result.Status == payment.ResultStatusError:
		return respondStatus(c, fiber.StatusBadRequest, "Payment webhook could not be processed", result)
	case !result.Success:
		return respond(c, "Payment webhook processed with errors", result)
	}
	return respond(c, "Payment webhook processed successfully", result)
}
