package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Veraticus/cardwise/internal/common"
	"github.com/Veraticus/cardwise/internal/model"
	"github.com/Veraticus/cardwise/internal/payment"
	"github.com/Veraticus/cardwise/internal/service"
)

// Listing limits.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

type statusUpdateRequest struct {
	Status model.PaymentStatus `json:"status"`
	Notes  string              `json:"notes,omitempty"`
}

func (s *Server) listTransactions(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", DefaultPageSize)
	offset := c.QueryInt("offset", 0)
	if limit < 1 || limit > MaxPageSize || offset < 0 {
		return common.InvalidInput("limit must be between 1 and 500 and offset must not be negative")
	}

	filter := service.TransactionFilter{
		UserID: strings.TrimSpace(c.Query("userId")),
		Status: model.PaymentStatus(strings.TrimSpace(c.Query("status"))),
		Limit:  limit,
		Offset: offset,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return common.InvalidInput("Unknown transaction status")
	}

	txns, err := s.deps.Store.ListSMSTransactions(c.UserContext(), filter)
	if err != nil {
		return err
	}
	if txns == nil {
		txns = []model.SMSTransaction{}
	}

	return respond(c, "Transactions retrieved successfully", fiber.Map{
		"transactions": txns,
		"total":        len(txns),
		"limit":        limit,
		"offset":       offset,
	})
}

func (s *Server) getTransaction(c *fiber.Ctx) error {
	txn, err := s.deps.Store.GetSMSTransaction(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, "Transaction retrieved successfully", txn)
}

func (s *Server) transactionStatus(c *fiber.Ctx) error {
	status, err := s.deps.Payments.GetTransactionStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, "Transaction status retrieved successfully", status)
}

func (s *Server) updateTransactionStatus(c *fiber.Ctx) error {
	var req statusUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	id := c.Params("id")
	if err := s.deps.Payments.UpdateStatus(ctx, id, req.Status, payment.UpdatedByAPI, req.Notes); err != nil {
		return err
	}

	status, err := s.deps.Payments.GetTransactionStatus(ctx, id)
	if err != nil {
		return err
	}
	return respond(c, "Transaction status updated successfully", status)
}

func (s *Server) triggerRewards(c *fiber.Ctx) error {
	reward, err := s.deps.Payments.TriggerRewards(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, "Reward calculations completed", reward)
}

func (s *Server) paymentStats(c *fiber.Ctx) error {
	return respond(c, "Processing statistics retrieved successfully", s.deps.Payments.Stats())
}
