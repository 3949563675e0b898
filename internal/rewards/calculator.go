// Package rewards computes card rewards for settled transactions and
// delivers the notifications that go with them.
package rewards

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/cardwise/internal/common"
	"github.com/Veraticus/cardwise/internal/model"
)

// Reward statuses.
const (
	StatusEarned   = "earned"
	StatusReversed = "reversed"
)

var (
	defaultCashbackRate = decimal.RequireFromString("0.025")
	defaultPointsRate   = decimal.RequireFromString("0.05")
)

// Calculator is a flat-rate reward calculator. Cashback is the amount times
// the cashback rate times the category multiplier, rounded to two places.
// Points use the points rate and are rounded to whole points.
type Calculator struct {
	matcher      *Matcher
	logger       *slog.Logger
	cashbackRate decimal.Decimal
	pointsRate   decimal.Decimal
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithRules replaces the default merchant rules.
func WithRules(rules []Rule) Option {
	return func(c *Calculator) {
		c.matcher = NewMatcher(rules)
	}
}

// WithRates sets the cashback and points rates per unit of currency.
func WithRates(cashback, points decimal.Decimal) Option {
	return func(c *Calculator) {
		c.cashbackRate = cashback
		c.pointsRate = points
	}
}

// NewCalculator creates a calculator with the default rules and rates.
func NewCalculator(logger *slog.Logger, opts ...Option) *Calculator {
	c := &Calculator{
		matcher:      NewMatcher(DefaultRules()),
		logger:       common.LoggerOrDefault(logger),
		cashbackRate: defaultCashbackRate,
		pointsRate:   defaultPointsRate,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calculate returns the rewards earned by txn.
func (c *Calculator) Calculate(ctx context.Context, txn model.SMSTransaction) (model.RewardCalculation, error) {
	if err := ctx.Err(); err != nil {
		return model.RewardCalculation{}, err
	}

	reward, err := c.compute(txn)
	if err != nil {
		return model.RewardCalculation{}, err
	}
	reward.Status = StatusEarned

	c.logger.Info("rewards calculated",
		"transaction_id", txn.ID,
		"category", reward.Category,
		"cashback", reward.Cashback,
		"points", reward.Points)

	return reward, nil
}

// Reverse returns the negation of the rewards txn earned, for refunds.
func (c *Calculator) Reverse(ctx context.Context, txn model.SMSTransaction) (model.RewardCalculation, error) {
	if err := ctx.Err(); err != nil {
		return model.RewardCalculation{}, err
	}

	reward, err := c.compute(txn)
	if err != nil {
		return model.RewardCalculation{}, err
	}
	reward.Cashback = -reward.Cashback
	reward.Points = -reward.Points
	reward.Status = StatusReversed

	c.logger.Info("rewards reversed",
		"transaction_id", txn.ID,
		"category", reward.Category,
		"cashback", reward.Cashback,
		"points", reward.Points)

	return reward, nil
}

func (c *Calculator) compute(txn model.SMSTransaction) (model.RewardCalculation, error) {
	if txn.Amount <= 0 {
		return model.RewardCalculation{}, common.InvalidInput(
			fmt.Sprintf("transaction %s has no rewardable amount", txn.ID))
	}

	rule := c.matcher.Match(txn.Merchant)
	amount := decimal.NewFromFloat(txn.Amount)
	multiplier := decimal.NewFromFloat(rule.Multiplier)

	cashback := amount.Mul(c.cashbackRate).Mul(multiplier).Round(2)
	points := amount.Mul(c.pointsRate).Mul(multiplier).Round(0)

	return model.RewardCalculation{
		TransactionID: txn.ID,
		Category:      rule.Category,
		Cashback:      cashback.InexactFloat64(),
		Points:        points.InexactFloat64(),
		Multiplier:    rule.Multiplier,
	}, nil
}
