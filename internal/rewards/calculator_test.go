package rewards

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/cardwise/internal/common"
	"github.com/Veraticus/cardwise/internal/model"
)

func TestMatcher_Match(t *testing.T) {
	m := NewMatcher(DefaultRules())

	tests := []struct {
		merchant   string
		category   string
		multiplier float64
	}{
		{"Payu*Swiggy Food", CategoryFoodDelivery, 2},
		{"UBER EATS", CategoryFoodDelivery, 2},
		{"Uber Trip", CategoryTravel, 2},
		{"STARBUCKS", CategoryDining, 1.5},
		{"FLIPKART", CategoryShopping, 1},
		{"BigBasket", CategoryGroceries, 1.5},
		{"NETFLIX.COM", CategoryEntertainment, 1.5},
		{"HPCL Petrol Pump", CategoryFuel, 1},
		{"Corner Store", CategoryGeneral, 1},
		{"", CategoryGeneral, 1},
	}

	for _, tt := range tests {
		t.Run(tt.merchant, func(t *testing.T) {
			rule := m.Match(tt.merchant)
			assert.Equal(t, tt.category, rule.Category)
			assert.InDelta(t, tt.multiplier, rule.Multiplier, 1e-9)
		})
	}
}

func TestMatcher_PriorityOrder(t *testing.T) {
	m := NewMatcher([]Rule{
		{Category: "LOW", Keywords: []string{"mart"}, Multiplier: 1, Priority: 1},
		{Category: "HIGH", Keywords: []string{"  MART "}, Multiplier: 3, Priority: 9},
		{Category: "EMPTY", Keywords: []string{""}, Multiplier: 5, Priority: 50},
	})

	assert.Equal(t, "HIGH", m.Match("Walmart").Category)
	assert.Equal(t, CategoryGeneral, m.Match("Target").Category)
}

func TestCalculator_Calculate(t *testing.T) {
	calc := NewCalculator(nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		merchant string
		category string
		amount   float64
		cashback float64
		points   float64
	}{
		{name: "food delivery", merchant: "Payu*Swiggy Food", amount: 799, category: CategoryFoodDelivery, cashback: 39.95, points: 80},
		{name: "shopping", merchant: "FLIPKART", amount: 2500, category: CategoryShopping, cashback: 62.5, points: 125},
		{name: "dining rounds", merchant: "STARBUCKS", amount: 45.67, category: CategoryDining, cashback: 1.71, points: 3},
		{name: "general", merchant: "Merchant 0", amount: 100, category: CategoryGeneral, cashback: 2.5, points: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := model.SMSTransaction{ID: "txn-1", Merchant: tt.merchant, Amount: tt.amount}

			reward, err := calc.Calculate(ctx, txn)
			require.NoError(t, err)
			assert.Equal(t, "txn-1", reward.TransactionID)
			assert.Equal(t, tt.category, reward.Category)
			assert.Equal(t, StatusEarned, reward.Status)
			assert.InDelta(t, tt.cashback, reward.Cashback, 1e-9)
			assert.InDelta(t, tt.points, reward.Points, 1e-9)
		})
	}
}

func TestCalculator_Reverse(t *testing.T) {
	calc := NewCalculator(nil)
	txn := model.SMSTransaction{ID: "txn-2", Merchant: "Zomato", Amount: 799}

	earned, err := calc.Calculate(context.Background(), txn)
	require.NoError(t, err)

	reversed, err := calc.Reverse(context.Background(), txn)
	require.NoError(t, err)

	assert.Equal(t, StatusReversed, reversed.Status)
	assert.Equal(t, earned.Category, reversed.Category)
	assert.InDelta(t, -earned.Cashback, reversed.Cashback, 1e-9)
	assert.InDelta(t, -earned.Points, reversed.Points, 1e-9)
	assert.InDelta(t, earned.Multiplier, reversed.Multiplier, 1e-9)
}

func TestCalculator_Options(t *testing.T) {
	calc := NewCalculator(nil,
		WithRules([]Rule{{Category: "COFFEE", Keywords: []string{"starbucks"}, Multiplier: 4}}),
		WithRates(decimal.RequireFromString("0.01"), decimal.RequireFromString("1")),
	)

	reward, err := calc.Calculate(context.Background(), model.SMSTransaction{Merchant: "Starbucks", Amount: 50})
	require.NoError(t, err)
	assert.Equal(t, "COFFEE", reward.Category)
	assert.InDelta(t, 2.0, reward.Cashback, 1e-9)
	assert.InDelta(t, 200.0, reward.Points, 1e-9)
}

func TestCalculator_Errors(t *testing.T) {
	calc := NewCalculator(nil)

	_, err := calc.Calculate(context.Background(), model.SMSTransaction{ID: "zero"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
	assert.Equal(t, common.KindInvalidInput, common.KindOf(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = calc.Reverse(ctx, model.SMSTransaction{Amount: 10})
	assert.ErrorIs(t, err, context.Canceled)
}
