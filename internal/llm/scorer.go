package llm

import (
	"github.com/Veraticus/cardwise/internal/model"
	"github.com/Veraticus/cardwise/internal/smsparse"
)

// ScoreInput is the normalized evidence a scorer grades.
type ScoreInput struct {
	Bank               string
	Merchant           string
	CardLast4          string
	Amount             float64
	HasTransactionType bool
	HasCurrency        bool
}

// ConfidenceScorer assigns a confidence in [0,1] to an LLM extraction.
type ConfidenceScorer interface {
	Score(in ScoreInput) float64
}

// AdditiveScorer starts from Base and adds FieldWeight for each core field
// that was resolved and MetaWeight for each descriptive field present.
type AdditiveScorer struct {
	Base        float64
	FieldWeight float64
	MetaWeight  float64
}

// DefaultScorer returns the scorer used unless another is configured.
func DefaultScorer() AdditiveScorer {
	return AdditiveScorer{Base: 0.2, FieldWeight: 0.2, MetaWeight: 0.1}
}

// Score implements ConfidenceScorer.
func (s AdditiveScorer) Score(in ScoreInput) float64 {
	score := s.Base

	if in.Bank != "" && in.Bank != model.UnknownBankName {
		score += s.FieldWeight
	}
	if in.Amount > 0 {
		score += s.FieldWeight
	}
	if in.Merchant != "" && in.Merchant != smsparse.UnknownMerchant {
		score += s.FieldWeight
	}
	if len(in.CardLast4) == 4 {
		score += s.FieldWeight
	}
	if in.HasTransactionType {
		score += s.MetaWeight
	}
	if in.HasCurrency {
		score += s.MetaWeight
	}

	switch {
	case score > 1:
		return 1
	case score < 0:
		return 0
	default:
		return score
	}
}
