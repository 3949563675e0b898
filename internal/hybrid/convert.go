package hybrid

import (
	"github.com/Veraticus/cardwise/internal/model"
)

// convert maps an LLM result onto the shape produced by the regex path. The
// bank is resolved through the registry by name, then by sender id.
func (p *Parser) convert(result model.LLMParsedSMS, sender string) model.ParsedSMSData {
	bank, ok := p.registry.LookupName(result.Bank)
	if !ok {
		bank, ok = p.registry.BankBySender(sender)
	}
	if !ok {
		bank = model.UnknownBank()
		bank.Country = model.CountryForCurrency(result.Currency)
		if result.Bank != "" {
			bank.Name = result.Bank
		}
	}

	return model.ParsedSMSData{
		Bank: bank,
		Transaction: model.TransactionData{
			Amount:          result.Amount,
			Currency:        result.Currency,
			Merchant:        result.Merchant,
			CardLast4:       result.CardLast4,
			CardType:        model.CardTypeUnknown,
			Bank:            bank.Name,
			DateTime:        result.DateTime,
			TransactionType: result.TransactionType,
		},
		RawMessage: result.RawMessage,
		Sender:     sender,
		ParsedAt:   p.now().UTC().Format(model.TimestampLayout),
		Confidence: result.Confidence,
		Pattern:    model.PatternLLM,
	}
}

// failedResult is the zero-confidence placeholder used in batch output.
func (p *Parser) failedResult(in model.SMSInput) model.ParsedSMSData {
	now := p.now().UTC().Format(model.TimestampLayout)
	bank := model.UnknownBank()

	return model.ParsedSMSData{
		Bank: bank,
		Transaction: model.TransactionData{
			Currency:        "INR",
			Merchant:        "Unknown",
			CardType:        model.CardTypeUnknown,
			Bank:            bank.Name,
			DateTime:        now,
			TransactionType: model.TransactionDebit,
		},
		RawMessage: in.Message,
		Sender:     in.Sender,
		ParsedAt:   now,
		Pattern:    model.PatternFailed,
	}
}
