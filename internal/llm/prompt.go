package llm

import (
	"fmt"
	"strings"
)

// defaultStop ends generation before the model starts explaining itself.
var defaultStop = []string{"\n\n", "---", "```", "JSON:", "Example:"}

const promptTemplate = `You are a JSON parser. Extract transaction data from SMS.

SMS: "%s"
Sender: "%s"

Output ONLY valid JSON (no explanations):
{"bank": "Bank name", "amount": 799, "currency": "INR", "merchant": "Merchant name", "cardLast4": "0088", "transactionType": "debit", "confidence": 0.9}`

// buildPrompt renders the extraction prompt for one message.
func buildPrompt(message, sender string) string {
	return fmt.Sprintf(promptTemplate, escapeQuotes(message), escapeQuotes(sender))
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
