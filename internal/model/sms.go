package model

// TransactionType is the direction of money movement described by an SMS.
type TransactionType string

// Transaction types.
const (
	TransactionDebit    TransactionType = "debit"
	TransactionCredit   TransactionType = "credit"
	TransactionTransfer TransactionType = "transfer"
)

// Provenance markers stored in ParsedSMSData.Pattern for results that did
// not come from a registry pattern.
const (
	PatternLLM    = "llm_parsed"
	PatternFailed = "failed"
)

// CardTypeUnknown is used when a pattern does not capture the card network.
const CardTypeUnknown = "UNKNOWN"

// TimestampLayout is the ISO-8601 layout used for every timestamp the parsers emit.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FieldMap maps capture group indexes of a pattern to transaction fields.
// Zero means the pattern does not capture that field.
type FieldMap struct {
	Amount    int `json:"amount"`
	CardType  int `json:"cardType,omitempty"`
	CardLast4 int `json:"cardLast4,omitempty"`
	Merchant  int `json:"merchant,omitempty"`
	DateTime  int `json:"dateTime,omitempty"`
}

// SMSPattern is a bank-specific extraction expression.
type SMSPattern struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Regex      string   `json:"regex"`
	Bank       string   `json:"bank"`
	Country    Country  `json:"country"`
	Example    string   `json:"example"`
	Currency   string   `json:"currency"`
	DateLayout string   `json:"dateLayout,omitempty"`
	Fields     FieldMap `json:"fields"`
	Confidence float64  `json:"confidence"`
	Priority   int      `json:"priority"`
}

// TransactionData is the structured content of a transaction SMS.
type TransactionData struct {
	Balance         *float64        `json:"balance,omitempty"`
	Currency        string          `json:"currency"`
	Merchant        string          `json:"merchant"`
	CardLast4       string          `json:"cardLast4"`
	CardType        string          `json:"cardType"`
	Bank            string          `json:"bank"`
	DateTime        string          `json:"dateTime"`
	TransactionType TransactionType `json:"transactionType"`
	TransactionID   string          `json:"transactionId,omitempty"`
	Amount          float64         `json:"amount"`
}

// ParsedSMSData is the canonical output of both parsing paths.
type ParsedSMSData struct {
	Bank        BankInfo        `json:"bank"`
	Transaction TransactionData `json:"transaction"`
	RawMessage  string          `json:"rawMessage"`
	Sender      string          `json:"sender"`
	ParsedAt    string          `json:"parsedAt"`
	Pattern     string          `json:"pattern"`
	Confidence  float64         `json:"confidence"`
}

// LLMParsedSMS is the native result of the LLM parser before conversion.
type LLMParsedSMS struct {
	Bank            string          `json:"bank"`
	Currency        string          `json:"currency"`
	Merchant        string          `json:"merchant"`
	CardLast4       string          `json:"cardLast4"`
	TransactionType TransactionType `json:"transactionType"`
	DateTime        string          `json:"dateTime"`
	RawMessage      string          `json:"rawMessage"`
	Model           string          `json:"model"`
	Amount          float64         `json:"amount"`
	Confidence      float64         `json:"confidence"`
	ProcessingTime  int64           `json:"processingTime"`
}

// SMSInput is one message of a batch request.
type SMSInput struct {
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

// ValidationResult reports whether an SMS can be handled by the regex parser.
type ValidationResult struct {
	DetectedBank        *BankInfo        `json:"detectedBank,omitempty"`
	DetectedTransaction *TransactionData `json:"detectedTransaction,omitempty"`
	Errors              []string         `json:"errors"`
	Warnings            []string         `json:"warnings"`
	IsValid             bool             `json:"isValid"`
}
