package registry

import "github.com/Veraticus/cardwise/internal/model"

const amountGroup = `(\d+(?:,\d+)*(?:\.\d+)?)`

const (
	inrPrefix   = `(?:Rs\.?|INR|₹)\s?`
	slashDate   = `(\d{1,2}/\d{1,2}/\d{4})`
	indianDate  = "2/1/2006"
	usDate      = "1/2/2006"
	hdfcDate    = "2006-01-02:15:04:05"
	defaultConf = 0.90
)

// DefaultBanks is the built-in bank catalogue, in detection order.
func DefaultBanks() []model.BankInfo {
	return []model.BankInfo{
		{
			Name:       "HDFC Bank",
			Code:       "HDFC",
			Country:    model.CountryIN,
			SenderIDs:  []string{"HDFCBK", "HDFC", "HDFCBANK"},
			Aliases:    []string{"HDFC Bank Limited"},
			Confidence: 0.95,
		},
		{
			Name:       "State Bank of India",
			Code:       "SBI",
			Country:    model.CountryIN,
			SenderIDs:  []string{"SBIINB", "SBI", "SBIN"},
			Aliases:    []string{"State Bank"},
			Confidence: 0.95,
		},
		{
			Name:       "ICICI Bank",
			Code:       "ICICI",
			Country:    model.CountryIN,
			SenderIDs:  []string{"ICICIB", "ICICI", "ICICIBANK"},
			Confidence: 0.95,
		},
		{
			Name:       "Axis Bank",
			Code:       "AXIS",
			Country:    model.CountryIN,
			SenderIDs:  []string{"AXISBK", "AXIS", "AXISBANK"},
			Confidence: 0.95,
		},
		{
			Name:       "Kotak Mahindra Bank",
			Code:       "KOTAK",
			Country:    model.CountryIN,
			SenderIDs:  []string{"KOTAK", "KOTAKBANK"},
			Aliases:    []string{"Kotak Bank", "Kotak Mahindra"},
			Confidence: 0.90,
		},
		{
			Name:       "Chase Bank",
			Code:       "CHASE",
			Country:    model.CountryUS,
			SenderIDs:  []string{"CHASE", "JPMORGAN"},
			Aliases:    []string{"JPMorgan Chase", "JP Morgan"},
			Confidence: 0.95,
		},
		{
			Name:       "Bank of America",
			Code:       "BOA",
			Country:    model.CountryUS,
			SenderIDs:  []string{"BOA", "BANKOFAMERICA"},
			Aliases:    []string{"BofA"},
			Confidence: 0.95,
		},
		{
			Name:       "Wells Fargo",
			Code:       "WELLS",
			Country:    model.CountryUS,
			SenderIDs:  []string{"WELLS", "WELLSFARGO"},
			Aliases:    []string{"WF"},
			Confidence: 0.95,
		},
	}
}

// DefaultPatterns is the built-in pattern catalogue. Capture groups are
// documented per pattern through its FieldMap.
func DefaultPatterns() []model.SMSPattern {
	return []model.SMSPattern{
		{
			// 1 amount, 2 card label, 3 last4, 4 merchant, 5 date.
			ID:         "hdfc_spent_format",
			Name:       "HDFC Bank Spent Format",
			Regex:      `(?i)Spent\s+` + inrPrefix + amountGroup + `\s+On\s+([A-Za-z ]+?)\s+Card\s+(\d{4})\s+At\s+(.+?)\s+On\s+(\d{4}-\d{2}-\d{2}:\d{2}:\d{2}:\d{2})`,
			Bank:       "HDFC",
			Country:    model.CountryIN,
			Example:    "Spent Rs.799 On HDFC Bank Card 0088 At Payu*Swiggy Food On 2025-07-30:19:56:11",
			Currency:   "INR",
			DateLayout: hdfcDate,
			Fields:     model.FieldMap{Amount: 1, CardLast4: 3, Merchant: 4, DateTime: 5},
			Confidence: 0.95,
			Priority:   20,
		},
		{
			// 1 amount, 2 card type, 3 last4, 4 merchant, 5 date.
			ID:         "hdfc_standard_format",
			Name:       "HDFC Bank Standard Format",
			Regex:      `(?i)HDFC Bank:\s*` + inrPrefix + amountGroup + `\s+spent on\s+([A-Z]+)\s+card ending\s+(\d{4})\s+at\s+(.+?)\s+on\s+` + slashDate,
			Bank:       "HDFC",
			Country:    model.CountryIN,
			Example:    "HDFC Bank: Rs.1,250.00 spent on VISA card ending 1234 at AMAZON on 15/12/2024",
			Currency:   "INR",
			DateLayout: indianDate,
			Fields:     model.FieldMap{Amount: 1, CardType: 2, CardLast4: 3, Merchant: 4, DateTime: 5},
			Confidence: defaultConf,
			Priority:   10,
		},
		{
			// 1 amount, 2 card type, 3 last4, 4 merchant, 5 date.
			ID:         "sbi_standard_format",
			Name:       "SBI Standard Format",
			Regex:      `(?i)SBI:\s*` + inrPrefix + amountGroup + `\s+spent on\s+([A-Z]+)\s+ending\s+(\d{4})\s+at\s+(.+?)\s+on\s+` + slashDate,
			Bank:       "SBI",
			Country:    model.CountryIN,
			Example:    "SBI: Rs.2,500 spent on MASTERCARD ending 5678 at FLIPKART on 16/12/2024",
			Currency:   "INR",
			DateLayout: indianDate,
			Fields:     model.FieldMap{Amount: 1, CardType: 2, CardLast4: 3, Merchant: 4, DateTime: 5},
			Confidence: defaultConf,
			Priority:   10,
		},
		{
			// 1 amount, 2 card type, 3 last4, 4 merchant, 5 date.
			ID:         "icici_standard_format",
			Name:       "ICICI Bank Standard Format",
			Regex:      `(?i)ICICI Bank:\s*` + inrPrefix + amountGroup + `\s+spent on\s+([A-Z]+)\s+card ending\s+(\d{4})\s+at\s+(.+?)\s+on\s+` + slashDate,
			Bank:       "ICICI",
			Country:    model.CountryIN,
			Example:    "ICICI Bank: Rs.899 spent on VISA card ending 9012 at ZOMATO on 17/12/2024",
			Currency:   "INR",
			DateLayout: indianDate,
			Fields:     model.FieldMap{Amount: 1, CardType: 2, CardLast4: 3, Merchant: 4, DateTime: 5},
			Confidence: defaultConf,
			Priority:   10,
		},
		{
			// 1 amount, 2 card type, 3 last4, 4 merchant, 5 date.
			ID:         "axis_standard_format",
			Name:       "Axis Bank Standard Format",
			Regex:      `(?i)Axis Bank:\s*` + inrPrefix + amountGroup + `\s+spent on\s+([A-Z]+)\s+card ending\s+(\d{4})\s+at\s+(.+?)\s+on\s+` + slashDate,
			Bank:       "AXIS",
			Country:    model.CountryIN,
			Example:    "Axis Bank: INR 3,200.50 spent on RUPAY card ending 4321 at MYNTRA on 18/12/2024",
			Currency:   "INR",
			DateLayout: indianDate,
			Fields:     model.FieldMap{Amount: 1, CardType: 2, CardLast4: 3, Merchant: 4, DateTime: 5},
			Confidence: defaultConf,
			Priority:   10,
		},
		{
			// 1 amount, 2 last4, 3 merchant, 4 date.
			ID:         "kotak_debit_format",
			Name:       "Kotak Bank Debit Format",
			Regex:      `(?i)` + inrPrefix + amountGroup + `\s+debited from Kotak Bank Card\s+[X*]*(\d{4})\s+at\s+(.+?)\s+on\s+` + slashDate,
			Bank:       "KOTAK",
			Country:    model.CountryIN,
			Example:    "Rs.1,499 debited from Kotak Bank Card XX7788 at BIGBASKET on 19/12/2024",
			Currency:   "INR",
			DateLayout: indianDate,
			Fields:     model.FieldMap{Amount: 1, CardLast4: 2, Merchant: 3, DateTime: 4},
			Confidence: 0.85,
			Priority:   10,
		},
		{
			// 1 amount, 2 card type, 3 last4, 4 merchant, 5 date.
			ID:         "chase_standard_format",
			Name:       "Chase Standard Format",
			Regex:      `(?i)Chase:\s*\$` + amountGroup + `\s+spent on\s+([A-Z]+)\s+card ending\s+(\d{4})\s+at\s+(.+?)\s+on\s+` + slashDate,
			Bank:       "CHASE",
			Country:    model.CountryUS,
			Example:    "Chase: $45.67 spent on VISA card ending 3456 at STARBUCKS on 12/18/2024",
			Currency:   "USD",
			DateLayout: usDate,
			Fields:     model.FieldMap{Amount: 1, CardType: 2, CardLast4: 3, Merchant: 4, DateTime: 5},
			Confidence: defaultConf,
			Priority:   10,
		},
		{
			// 1 amount, 2 last4, 3 merchant, 4 date.
			ID:         "boa_purchase_format",
			Name:       "Bank of America Purchase Format",
			Regex:      `(?i)Bank of America:\s*\$` + amountGroup + `\s+(?:purchase|charged)\s+on card ending in\s+(\d{4})\s+at\s+(.+?)\s+on\s+` + slashDate,
			Bank:       "BOA",
			Country:    model.CountryUS,
			Example:    "Bank of America: $120.00 purchase on card ending in 2468 at TARGET on 12/19/2024",
			Currency:   "USD",
			DateLayout: usDate,
			Fields:     model.FieldMap{Amount: 1, CardLast4: 2, Merchant: 3, DateTime: 4},
			Confidence: 0.85,
			Priority:   10,
		},
		{
			// 1 amount, 2 last4, 3 merchant, 4 date.
			ID:         "wells_charge_format",
			Name:       "Wells Fargo Charge Format",
			Regex:      `(?i)Wells Fargo:\s*\$` + amountGroup + `\s+charged to card\s+(\d{4})\s+at\s+(.+?)\s+on\s+` + slashDate,
			Bank:       "WELLS",
			Country:    model.CountryUS,
			Example:    "Wells Fargo: $64.20 charged to card 1357 at WHOLE FOODS on 12/20/2024",
			Currency:   "USD",
			DateLayout: usDate,
			Fields:     model.FieldMap{Amount: 1, CardLast4: 2, Merchant: 3, DateTime: 4},
			Confidence: 0.85,
			Priority:   10,
		},
	}
}
