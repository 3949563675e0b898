package rewards

import (
	"sort"
	"strings"
)

// Reward categories.
const (
	CategoryFoodDelivery  = "FOOD_DELIVERY"
	CategoryDining        = "DINING"
	CategoryGroceries     = "GROCERIES"
	CategoryShopping      = "SHOPPING"
	CategoryTravel        = "TRAVEL"
	CategoryFuel          = "FUEL"
	CategoryEntertainment = "ENTERTAINMENT"
	CategoryGeneral       = "GENERAL"
)

// Rule assigns a category and multiplier to merchants containing any of its
// keywords. Higher priority rules are checked first.
type Rule struct {
	Category   string
	Keywords   []string
	Multiplier float64
	Priority   int
}

// DefaultRules returns the built-in merchant categories.
func DefaultRules() []Rule {
	return []Rule{
		{
			Category:   CategoryFoodDelivery,
			Keywords:   []string{"swiggy", "zomato", "uber eats", "doordash", "grubhub"},
			Multiplier: 2,
			Priority:   20,
		},
		{
			Category:   CategoryDining,
			Keywords:   []string{"starbucks", "mcdonald", "domino", "kfc", "restaurant", "cafe", "coffee"},
			Multiplier: 1.5,
			Priority:   10,
		},
		{
			Category:   CategoryGroceries,
			Keywords:   []string{"bigbasket", "blinkit", "zepto", "dmart", "whole foods", "grocery", "supermarket"},
			Multiplier: 1.5,
			Priority:   10,
		},
		{
			Category:   CategoryTravel,
			Keywords:   []string{"uber", "ola", "irctc", "makemytrip", "indigo", "airline", "airways", "hotel"},
			Multiplier: 2,
			Priority:   5,
		},
		{
			Category:   CategoryFuel,
			Keywords:   []string{"petrol", "fuel", "hpcl", "bpcl", "indian oil", "shell", "chevron"},
			Multiplier: 1,
			Priority:   5,
		},
		{
			Category:   CategoryEntertainment,
			Keywords:   []string{"netflix", "spotify", "bookmyshow", "prime video", "hotstar"},
			Multiplier: 1.5,
			Priority:   5,
		},
		{
			Category:   CategoryShopping,
			Keywords:   []string{"amazon", "flipkart", "myntra", "ajio", "nykaa", "target", "walmart", "best buy"},
			Multiplier: 1,
			Priority:   1,
		},
	}
}

// Matcher resolves a merchant name to its reward rule.
type Matcher struct {
	rules []Rule
}

// NewMatcher creates a matcher over rules. Keywords are compared
// case-insensitively; equal priorities keep the given order.
func NewMatcher(rules []Rule) *Matcher {
	sorted := make([]Rule, len(rules))
	for i, rule := range rules {
		keywords := make([]string, 0, len(rule.Keywords))
		for _, kw := range rule.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				keywords = append(keywords, kw)
			}
		}
		rule.Keywords = keywords
		sorted[i] = rule
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	return &Matcher{rules: sorted}
}

// Match returns the first rule whose keyword occurs in merchant. Unmatched
// merchants fall into the general category with a multiplier of one.
func (m *Matcher) Match(merchant string) Rule {
	name := strings.ToLower(merchant)
	if strings.TrimSpace(name) != "" {
		for _, rule := range m.rules {
			for _, kw := range rule.Keywords {
				if strings.Contains(name, kw) {
					return rule
				}
			}
		}
	}
	return Rule{Category: CategoryGeneral, Multiplier: 1}
}
