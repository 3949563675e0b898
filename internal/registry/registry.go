// Package registry holds the bank and SMS pattern catalogue shared by the
// regex parser and the LLM result converter.
package registry

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/Veraticus/cardwise/internal/model"
)

// Validation errors returned by New.
var (
	ErrDuplicateBank      = errors.New("duplicate bank code")
	ErrDuplicatePattern   = errors.New("duplicate pattern id")
	ErrUnknownPatternBank = errors.New("pattern references unknown bank")
	ErrAmbiguousPriority  = errors.New("patterns of the same bank share a priority")
	ErrInvalidConfidence  = errors.New("confidence must be within [0,1]")
	ErrInvalidFieldMap    = errors.New("field map references a missing capture group")
)

// Registry is an immutable catalogue of banks and their SMS patterns.
// It is safe for concurrent use.
type Registry struct {
	byCode   map[string]model.BankInfo
	byName   map[string]string
	compiled map[string]*regexp.Regexp
	byBank   map[string][]model.SMSPattern
	banks    []model.BankInfo
	patterns []model.SMSPattern
}

// Default returns the registry built from DefaultBanks and DefaultPatterns.
var Default = sync.OnceValue(func() *Registry {
	r, err := New(DefaultBanks(), DefaultPatterns())
	if err != nil {
		panic(fmt.Sprintf("registry: invalid built-in catalogue: %v", err))
	}
	return r
})

// New validates and indexes the given catalogue. Bank order is the detection
// order; patterns are tried per bank by descending Priority, with catalogue
// order as the tie-break.
func New(banks []model.BankInfo, patterns []model.SMSPattern) (*Registry, error) {
	r := &Registry{
		byCode:   make(map[string]model.BankInfo, len(banks)),
		byName:   make(map[string]string),
		compiled: make(map[string]*regexp.Regexp, len(patterns)),
		byBank:   make(map[string][]model.SMSPattern),
		banks:    make([]model.BankInfo, 0, len(banks)),
		patterns: make([]model.SMSPattern, 0, len(patterns)),
	}

	for _, bank := range banks {
		code := strings.ToUpper(bank.Code)
		if _, exists := r.byCode[code]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBank, bank.Code)
		}
		if bank.Confidence < 0 || bank.Confidence > 1 {
			return nil, fmt.Errorf("bank %s: %w", bank.Code, ErrInvalidConfidence)
		}
		r.byCode[code] = bank
		r.banks = append(r.banks, bank)

		names := append([]string{bank.Name, bank.Code}, bank.Aliases...)
		for _, name := range names {
			key := nameKey(name)
			if _, taken := r.byName[key]; !taken {
				r.byName[key] = code
			}
		}
	}

	priorities := make(map[string]map[int]string)
	for _, p := range patterns {
		if _, exists := r.compiled[p.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePattern, p.ID)
		}
		bankCode := strings.ToUpper(p.Bank)
		if _, ok := r.byCode[bankCode]; !ok {
			return nil, fmt.Errorf("%w: %s -> %s", ErrUnknownPatternBank, p.ID, p.Bank)
		}
		if p.Confidence < 0 || p.Confidence > 1 {
			return nil, fmt.Errorf("pattern %s: %w", p.ID, ErrInvalidConfidence)
		}

		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, fmt.Errorf("pattern %s: %w", p.ID, err)
		}
		if err := checkFieldMap(p.Fields, re.NumSubexp()); err != nil {
			return nil, fmt.Errorf("pattern %s: %w", p.ID, err)
		}

		if priorities[bankCode] == nil {
			priorities[bankCode] = make(map[int]string)
		}
		if other, clash := priorities[bankCode][p.Priority]; clash {
			return nil, fmt.Errorf("%w: %s and %s", ErrAmbiguousPriority, other, p.ID)
		}
		priorities[bankCode][p.Priority] = p.ID

		r.compiled[p.ID] = re
		r.patterns = append(r.patterns, p)
		r.byBank[bankCode] = append(r.byBank[bankCode], p)
	}

	for code := range r.byBank {
		sortByPriority(r.byBank[code])
	}

	return r, nil
}

func checkFieldMap(f model.FieldMap, groups int) error {
	if f.Amount <= 0 {
		return fmt.Errorf("%w: amount group is required", ErrInvalidFieldMap)
	}
	for _, idx := range []int{f.Amount, f.CardType, f.CardLast4, f.Merchant, f.DateTime} {
		if idx < 0 || idx > groups {
			return fmt.Errorf("%w: group %d of %d", ErrInvalidFieldMap, idx, groups)
		}
	}
	return nil
}

func sortByPriority(patterns []model.SMSPattern) {
	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Priority > patterns[j].Priority
	})
}

func nameKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Banks returns the catalogue in detection order.
func (r *Registry) Banks() []model.BankInfo {
	out := make([]model.BankInfo, len(r.banks))
	copy(out, r.banks)
	return out
}

// Patterns returns every pattern in catalogue order.
func (r *Registry) Patterns() []model.SMSPattern {
	out := make([]model.SMSPattern, len(r.patterns))
	copy(out, r.patterns)
	return out
}

// Countries returns the distinct countries served by the catalogue.
func (r *Registry) Countries() []model.Country {
	seen := make(map[model.Country]bool)
	var out []model.Country
	for _, b := range r.banks {
		if !seen[b.Country] {
			seen[b.Country] = true
			out = append(out, b.Country)
		}
	}
	return out
}

// BankByCode looks a bank up by its code, case-insensitively.
func (r *Registry) BankByCode(code string) (model.BankInfo, bool) {
	b, ok := r.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return b, ok
}

// BankBySender returns the first bank with a sender id contained in sender.
func (r *Registry) BankBySender(sender string) (model.BankInfo, bool) {
	upper := strings.ToUpper(strings.TrimSpace(sender))
	if upper == "" {
		return model.BankInfo{}, false
	}
	for _, bank := range r.banks {
		for _, id := range bank.SenderIDs {
			if strings.Contains(upper, strings.ToUpper(id)) {
				return bank, true
			}
		}
	}
	return model.BankInfo{}, false
}

// BankInMessage returns the first bank whose name or code appears in message.
func (r *Registry) BankInMessage(message string) (model.BankInfo, bool) {
	upper := strings.ToUpper(message)
	for _, bank := range r.banks {
		if strings.Contains(upper, strings.ToUpper(bank.Name)) ||
			strings.Contains(upper, strings.ToUpper(bank.Code)) {
			return bank, true
		}
	}
	return model.BankInfo{}, false
}

// LookupName resolves a display name, code or alias to a bank.
func (r *Registry) LookupName(name string) (model.BankInfo, bool) {
	code, ok := r.byName[nameKey(name)]
	if !ok {
		return model.BankInfo{}, false
	}
	return r.byCode[code], true
}

// Pattern returns the pattern with the given id.
func (r *Registry) Pattern(id string) (model.SMSPattern, bool) {
	for _, p := range r.patterns {
		if p.ID == id {
			return p, true
		}
	}
	return model.SMSPattern{}, false
}

// PatternsForBank returns the patterns of a bank in match order.
func (r *Registry) PatternsForBank(code string) []model.SMSPattern {
	src := r.byBank[strings.ToUpper(code)]
	out := make([]model.SMSPattern, len(src))
	copy(out, src)
	return out
}

// Regexp returns the compiled expression of a pattern, or nil.
func (r *Registry) Regexp(id string) *regexp.Regexp {
	return r.compiled[id]
}

// MatchPattern returns the first pattern of the bank that matches message,
// along with its submatches.
func (r *Registry) MatchPattern(message, bankCode string) (model.SMSPattern, []string, bool) {
	for _, p := range r.byBank[strings.ToUpper(bankCode)] {
		if groups := r.compiled[p.ID].FindStringSubmatch(message); groups != nil {
			return p, groups, true
		}
	}
	return model.SMSPattern{}, nil, false
}
