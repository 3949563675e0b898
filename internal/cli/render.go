package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/cardwise/internal/model"
)

// Confidence bands used when coloring scores.
const (
	HighConfidence   = 0.8
	MediumConfidence = 0.5
)

// FormatConfidence renders a score as a colored percentage.
func FormatConfidence(c float64) string {
	text := fmt.Sprintf("%.0f%%", c*100)
	switch {
	case c >= HighConfidence:
		return SuccessStyle.Render(text)
	case c >= MediumConfidence:
		return WarningStyle.Render(text)
	default:
		return ErrorStyle.Render(text)
	}
}

func field(label, value string) string {
	if value == "" {
		value = SubtleStyle.Render("-")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(label), value)
}

// RenderParsed renders one parse result as a detail box.
func RenderParsed(p model.ParsedSMSData) string {
	t := p.Transaction
	lines := []string{
		field("Bank", fmt.Sprintf("%s (%s)", p.Bank.Name, p.Bank.Code)),
		field("Amount", fmt.Sprintf("%.2f %s", t.Amount, t.Currency)),
		field("Merchant", t.Merchant),
		field("Card", t.CardLast4),
		field("Type", string(t.TransactionType)),
		field("Date", t.DateTime),
		field("Pattern", p.Pattern),
		field("Confidence", FormatConfidence(p.Confidence)),
	}
	if t.Balance != nil {
		lines = append(lines, field("Balance", fmt.Sprintf("%.2f", *t.Balance)))
	}
	if t.TransactionID != "" {
		lines = append(lines, field("Reference", t.TransactionID))
	}

	icon := CardIcon
	if p.Pattern == model.PatternLLM {
		icon = RobotIcon
	}
	return RenderBox(icon+" Parsed SMS", strings.Join(lines, "\n"))
}

// RenderValidation renders a validation report.
func RenderValidation(v model.ValidationResult) string {
	var b strings.Builder
	if v.IsValid {
		b.WriteString(FormatSuccess("SMS can be parsed"))
	} else {
		b.WriteString(FormatError("SMS cannot be parsed"))
	}
	if v.DetectedBank != nil {
		b.WriteString("\n" + field("Bank", v.DetectedBank.Name))
	}
	for _, e := range v.Errors {
		b.WriteString("\n" + FormatError(e))
	}
	for _, w := range v.Warnings {
		b.WriteString("\n" + FormatWarning(w))
	}
	return b.String()
}

// BatchSummary counts the outcome of a batch run.
type BatchSummary struct {
	Total  int
	Parsed int
	Stored int
	LLM    int
}

// RenderBatchSummary renders the totals of a batch run.
func RenderBatchSummary(s BatchSummary) string {
	failed := s.Total - s.Parsed
	content := fmt.Sprintf("  • Messages: %d\n", s.Total) +
		fmt.Sprintf("  • Parsed: %s\n", SuccessStyle.Render(fmt.Sprint(s.Parsed))) +
		fmt.Sprintf("  • Parsed by LLM: %d %s\n", s.LLM, RobotIcon) +
		fmt.Sprintf("  • Stored: %d\n", s.Stored)
	if failed > 0 {
		content += fmt.Sprintf("  • Failed: %s", ErrorStyle.Render(fmt.Sprint(failed)))
	} else {
		content += "  • Failed: 0"
	}
	return RenderBox(ChartIcon+" Batch Complete", content)
}

// WriteBanks writes the bank catalogue as a table.
func WriteBanks(w io.Writer, banks []model.BankInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
		TableHeaderStyle.Render("Code"),
		TableHeaderStyle.Render("Name"),
		TableHeaderStyle.Render("Country"),
		TableHeaderStyle.Render("Sender IDs")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
		strings.Repeat("─", 6),
		strings.Repeat("─", 20),
		strings.Repeat("─", 7),
		strings.Repeat("─", 20)); err != nil {
		return fmt.Errorf("failed to write separator: %w", err)
	}

	for _, b := range banks {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			b.Code, b.Name, b.Country, strings.Join(b.SenderIDs, ", ")); err != nil {
			return fmt.Errorf("failed to write bank row: %w", err)
		}
	}
	return tw.Flush()
}

// WritePatterns writes the pattern catalogue as a table.
func WritePatterns(w io.Writer, patterns []model.SMSPattern) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
		TableHeaderStyle.Render("ID"),
		TableHeaderStyle.Render("Bank"),
		TableHeaderStyle.Render("Currency"),
		TableHeaderStyle.Render("Priority"),
		TableHeaderStyle.Render("Confidence")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, p := range patterns {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f\n",
			p.ID, p.Bank, p.Currency, p.Priority, p.Confidence); err != nil {
			return fmt.Errorf("failed to write pattern row: %w", err)
		}
	}
	return tw.Flush()
}
