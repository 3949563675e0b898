package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cardwise/internal/cli"
	"github.com/Veraticus/cardwise/internal/model"
	"github.com/Veraticus/cardwise/internal/registry"
	"github.com/Veraticus/cardwise/internal/smsparse"
)

func banksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "banks",
		Short: "List supported banks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			country, _ := cmd.Flags().GetString("country")

			var banks []model.BankInfo
			for _, b := range registry.Default().Banks() {
				if country == "" || strings.EqualFold(string(b.Country), country) {
					banks = append(banks, b)
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, banks)
			}
			if len(banks) == 0 {
				_, err := fmt.Fprintln(out, cli.FormatInfo("No banks found for country "+country))
				return err
			}
			if _, err := fmt.Fprintln(out, cli.FormatTitle("Supported Banks")); err != nil {
				return err
			}
			return cli.WriteBanks(out, banks)
		},
	}

	cmd.Flags().String("country", "", "only list banks of this country (IN, US)")
	cmd.Flags().Bool("json", false, "print as JSON")
	return cmd
}

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "List SMS patterns",
		Long: `List the bank SMS patterns in the order they are tried.

With --test the given message is matched against the pattern named by
--pattern and the captured groups are printed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			bank, _ := cmd.Flags().GetString("bank")
			test, _ := cmd.Flags().GetString("test")
			patternID, _ := cmd.Flags().GetString("pattern")

			reg := registry.Default()
			out := cmd.OutOrStdout()

			if test != "" {
				result, err := smsparse.NewParser(reg, slog.Default()).TestPattern(test, patternID)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, result)
				}
				if !result.IsValid {
					_, err := fmt.Fprintln(out, cli.FormatWarning("Pattern "+result.PatternID+" does not match"))
					return err
				}
				if _, err := fmt.Fprintln(out, cli.FormatSuccess("Pattern "+result.PatternID+" matches")); err != nil {
					return err
				}
				for i, group := range result.Match[1:] {
					if _, err := fmt.Fprintf(out, "  %d: %s\n", i+1, group); err != nil {
						return err
					}
				}
				return nil
			}

			patterns := reg.Patterns()
			if bank != "" {
				patterns = reg.PatternsForBank(strings.ToUpper(bank))
			}
			if asJSON {
				return writeJSON(out, patterns)
			}
			if _, err := fmt.Fprintln(out, cli.FormatTitle("SMS Patterns")); err != nil {
				return err
			}
			return cli.WritePatterns(out, patterns)
		},
	}

	cmd.Flags().String("bank", "", "only list patterns of this bank code")
	cmd.Flags().String("test", "", "message to test against --pattern")
	cmd.Flags().String("pattern", "", "pattern id used with --test")
	cmd.Flags().Bool("json", false, "print as JSON")
	return cmd
}
