package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cardwise/internal/cli"
	"github.com/Veraticus/cardwise/internal/common"
)

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [message]",
		Short: "Parse a single SMS",
		Long: `Parse one bank SMS and print the extracted transaction.

The message is taken from the arguments, or from stdin when no argument is
given. By default the hybrid parser is used; --regex-only skips the LLM.`,
		Example: `  cardwise parse --sender VM-HDFCBK "Spent Rs.799 On HDFC Bank Card 0088 At Swiggy On 2025-07-30:19:56:11"
  cardwise parse --sender SBIINB --validate < alert.txt`,
		RunE: runParse,
	}

	cmd.Flags().StringP("sender", "s", "", "SMS sender id (required)")
	cmd.Flags().Bool("regex-only", false, "use bank patterns only")
	cmd.Flags().Bool("validate", false, "report whether the SMS can be parsed instead of parsing it")
	cmd.Flags().Bool("json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("sender")

	return cmd
}

func runParse(cmd *cobra.Command, args []string) error {
	sender, _ := cmd.Flags().GetString("sender")
	regexOnly, _ := cmd.Flags().GetBool("regex-only")
	validate, _ := cmd.Flags().GetBool("validate")
	asJSON, _ := cmd.Flags().GetBool("json")

	message, err := readMessage(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := buildParsers(cfg, regexOnly)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if validate {
		result := p.regex.Validate(message, sender)
		if asJSON {
			return writeJSON(out, result)
		}
		_, err := fmt.Fprintln(out, cli.RenderValidation(result))
		return err
	}

	parsed, err := p.hybrid.ParseSMS(cmd.Context(), message, sender)
	if err != nil {
		return fmt.Errorf("failed to parse SMS: %w", err)
	}

	if asJSON {
		return writeJSON(out, parsed)
	}
	_, err = fmt.Fprintln(out, cli.RenderParsed(parsed))
	return err
}

func readMessage(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	raw, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read message from stdin: %w", err)
	}
	message := strings.TrimSpace(string(raw))
	if message == "" {
		return "", common.InvalidInput("SMS message is required")
	}
	return message, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
