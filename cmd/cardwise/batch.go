package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cardwise/internal/cli"
	"github.com/Veraticus/cardwise/internal/common"
	"github.com/Veraticus/cardwise/internal/model"
	"github.com/Veraticus/cardwise/internal/storage"
)

type batchItem struct {
	Result        *model.ParsedSMSData `json:"result,omitempty"`
	Sender        string               `json:"sender"`
	Message       string               `json:"message"`
	Error         string               `json:"error,omitempty"`
	TransactionID string               `json:"transactionId,omitempty"`
}

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "Parse a file of SMS",
		Long: `Parse every SMS in FILE with the hybrid parser.

FILE is a JSON array of {"message","sender"} objects or a text file with one
"SENDER<TAB>message" or "SENDER|message" per line. Use - to read stdin.
With --store parsed transactions are saved to the database; messages already
stored are skipped by content hash.`,
		Args: cobra.ExactArgs(1),
		RunE: runBatch,
	}

	cmd.Flags().Bool("regex-only", false, "use bank patterns only")
	cmd.Flags().Bool("store", false, "save parsed transactions to the database")
	cmd.Flags().String("user-id", "", "user id recorded on stored transactions")
	cmd.Flags().StringP("output", "o", "", "write per-message results as JSON to this file")
	cmd.Flags().Bool("no-progress", false, "hide the progress bar")

	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	regexOnly, _ := cmd.Flags().GetBool("regex-only")
	store, _ := cmd.Flags().GetBool("store")
	userID, _ := cmd.Flags().GetString("user-id")
	output, _ := cmd.Flags().GetString("output")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	inputs, err := readBatchInput(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return common.InvalidInput("no SMS found in input")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := buildParsers(cfg, regexOnly)
	if err != nil {
		return err
	}

	var db *storage.SQLiteStorage
	if store {
		db, err = initStorage(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				slog.Error("failed to close storage", "error", closeErr)
			}
		}()
	}

	progressOut := cmd.ErrOrStderr()
	if noProgress {
		progressOut = io.Discard
	}
	bar := cli.NewProgress(progressOut, len(inputs), "Parsing SMS...")

	summary := cli.BatchSummary{Total: len(inputs)}
	items := make([]batchItem, 0, len(inputs))
	for i, in := range inputs {
		if ctx.Err() != nil {
			slog.Warn("Batch interrupted", "processed", i, "total", len(inputs))
			break
		}

		item := batchItem{Sender: in.Sender, Message: in.Message}
		parsed, err := p.hybrid.ParseSMS(ctx, in.Message, in.Sender)
		if err != nil {
			item.Error = common.PublicMessage(err)
		} else {
			item.Result = &parsed
			summary.Parsed++
			if parsed.Pattern == model.PatternLLM {
				summary.LLM++
			}
		}

		if db != nil && item.Result != nil {
			txn := model.NewSMSTransaction(parsed, userID)
			created, err := db.SaveSMSTransaction(ctx, txn)
			switch {
			case err != nil:
				item.Error = fmt.Sprintf("failed to store transaction: %s", common.PublicMessage(err))
			case created:
				summary.Stored++
				item.TransactionID = txn.ID
			default:
				item.TransactionID = txn.ID
			}
		}

		items = append(items, item)
		if err := bar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}

	if output != "" {
		if err := writeResults(output, items); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBatchSummary(summary))
	return err
}

func readBatchInput(stdin io.Reader, path string) ([]model.SMSInput, error) {
	if path == "-" {
		return cli.ReadSMSInputs(stdin)
	}

	f, err := os.Open(path) //nolint:gosec // path is supplied by the user
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer func() { _ = f.Close() }()

	return cli.ReadSMSInputs(f)
}

func writeResults(path string, items []batchItem) error {
	f, err := os.Create(path) //nolint:gosec // path is supplied by the user
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := writeJSON(f, items); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}
