package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cardwise/internal/cli"
)

func llmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "llm",
		Short: "Inspect the Ollama endpoint",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "probe",
		Short: "Check that Ollama answers",
		RunE:  runLLMProbe,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "models",
		Short: "List the models Ollama has installed",
		RunE:  runLLMModels,
	})

	return cmd
}

func runLLMProbe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := buildParsers(cfg, false)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !p.llm.TestConnection(cmd.Context()) {
		if _, err := fmt.Fprintln(out, cli.FormatError("Ollama is not reachable at "+cfg.LLM.OllamaURL)); err != nil {
			return err
		}
		return fmt.Errorf("llm probe failed for %s", cfg.LLM.OllamaURL)
	}

	_, err = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s Ollama is reachable at %s (model %s)",
		cli.RobotIcon, cfg.LLM.OllamaURL, p.llm.Model())))
	return err
}

func runLLMModels(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := buildParsers(cfg, false)
	if err != nil {
		return err
	}

	models, err := p.llm.AvailableModels(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(models) == 0 {
		_, err := fmt.Fprintln(out, cli.FormatInfo("No models installed. Run: ollama pull "+cfg.LLM.Model))
		return err
	}
	for _, name := range models {
		marker := " "
		if name == cfg.LLM.Model || name == cfg.LLM.Model+":latest" {
			marker = "*"
		}
		if _, err := fmt.Fprintf(out, "%s %s\n", marker, name); err != nil {
			return err
		}
	}
	return nil
}
