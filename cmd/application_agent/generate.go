package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/application-assistant/internal/fetch"
	"github.com/jonathan/application-assistant/internal/generation"
	"github.com/jonathan/application-assistant/internal/observability"
	"github.com/jonathan/application-assistant/internal/types"
	"github.com/spf13/cobra"
)

var (
	generateJob     string
	generateJobURL  string
	generateBrowser bool
	generateResume  string
	generateTools   []string
	generateOutDir  string
	generateJSON    bool
	generateVerbose bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an application package from local files",
	Long: `Run the selected tools against a job description and résumé. The job
description is read from a file or fetched from a posting URL. A failing tool
is reported and the others still run. No usage is recorded and nothing is
stored.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateJob, "job", "j", "", "Path to the job description text file")
	generateCmd.Flags().StringVarP(&generateJobURL, "job-url", "u", "", "URL of the job posting to fetch")
	generateCmd.Flags().BoolVar(&generateBrowser, "browser", false, "Render the posting in headless Chrome when the fetched page has little text")
	generateCmd.Flags().StringVarP(&generateResume, "resume", "r", "", "Path to the résumé text file (required)")
	generateCmd.Flags().StringSliceVarP(&generateTools, "tools", "t", toolNames(types.AllTools), "Tools to run")
	generateCmd.Flags().StringVarP(&generateOutDir, "out", "o", "", "Write each output to <out>/<tool>.md")
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "Print the outcome as JSON")
	generateCmd.Flags().BoolVarP(&generateVerbose, "verbose", "v", false, "Print tool progress")
	generateCmd.MarkFlagsMutuallyExclusive("job", "job-url")
	generateCmd.MarkFlagsOneRequired("job", "job-url")
	_ = generateCmd.MarkFlagRequired("resume")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()
	printer := observability.NewPrinter(out)

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	fetchOpts := []fetch.Option{fetch.WithLogger(a.logger)}
	if generateBrowser {
		fetchOpts = append(fetchOpts, fetch.WithBrowser(fetch.NewChromedpBrowser(a.cfg.ChromePath)))
	}
	job, err := loadJobDescription(ctx, fetch.New(fetchOpts...), generateJob, generateJobURL)
	if err != nil {
		return err
	}

	req, err := loadGenerationRequest(job, generateResume, generateTools)
	if err != nil {
		return err
	}

	var opts []generation.Option
	if generateVerbose && !generateJSON {
		opts = append(opts, generation.WithProgress(printer.PrintProgress))
	}
	orchestrator, err := a.newOrchestrator(ctx, opts...)
	if err != nil {
		return err
	}

	outcome, err := orchestrator.Generate(ctx, req)
	if err != nil {
		return err
	}

	if generateOutDir != "" {
		if err := writeOutputs(generateOutDir, outcome.Outputs); err != nil {
			return err
		}
	}

	if generateJSON {
		return writeJSON(out, outcome)
	}
	printer.PrintOutcome(outcome)
	return nil
}

// loadJobDescription reads the job description from path, or fetches the
// posting at url when path is empty.
func loadJobDescription(ctx context.Context, fetcher *fetch.Fetcher, path, url string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read job description: %w", err)
		}
		return string(data), nil
	}

	posting, err := fetcher.JobPosting(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch job posting: %w", err)
	}
	return posting.Text, nil
}

// loadGenerationRequest reads the résumé and parses the tool list.
func loadGenerationRequest(job, resumePath string, tools []string) (types.GenerationRequest, error) {
	resume, err := os.ReadFile(resumePath)
	if err != nil {
		return types.GenerationRequest{}, fmt.Errorf("failed to read résumé: %w", err)
	}
	parsed, err := types.ParseTools(tools)
	if err != nil {
		return types.GenerationRequest{}, err
	}
	return types.NewGenerationRequest(job, string(resume), parsed)
}

func writeOutputs(dir string, outputs types.Outputs) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for tool, text := range outputs {
		path := filepath.Join(dir, string(tool)+".md")
		if err := os.WriteFile(path, []byte(strings.TrimSpace(text)+"\n"), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func toolNames(tools []types.ToolName) []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = string(t)
	}
	return names
}
