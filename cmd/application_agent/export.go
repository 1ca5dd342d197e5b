package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jonathan/application-assistant/internal/db"
	"github.com/jonathan/application-assistant/internal/export"
	"github.com/jonathan/application-assistant/internal/rendering"
	"github.com/spf13/cobra"
)

var (
	exportID     string
	exportFile   string
	exportOutDir string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render a stored application to PDF",
	Long: `Render an application record to a PDF file. The record is read from the
database by --id, or from a JSON document by --file (older documents that nest
the outputs under an extra "outputs" key are accepted).`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportID, "id", "", "Application ID to export")
	exportCmd.Flags().StringVarP(&exportFile, "file", "f", "", "Path to an application record JSON document")
	exportCmd.Flags().StringVarP(&exportOutDir, "out", "o", ".", "Output directory")
	exportCmd.MarkFlagsMutuallyExclusive("id", "file")
	exportCmd.MarkFlagsOneRequired("id", "file")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	exporter := export.NewExporter(rendering.NewChromedpRenderer(a.cfg.ChromePath), export.WithLogger(a.logger))

	var records db.RecordStore
	if exportID != "" {
		if a.cfg.DatabaseURL == "" {
			return fmt.Errorf("--id requires DATABASE_URL; use --file for a saved document")
		}
		if records, err = a.openStorage(ctx); err != nil {
			return err
		}
	}

	artifact, err := exportArtifact(ctx, exporter, records, exportID, exportFile)
	if err != nil {
		return err
	}

	path, err := writeArtifact(exportOutDir, artifact)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", path, len(artifact.Data))
	return nil
}

// exportArtifact renders the record named by id from records, or the
// document at file when id is empty.
func exportArtifact(ctx context.Context, exporter *export.Exporter, records db.RecordStore, id, file string) (*export.Artifact, error) {
	if id == "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		return exporter.RenderDocument(ctx, raw)
	}

	appID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid application ID %q: %w", id, err)
	}
	record, err := records.GetByID(ctx, appID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("application %s: %w", appID, db.ErrNotFound)
	}
	return exporter.Render(ctx, record)
}

func writeArtifact(dir string, artifact *export.Artifact) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, artifact.Filename)
	if err := os.WriteFile(path, artifact.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
