package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
)

var (
	ingestText  string
	ingestImage string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a file, raw text or an image",
	Long: `Ingests content into the tenant's retrieval index.

With a file argument the file is parsed, chunked and embedded. The
--text flag ingests a raw string instead; --image ingests a single
image by path or URL.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestText, "text", "", "ingest this raw text instead of a file")
	ingestCmd.Flags().StringVar(&ingestImage, "image", "", "ingest this image URI instead of a file")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	ctx := context.Background()
	var report *domain.IngestReport
	var err error

	switch {
	case ingestText != "":
		report, err = ingestionService.IngestRawText(ctx, tenant(), ingestText, "cli", nil)
	case ingestImage != "":
		report, err = ingestionService.IngestImage(ctx, tenant(), ingestImage, "", nil)
	case len(args) == 1:
		report, err = ingestionService.IngestDocument(ctx, tenant(), args[0], "", nil)
	default:
		return errors.New("provide a file argument, --text or --image")
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	printReport(cmd, report)
	return nil
}

func printReport(cmd *cobra.Command, report *domain.IngestReport) {
	cmd.Printf("Document %s\n", report.DocumentID)
	for _, status := range report.Chunks {
		line := fmt.Sprintf("  [%d] %s %s", status.Position, status.ChunkID, status.State)
		if status.Error != "" {
			line += " (" + status.Error + ")"
		}
		cmd.Println(line)
	}
	if report.Succeeded() {
		cmd.Printf("%d chunk(s) ingested.\n", len(report.Chunks))
	} else {
		cmd.Printf("%d of %d chunk(s) failed.\n", report.Failed, len(report.Chunks))
	}
}
