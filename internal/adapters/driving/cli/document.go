package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage ingested documents",
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tenant's documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [document-id]",
	Short: "Delete a document and all of its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

func init() {
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if docStore == nil {
		return errors.New("document store not configured")
	}

	docs, err := docStore.ListDocuments(context.Background(), tenant())
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents.")
		return nil
	}
	for _, doc := range docs {
		cmd.Printf("%s  %s  %s\n", doc.ID, doc.CreatedAt.Format("2006-01-02 15:04"), doc.SourceURI)
	}
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	if err := ingestionService.DeleteDocument(context.Background(), tenant(), args[0]); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	cmd.Printf("Deleted %s\n", args[0])
	return nil
}
