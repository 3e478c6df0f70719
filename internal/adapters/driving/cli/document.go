package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/caldera-labs/assistant-cli/internal/ingest"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage the retrieval corpus",
	Long:  `Add, list, search, or delete the documents replies are grounded in.`,
}

var documentAddCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Add a document from a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentAdd,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	RunE:  runDocumentList,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Remove a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var documentSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search document chunks by similarity",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDocumentSearch,
}

// Flags for document add and search.
var (
	documentTitle     string
	searchTopK        int
	searchMinSim      float64
	searchJSON        bool
	documentContentTy string
)

func init() {
	documentAddCmd.Flags().StringVarP(&documentTitle, "title", "t", "", "Document title (defaults to the filename)")
	documentAddCmd.Flags().StringVar(&documentContentTy, "content-type", "", "Document content type (detected from the extension when omitted)")
	documentSearchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 5, "Maximum results")
	documentSearchCmd.Flags().Float64VarP(&searchMinSim, "min-similarity", "m", 0.3, "Similarity threshold")
	documentSearchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output results as JSON")

	documentCmd.AddCommand(documentAddCmd)
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentSearchCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentAdd(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	path := args[0]
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	contentType := documentContentTy
	if contentType == "" {
		contentType = ingest.Detect(path)
	}

	title := documentTitle
	if title == "" {
		title = ingest.Title(string(raw), contentType, path)
	}

	content := ingest.Normalize(string(raw), contentType)
	doc, err := documentService.AddDocument(context.Background(), title, content, contentType)
	if err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}

	cmd.Printf("Added document %s (%s)\n", doc.ID, doc.Title)
	return nil
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs, err := documentService.ListDocuments(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents yet. Add one with 'assistant document add'.")
		return nil
	}

	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Title:   %s\n", docs[i].Title)
		cmd.Printf("    Added:   %s\n", docs[i].CreatedAt.Format("2006-01-02 15:04:05"))
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	if err := documentService.DeleteDocument(context.Background(), args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %s deleted.\n", args[0])
	return nil
}

func runDocumentSearch(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	query := strings.Join(args, " ")
	results, err := documentService.Search(context.Background(), query, searchTopK, searchMinSim)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		out, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding results: %w", err)
		}
		cmd.Println(string(out))
		return nil
	}

	if len(results) == 0 {
		cmd.Println("No matching chunks.")
		return nil
	}

	for i := range results {
		cmd.Printf("%2d. [%.3f] %s\n", i+1, results[i].Score, results[i].SourceID)
		cmd.Printf("    %s\n\n", snippet(results[i].Content, 200))
	}
	return nil
}

// snippet truncates text for display.
func snippet(text string, maxLen int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}
