package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Manage personal memories",
	Long:  `Store, search, or delete the short personal facts used to ground replies.`,
}

var memoryAddCmd = &cobra.Command{
	Use:   "add [content]",
	Short: "Store a memory",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMemoryAdd,
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List memories",
	RunE:  runMemoryList,
}

var memorySearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search memories by similarity",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMemorySearch,
}

var memoryDeleteCmd = &cobra.Command{
	Use:   "delete [memory-id]",
	Short: "Remove a memory",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemoryDelete,
}

// Flags for memory add and search.
var (
	memoryTitle      string
	memoryTags       string
	memoryKeywords   string
	memoryImportance int
	memoryTopK       int
)

func init() {
	memoryAddCmd.Flags().StringVarP(&memoryTitle, "title", "t", "", "Memory title")
	memoryAddCmd.Flags().StringVar(&memoryTags, "tags", "", "Comma-separated tags")
	memoryAddCmd.Flags().StringVar(&memoryKeywords, "keywords", "", "Comma-separated keywords")
	memoryAddCmd.Flags().IntVarP(&memoryImportance, "importance", "i", 3, "Importance from 1 to 5")
	memorySearchCmd.Flags().IntVarP(&memoryTopK, "top-k", "k", 5, "Maximum results")

	memoryCmd.AddCommand(memoryAddCmd)
	memoryCmd.AddCommand(memoryListCmd)
	memoryCmd.AddCommand(memorySearchCmd)
	memoryCmd.AddCommand(memoryDeleteCmd)
	rootCmd.AddCommand(memoryCmd)
}

func runMemoryAdd(cmd *cobra.Command, args []string) error {
	if memoryService == nil {
		return errors.New("memory service not configured")
	}

	content := strings.Join(args, " ")
	id, err := memoryService.Add(context.Background(), content, memoryTitle,
		memoryTags, memoryKeywords, memoryImportance)
	if err != nil {
		return fmt.Errorf("failed to add memory: %w", err)
	}

	cmd.Printf("Memory stored: %s\n", id)
	return nil
}

func runMemoryList(cmd *cobra.Command, _ []string) error {
	if memoryService == nil {
		return errors.New("memory service not configured")
	}

	items, err := memoryService.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list memories: %w", err)
	}

	if len(items) == 0 {
		cmd.Println("No memories yet. Add one with 'assistant memory add'.")
		return nil
	}

	for i := range items {
		cmd.Printf("  %s\n", items[i].ID)
		if items[i].Title != "" {
			cmd.Printf("    Title:      %s\n", items[i].Title)
		}
		cmd.Printf("    Content:    %s\n", items[i].Content)
		cmd.Printf("    Importance: %d\n", items[i].Importance)
		if items[i].Tags != "" {
			cmd.Printf("    Tags:       %s\n", items[i].Tags)
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d memories\n", len(items))
	return nil
}

func runMemorySearch(cmd *cobra.Command, args []string) error {
	if memoryService == nil {
		return errors.New("memory service not configured")
	}

	query := strings.Join(args, " ")
	items, err := memoryService.Search(context.Background(), query, memoryTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(items) == 0 {
		cmd.Println("No matching memories.")
		return nil
	}

	for i := range items {
		cmd.Printf("%2d. %s\n", i+1, items[i].Content)
		cmd.Printf("    id: %s\n", items[i].ID)
	}
	return nil
}

func runMemoryDelete(cmd *cobra.Command, args []string) error {
	if memoryService == nil {
		return errors.New("memory service not configured")
	}

	if err := memoryService.Delete(context.Background(), args[0]); err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}

	cmd.Printf("Memory %s deleted.\n", args[0])
	return nil
}
