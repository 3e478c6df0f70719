package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show recent generation metrics",
	RunE:  runStats,
}

// Flags for stats output.
var (
	statsLimit int
	statsJSON  bool
)

func init() {
	statsCmd.Flags().IntVarP(&statsLimit, "limit", "n", 10, "Number of rows to show")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output rows as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if metricsRecorder == nil {
		return errors.New("metrics recorder not configured")
	}

	rows, err := metricsRecorder.Recent(context.Background(), statsLimit)
	if err != nil {
		return fmt.Errorf("failed to load metrics: %w", err)
	}

	if statsJSON {
		out, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding metrics: %w", err)
		}
		cmd.Println(string(out))
		return nil
	}

	if len(rows) == 0 {
		cmd.Println("No generation metrics yet.")
		return nil
	}

	for i := range rows {
		m := &rows[i]
		cmd.Printf("%s  conversation=%s model=%s\n",
			m.StartedAt.Format("2006-01-02 15:04:05"), m.ConversationID, m.Model)
		cmd.Printf("  prefill: %dms  decode: %.1f tok/s\n", m.PrefillMillis, m.DecodeTokensPerSec)
		cmd.Printf("  tokens: prompt=%d history=%d context=%d output=%d\n",
			m.PromptTokens, m.HistoryTokens, m.ContextTokens, m.OutputTokens)
		cmd.Printf("  retrieval: rag=%t memory=%t\n\n", m.RAGEnabled, m.MemoryEnabled)
	}
	return nil
}
