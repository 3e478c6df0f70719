package cli

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/caldera-labs/assistant-cli/internal/core/ports/driven"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change settings stored in the config file.

Keys use dot notation, e.g. "generation.max_tokens" or "rag.enabled".`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a setting",
	Long: `Set a setting. Values parse as bool, then int, then string:
"true" becomes a boolean, "256" an integer, anything else a string.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

// knownFlagKeys are shown even when unset so users can discover them.
var knownFlagKeys = []string{
	driven.FlagRAGEnabled,
	driven.FlagMemoryEnabled,
	driven.FlagThreads,
	driven.FlagMaxTokens,
	driven.FlagModel,
	driven.FlagSystemPrompt,
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if flagStore == nil {
		return errors.New("settings store not configured")
	}

	seen := make(map[string]bool)
	keys := append([]string{}, knownFlagKeys...)
	for _, k := range keys {
		seen[k] = true
	}
	for _, k := range flagStore.Keys() {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	cmd.Printf("Settings (%s)\n\n", flagStore.Path())
	for _, key := range keys {
		val, ok := flagStore.Get(key)
		if !ok {
			cmd.Printf("  %-24s (unset)\n", key)
			continue
		}
		cmd.Printf("  %-24s %v\n", key, val)
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if flagStore == nil {
		return errors.New("settings store not configured")
	}

	key, raw := args[0], args[1]
	var value any = raw
	if b, err := strconv.ParseBool(raw); err == nil {
		value = b
	} else if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		value = n
	}

	if err := flagStore.Set(key, value); err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}

	cmd.Printf("%s = %v\n", key, value)
	return nil
}
