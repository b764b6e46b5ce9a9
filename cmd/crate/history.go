package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/crate/pkg/crate/config"
	"github.com/jamesainslie/crate/pkg/crate/manifest"
	"github.com/jamesainslie/crate/pkg/crate/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View past move and delete runs",
	Long: `Every move or delete run that is not a dry run is recorded with the
files it touched, where they went and whether the operation succeeded.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the files handled by one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove runs older than manifest.retention_days",
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

func openManifest() (*manifest.Manifest, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	m, err := manifest.New(cfg.Manifest.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize history: %w", err)
	}
	return m, cfg, nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	m, _, err := openManifest()
	if err != nil {
		return err
	}
	entries, err := m.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		printInfo(out, "No history entries found.")
		return nil
	}

	fmt.Fprintf(out, "%-44s  %-7s  %-6s  %-6s  %-10s\n", "ID", "TYPE", "FILES", "FAILED", "SIZE")
	fmt.Fprintln(out, strings.Repeat("-", 82))
	for _, e := range entries {
		fmt.Fprintf(out, "%-44s  %-7s  %-6d  %-6d  %-10s\n",
			truncateString(e.ID, 44),
			e.Operation,
			e.Summary.TotalFiles,
			e.Summary.Failed,
			types.FormatSize(e.Summary.TotalBytes),
		)
	}
	printInfo(out, "\nUse 'crate history show <id>' for details.")
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	m, _, err := openManifest()
	if err != nil {
		return err
	}
	entry, err := m.Get(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:         %s\n", entry.ID)
	fmt.Fprintf(out, "Timestamp:  %s\n", entry.Timestamp.Local().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "Operation:  %s\n", entry.Operation)
	if entry.ReviewDir != "" {
		fmt.Fprintf(out, "Review dir: %s\n", entry.ReviewDir)
	}
	fmt.Fprintf(out, "Roots:      %s\n", strings.Join(entry.Roots, ", "))
	fmt.Fprintf(out, "Files:      %d (%d failed)\n", entry.Summary.TotalFiles, entry.Summary.Failed)
	fmt.Fprintf(out, "Total size: %s\n", types.FormatSize(entry.Summary.TotalBytes))

	if len(entry.Files) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	for _, f := range entry.Files {
		fmt.Fprintf(out, "[%d] %s  %s\n", f.GroupID, f.Result, f.Path)
		if f.Target != "" {
			fmt.Fprintf(out, "      -> %s\n", f.Target)
		}
		fmt.Fprintf(out, "      kept %s\n", f.KeepPath)
	}
	return nil
}

func runHistoryClean(cmd *cobra.Command, _ []string) error {
	m, cfg, err := openManifest()
	if err != nil {
		return err
	}
	days := cfg.Manifest.RetentionDays
	if days <= 0 {
		days = config.DefaultRetentionDays
	}

	removed, err := m.Cleanup(days)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}
	printInfo(cmd.OutOrStdout(), "Removed %d history entries older than %d days.", removed, days)
	return nil
}

// truncateString shortens s to maxLen, ending in "..." when cut.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
