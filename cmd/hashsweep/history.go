package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/hashsweep/pkg/hashsweep/config"
	"github.com/jamesainslie/hashsweep/pkg/hashsweep/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View past runs",
	Long: `View the history of generate and verify runs.

Every run records its counts and problem paths in a local database
under $XDG_DATA_HOME/hashsweep/history.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show details of a run",
	Long:  `Display a run by its ID. A unique ID prefix is enough.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old runs",
	Long:  `Remove history entries older than history.retention_days.`,
	Args:  cobra.NoArgs,
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// openHistory opens the configured history store.
func openHistory(cmd *cobra.Command) (*history.Store, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	store, _, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(records) == 0 {
		printInfo("No history entries found.")
		printInfo("Run 'hashsweep [path]' to generate or verify a manifest.")
		return nil
	}

	fmt.Print(formatHistoryTable(records))
	fmt.Println("Use 'hashsweep history show <id>' for details on a specific run.")
	return nil
}

// formatHistoryTable renders records as a fixed-width table.
func formatHistoryTable(records []history.Record) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%-8s  %-19s  %-8s  %-6s  %-8s  %s\n", "ID", "TIME", "MODE", "STATUS", "FILES", "ROOT")
	sb.WriteString(strings.Repeat("-", 72))
	sb.WriteString("\n")

	for _, rec := range records {
		fmt.Fprintf(&sb, "%-8s  %-19s  %-8s  %-6s  %-8s  %s\n",
			truncateString(rec.ID, 8),
			rec.Timestamp.Local().Format("2006-01-02 15:04:05"),
			rec.Mode,
			recordStatus(&rec),
			humanize.Comma(int64(rec.Files())),
			rec.Root)
	}

	return sb.String()
}

func recordStatus(rec *history.Record) string {
	switch {
	case rec.Interrupted:
		return "int"
	case rec.OK():
		return "ok"
	default:
		return "FAIL"
	}
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, _, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	fmt.Print(formatRecord(rec))
	return nil
}

// formatRecord renders one record in detail.
func formatRecord(rec *history.Record) string {
	var sb strings.Builder

	sb.WriteString("Run Details\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "ID:        %s\n", rec.ID)
	fmt.Fprintf(&sb, "Time:      %s (%s)\n",
		rec.Timestamp.Local().Format("2006-01-02 15:04:05 MST"), humanize.Time(rec.Timestamp))
	fmt.Fprintf(&sb, "Mode:      %s\n", rec.Mode)
	fmt.Fprintf(&sb, "Root:      %s\n", rec.Root)
	fmt.Fprintf(&sb, "Manifest:  %s\n", rec.Manifest)
	fmt.Fprintf(&sb, "Read:      %s in %s\n",
		humanize.IBytes(uint64(rec.BytesHashed)), rec.Elapsed.Round(time.Millisecond))

	if rec.Interrupted {
		sb.WriteString("Status:    interrupted\n")
		return sb.String()
	}

	c := rec.Counts
	if rec.Mode == "generate" {
		fmt.Fprintf(&sb, "Result:    %d files hashed, unable to read %d files.\n", c.Hashed, c.Unreadable)
	} else {
		fmt.Fprintf(&sb, "Result:    %d files verified, %d files failed, %d files not found.\n",
			c.Verified, c.Failed, c.NotFound)
		if c.Malformed > 0 {
			fmt.Fprintf(&sb, "           %d malformed manifest lines\n", c.Malformed)
		}
	}

	writePaths(&sb, "Unreadable", rec.UnreadablePaths)
	writePaths(&sb, "Not found", rec.MissingPaths)
	writePaths(&sb, "Failed verification", rec.FailedPaths)
	writePaths(&sb, "Malformed lines", rec.MalformedLines)

	return sb.String()
}

// maxShownPaths limits each path list in history show.
const maxShownPaths = 50

func writePaths(sb *strings.Builder, title string, paths []string) {
	if len(paths) == 0 {
		return
	}

	fmt.Fprintf(sb, "\n%s:\n", title)
	for i, p := range paths {
		if i == maxShownPaths {
			fmt.Fprintf(sb, "  ... and %d more\n", len(paths)-maxShownPaths)
			break
		}
		fmt.Fprintf(sb, "  %s\n", p)
	}
}

func runHistoryClean(cmd *cobra.Command, _ []string) error {
	store, cfg, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	retentionDays := cfg.History.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	printInfo("Cleaning history entries older than %d days...", retentionDays)

	removed, err := store.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("Removed %d entries.", removed)
	return nil
}

// truncateString truncates a string to maxLen.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
