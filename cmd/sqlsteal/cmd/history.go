package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/opensandbox/sqlsteal/internal/config"
	"github.com/opensandbox/sqlsteal/internal/journal"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent retrievals from the journal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile, zerolog.Nop())
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("journal") {
			cfg.JournalPath = journalPath
		}
		if cfg.JournalPath == "" {
			return fmt.Errorf("no journal configured. Set SQLSTEAL_JOURNAL or use --journal")
		}

		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer j.Close()

		entries, err := j.Recent(cmd.Context(), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to read journal: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "(no retrievals)")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tDRIVER\tHOST\tPATH\tOUTCOME\tSIZE\tLOCATION")
		for _, e := range entries {
			detail := e.Location
			if e.Error != "" {
				detail = e.Error
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
				e.CreatedAt.Format("2006-01-02 15:04:05"), e.Driver, e.Host, e.Path, e.Outcome, e.Size, detail)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries to show")
}
