package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/adapter/out/journal"
)

func newAuditCmd(_ *rootOptions) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Summarize a file journal per account (read-only, nothing is restored)",
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, err := journal.Summarize(path)
			if err != nil {
				return err
			}
			return printSummaries(cmd.OutOrStdout(), summaries)
		},
	}
	cmd.Flags().StringVar(&path, "journal", "journal.log", "journal file written by serve with the file driver")
	return cmd
}

func printSummaries(out io.Writer, summaries []journal.AccountSummary) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tNAME\tENTRIES\tNET\tLAST BALANCE")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", s.AccountID, s.AccountName, s.Entries, s.Net, s.LastBalance)
	}
	return w.Flush()
}
