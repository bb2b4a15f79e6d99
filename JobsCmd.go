package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/samuelfneumann/asyncrl/experiment/ledger"
	"github.com/spf13/cobra"
)

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List the jobs recorded in the ledger",
		Args:  cobra.NoArgs,
		RunE:  runJobs,
	}
	return cmd
}

func runJobs(cmd *cobra.Command, args []string) error {
	path := v.GetString("ledger")
	if path == "" {
		return fmt.Errorf("no ledger configured")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no ledger at %v: %v", path, err)
	}

	l, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer l.Close()

	entries, err := l.List()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LAUNCHED\tMODE\tNAME\tAGENT\tGAME\tBONUS\tREP\tLOG DIR")
	for _, e := range entries {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\t%v\t%v\n",
			e.Launched.Format(time.DateTime), e.Mode, e.Name, e.AgentType,
			e.Game, e.BonusCoeff, e.Repetition, e.LogDir)
	}
	return w.Flush()
}
