/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/SvenDH/go-circle-evolution/history"
)

var (
	historyDB  string
	historyRun string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs, or the improvements of one run",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		repo, err := history.Open(historyDB)
		if err != nil {
			log.Fatal(err)
		}
		defer repo.Close()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		defer w.Flush()
		if historyRun != "" {
			err = printImprovements(w, repo, historyRun)
		} else {
			err = printRuns(w, repo)
		}
		if err != nil {
			log.Fatal(err)
		}
	},
}

func printRuns(w io.Writer, repo *history.Repository) error {
	runs, err := repo.Runs()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "ID\tTARGET\tSHAPE\tGENES\tGENERATION\tITERATIONS\tFITNESS\tSTATUS\tSTARTED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%.5f\t%s\t%s\n", r.Id, r.Target, r.Shape, r.Genes,
			r.Generation, r.Iterations, r.Fitness, r.Status, r.StartedAt.Format(time.DateTime))
	}
	return nil
}

func printImprovements(w io.Writer, repo *history.Repository, id string) error {
	run, err := repo.FindRunById(id)
	if err != nil {
		return err
	}
	imps, err := repo.Improvements(run.Id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "run %s on %s (%s)\n", run.Id, run.Target, run.Status)
	if run.Error.Valid {
		fmt.Fprintf(w, "error: %s\n", run.Error.String)
	}
	fmt.Fprintln(w, "GENERATION\tITERATION\tFITNESS\tAT")
	for _, imp := range imps {
		fmt.Fprintf(w, "%d\t%d\t%.5f\t%s\n", imp.Generation, imp.Iteration, imp.Fitness, imp.CreatedAt.Format(time.DateTime))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyDB, "db", "circle-evolution.db", "SQLite history database")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "Show the improvements of this run")
}
