/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/SvenDH/go-circle-evolution/evolution"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "circle-evolution",
	Short: "Approximate images with evolved translucent circles",
	Long: `circle-evolution evolves a fixed number of semi-transparent circles until
their rendering resembles a target image, using a (1+1) hill climb.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		evolution.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the command selected by the program arguments.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug messages")
}
