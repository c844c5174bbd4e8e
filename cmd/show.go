/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/SvenDH/go-circle-evolution/evolution"
	"github.com/SvenDH/go-circle-evolution/ui"
)

var (
	showWidth  int
	showHeight int
	showScale  int
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show CHECKPOINT",
	Short: "Display a saved genome in a window",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		genome, err := evolution.LoadCheckpoint(args[0])
		if err != nil {
			log.Fatal(err)
		}
		img, err := rendering(genome, showWidth, showHeight)
		if err != nil {
			log.Fatal(err)
		}

		viewer := ui.NewViewer(img.Shape, showScale)
		viewer.Show(img)
		if err := ui.Run(viewer, "Viewer - "+args[0]); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().IntVarP(&showWidth, "width", "W", 256, "Render width")
	showCmd.Flags().IntVarP(&showHeight, "height", "H", 0, "Render height (0 for square)")
	showCmd.Flags().IntVar(&showScale, "scale", 2, "Window pixels per rendered pixel")
}
