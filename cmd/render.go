/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/SvenDH/go-circle-evolution/evolution"
	"github.com/SvenDH/go-circle-evolution/render"
	"github.com/SvenDH/go-circle-evolution/target"
)

var (
	renderWidth  int
	renderHeight int
)

var renderCmd = &cobra.Command{
	Use:   "render CHECKPOINT IMAGE",
	Short: "Render a saved genome to an image file",
	Long: `Render a checkpoint at any size and save it. Gray or color output follows
the gene width stored in the checkpoint.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		genome, err := evolution.LoadCheckpoint(args[0])
		if err != nil {
			log.Fatal(err)
		}
		if err := saveRendering(genome, renderWidth, renderHeight, args[1]); err != nil {
			log.Fatal(err)
		}
	},
}

// rendering draws genome on a fresh w x h raster; a zero height makes it square.
func rendering(genome *evolution.Genome, w, h int) (*render.Raster, error) {
	if h <= 0 {
		h = w
	}
	channels, err := genome.Channels()
	if err != nil {
		return nil, err
	}
	renderer, err := render.NewCPU(render.Shape{Height: h, Width: w, Channels: channels})
	if err != nil {
		return nil, err
	}
	specie, err := evolution.NewSpecieFromGenome(renderer, genome)
	if err != nil {
		return nil, err
	}
	if err := specie.Render(); err != nil {
		return nil, err
	}
	return specie.Phenotype(), nil
}

func saveRendering(genome *evolution.Genome, w, h int, path string) error {
	img, err := rendering(genome, w, h)
	if err != nil {
		return err
	}
	return target.Save(path, img)
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().IntVarP(&renderWidth, "width", "W", 256, "Output width")
	renderCmd.Flags().IntVarP(&renderHeight, "height", "H", 0, "Output height (0 for square)")
}
