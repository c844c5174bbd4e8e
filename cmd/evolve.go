/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SvenDH/go-circle-evolution/evolution"
	"github.com/SvenDH/go-circle-evolution/fitness"
	"github.com/SvenDH/go-circle-evolution/history"
	"github.com/SvenDH/go-circle-evolution/render"
	"github.com/SvenDH/go-circle-evolution/report"
	"github.com/SvenDH/go-circle-evolution/server"
	"github.com/SvenDH/go-circle-evolution/target"
	"github.com/SvenDH/go-circle-evolution/ui"
)

var (
	evolveWidth          int
	evolveGray           bool
	evolveGenes          int
	evolveMaxGenerations int
	evolveCheckpoint     string
	evolveLoadCheckpoint string
	evolveOutputWidth    int
	evolveOutput         string
	evolveFitness        string
	evolveOffspring      int
	evolveSeed           uint64
	evolveCSV            string
	evolvePlot           string
	evolveDB             string
	evolveListen         string
	evolveSecret         string
	evolveWindow         bool
)

var evolveCmd = &cobra.Command{
	Use:   "evolve IMAGE",
	Short: "Evolve circles approximating an image",
	Long: `Evolve a set of translucent circles until their rendering approximates IMAGE.

Interrupting the run (Ctrl-C) stops it after the current generation; the
checkpoint and output image are still written.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runEvolve(cmd.Context(), args[0]); err != nil {
			log.Fatal(err)
		}
	},
}

func newEvaluator(kind string, tgt *render.Raster) (fitness.Evaluator, error) {
	eval, err := fitness.New(kind, tgt)
	if errors.Is(err, fitness.ErrDegenerateNormalization) {
		return nil, fmt.Errorf("%w (try --fitness %s)", err, fitness.KindSSIM)
	}
	return eval, err
}

func runEvolve(ctx context.Context, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tgt, err := target.Load(path, target.Options{Gray: evolveGray, Width: evolveWidth})
	if err != nil {
		return err
	}
	eval, err := newEvaluator(evolveFitness, tgt)
	if err != nil {
		return err
	}
	renderer, err := render.NewCPU(tgt.Shape)
	if err != nil {
		return err
	}

	opts := []evolution.Option{evolution.WithGenes(evolveGenes)}
	if evolveSeed != 0 {
		opts = append(opts, evolution.WithRand(rand.New(rand.NewPCG(evolveSeed, evolveSeed))))
	}
	if evolveOffspring > 1 {
		opts = append(opts, evolution.WithOffspring(evolveOffspring, func() (render.Renderer, error) {
			return render.NewCPU(tgt.Shape)
		}))
	}
	if evolveLoadCheckpoint != "" {
		genome, err := evolution.LoadCheckpoint(evolveLoadCheckpoint)
		if err != nil {
			return err
		}
		opts = append(opts,
			evolution.WithSeedGenome(genome),
			evolution.WithStartIteration(evolution.CheckpointIteration(evolveLoadCheckpoint)))
	}
	engine, err := evolution.NewEngine(tgt, eval, renderer, opts...)
	if err != nil {
		return err
	}

	reporters := report.Multi{report.NewLog(evolution.Logger())}
	if evolveCSV != "" {
		c, err := report.CreateCSV(csvPath(evolveCSV, time.Now()))
		if err != nil {
			return err
		}
		defer c.Close()
		reporters = append(reporters, c)
	}
	if evolvePlot != "" {
		reporters = append(reporters, report.NewPlot(evolvePlot, filepath.Base(path)))
	}
	if evolveDB != "" {
		repo, err := history.Open(evolveDB)
		if err != nil {
			return err
		}
		defer repo.Close()
		reporters = append(reporters, history.NewReporter(repo, path))
	}
	if evolveListen != "" {
		hub := server.NewHub()
		router := server.NewRouter(evolveListen, hub, server.NewAuth(evolveSecret))
		go func() {
			if err := router.Run(ctx); err != nil {
				log.Printf("progress server: %v", err)
			}
		}()
		reporters = append(reporters, hub)
	}
	var viewer *ui.Viewer
	if evolveWindow {
		viewer = ui.NewViewer(tgt.Shape, windowScale(tgt.Shape))
		reporters = append(reporters, viewer)
	}
	engine.Attach(reporters)

	stats, runErr := runWithViewer(ctx, engine, viewer, path)

	if evolveCheckpoint != "" {
		name := evolution.CheckpointName(evolveCheckpoint, stats.Iterations)
		if err := evolution.SaveCheckpoint(name, engine.Champion().Genome()); err != nil {
			return errors.Join(runErr, err)
		}
		log.Printf("checkpoint saved to %s", name)
	}
	if evolveOutput != "" {
		width := evolveOutputWidth
		if width <= 0 {
			width = tgt.Width
		}
		w, h := target.Size(tgt.Width, tgt.Height, width, 0)
		if err := saveRendering(engine.Champion().Genome(), w, h, evolveOutput); err != nil {
			return errors.Join(runErr, err)
		}
		log.Printf("image saved to %s", evolveOutput)
	}
	return runErr
}

// runWithViewer keeps the window on the main goroutine while the engine runs
// on another one. Closing the window cancels the run.
func runWithViewer(ctx context.Context, engine *evolution.Engine, viewer *ui.Viewer, title string) (evolution.Stats, error) {
	if viewer == nil {
		return engine.Run(ctx, evolveMaxGenerations)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var stats evolution.Stats
	var err error
	done := make(chan struct{})
	go func() {
		defer close(done)
		stats, err = engine.Run(ctx, evolveMaxGenerations)
		viewer.Close()
	}()
	if uiErr := ui.Run(viewer, "circle-evolution - "+title); uiErr != nil {
		log.Printf("viewer: %v", uiErr)
	}
	cancel()
	<-done
	return stats, err
}

// autoCSV is the --csv value when the flag is given without a file name.
const autoCSV = "auto"

func csvPath(flag string, now time.Time) string {
	if flag == autoCSV {
		return report.CSVName(now)
	}
	return flag
}

func windowScale(s render.Shape) int {
	return max(1, 512/max(s.Width, s.Height))
}

func init() {
	rootCmd.AddCommand(evolveCmd)

	f := evolveCmd.Flags()
	f.IntVarP(&evolveWidth, "width", "w", 0, "Working width the target is resized to, keeping its aspect ratio (0 keeps the native size)")
	f.BoolVar(&evolveGray, "gray", false, "Evolve against a grayscale version of the image")
	f.IntVarP(&evolveGenes, "genes", "g", evolution.DefaultGenes, "Number of circles")
	f.IntVarP(&evolveMaxGenerations, "max-generations", "m", 50000, "Number of mutants to try")
	f.StringVarP(&evolveCheckpoint, "checkpoint", "c", "", "Save the final genome as PREFIX-<iteration>.txt")
	f.StringVarP(&evolveLoadCheckpoint, "load-checkpoint", "l", "", "Start from a saved genome")
	f.IntVarP(&evolveOutputWidth, "output-width", "o", 0, "Width of the rendered output image (0 uses the working width)")
	f.StringVar(&evolveOutput, "output", "", "Render the final champion to this image file")
	f.StringVar(&evolveFitness, "fitness", fitness.KindComposite, "Fitness function: composite, mse or ssim")
	f.IntVar(&evolveOffspring, "offspring", 1, "Mutants evaluated in parallel per generation")
	f.Uint64Var(&evolveSeed, "seed", 0, "Random seed (0 picks one)")
	f.StringVar(&evolveCSV, "csv", "", "Write generation,fitness rows to this CSV file (a timestamped name when no file is given)")
	f.Lookup("csv").NoOptDefVal = autoCSV
	f.StringVar(&evolvePlot, "plot", "", "Save a fitness plot to this image file when the run ends")
	f.StringVar(&evolveDB, "db", "", "Record the run in this SQLite history database")
	f.StringVar(&evolveListen, "listen", "", "Serve progress over HTTP and websocket on this address")
	f.StringVar(&evolveSecret, "secret", os.Getenv("CIRCLE_EVOLUTION_SECRET"), "Require stream clients to present a token signed with this secret")
	f.BoolVar(&evolveWindow, "window", false, "Show the champion in a window while evolving")
}
