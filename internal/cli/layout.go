package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/webgraph/pkg/config"
	"github.com/matzehuels/webgraph/pkg/errors"
	"github.com/matzehuels/webgraph/pkg/graph"
	"github.com/matzehuels/webgraph/pkg/layout"
	"github.com/matzehuels/webgraph/pkg/session"
)

// layoutCommand creates the layout command for computing node coordinates.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		opts       sessionOpts
		output     string
		kind       string
		iterations int
		seed       uint64
	)

	cmd := &cobra.Command{
		Use:   "layout [graph.json]",
		Short: "Compute node coordinates for a graph",
		Long: `Compute node coordinates for a graph.

The layout command loads a graph.json file into a session, applies the
configured layout synchronously and writes the graph back with x and y
attributes set. The result can be rendered with 'render' or served with
'serve' using the predefined layout.

ForceAtlas2 results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := opts.loadFile()
			if err != nil {
				return err
			}
			cfg := file.Configuration
			if err := applyLayoutFlags(cmd, &cfg, kind, iterations, seed); err != nil {
				return err
			}
			return c.runLayout(cmd.Context(), args[0], cfg, outputPath(args[0], output, ".layout.json"), opts.noCache)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "layout: random, circular, circlepack, forceatlas2 (default from config)")
	cmd.Flags().IntVar(&iterations, "iterations", layout.DefaultIterations, "ForceAtlas2 iterations")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed for random and circlepack layouts (0 picks a fresh one)")

	return cmd
}

// applyLayoutFlags overlays the layout flags the user set onto cfg.
func applyLayoutFlags(cmd *cobra.Command, cfg *config.Configuration, kind string, iterations int, seed uint64) error {
	if kind != "" {
		k, err := layout.ParseKind(kind)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidLayout, err, "--kind")
		}
		cfg.Layout = k
	}
	lc := &cfg.LayoutConfig
	if cmd.Flags().Changed("iterations") {
		if lc.ForceAtlas2 == nil {
			lc.ForceAtlas2 = &layout.ForceAtlas2Options{}
		}
		lc.ForceAtlas2.Iterations = iterations
	}
	if cmd.Flags().Changed("seed") {
		if lc.Random == nil {
			lc.Random = &layout.RandomOptions{}
		}
		if lc.CirclePack == nil {
			lc.CirclePack = &layout.CirclePackOptions{}
		}
		lc.Random.Seed, lc.CirclePack.Seed = seed, seed
	}
	return cfg.Validate()
}

// runLayout loads the graph, applies the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, input string, cfg config.Configuration, output string, noCache bool) error {
	sess, cleanup, err := c.openSession(input, cfg, noCache, session.WithAnimationDuration(0))
	if err != nil {
		return err
	}
	defer cleanup()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Computing %s layout for %d nodes...", cfg.Layout, sess.Order()))
	spinner.Start()
	prog := newProgress(loggerFromContext(ctx))

	if err := sess.Render(ctx); err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}

	if ctx.Err() != nil {
		spinner.Stop()
		return ctx.Err()
	}

	spinner.Update("Writing " + output + "...")
	g, err := graph.Import(sess.ExportGraph(false))
	if err != nil {
		spinner.StopWithError("Export failed")
		return fmt.Errorf("export graph: %w", err)
	}
	if err := graph.WriteFile(g, output); err != nil {
		spinner.StopWithError("Write failed")
		return fmt.Errorf("write output %s: %w", output, err)
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Applied %s layout", cfg.Layout))

	printSuccess("Layout complete")
	printFile(output)
	printStats(sess.Order(), sess.Size(), string(cfg.Layout))
	printNewline()
	printNextStep("Render", "webgraph render "+output)

	return nil
}
