package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/webgraph/pkg/config"
	"github.com/matzehuels/webgraph/pkg/errors"
	"github.com/matzehuels/webgraph/pkg/layout"
	"github.com/matzehuels/webgraph/pkg/render/nodelink"
	"github.com/matzehuels/webgraph/pkg/session"
)

const (
	formatSVG = "svg"
	formatDOT = "dot"
)

var renderFormats = map[string]bool{formatSVG: true, formatDOT: true}

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	session    sessionOpts
	output     string  // output file; the extension picks the format
	format     string  // explicit format, overriding the extension
	kind       string  // layout applied before rendering
	iterations int     // ForceAtlas2 iterations
	seed       uint64  // seed for random and circlepack
	scale      float64 // layout units to Graphviz points
	labels     bool    // label every node
	hideEdges  bool    // draw nodes only
}

// renderCommand creates the render command for exporting a session frame.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [graph.json]",
		Short: "Render a graph to SVG or DOT",
		Long: `Render a graph to SVG or DOT.

The graph is loaded into a session, laid out, and its frame (positions, sizes,
colors and labels after highlighting rules) is exported. Nodes are pinned to
the session coordinates, so Graphviz only draws.

Use --kind predefined to keep coordinates written by 'layout'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := opts.session.loadFile()
			if err != nil {
				return err
			}
			cfg := file.Configuration
			if err := applyLayoutFlags(cmd, &cfg, opts.kind, opts.iterations, opts.seed); err != nil {
				return err
			}
			if cmd.Flags().Changed("hide-edges") {
				cfg.HideEdges = opts.hideEdges
			}
			return c.runRender(cmd.Context(), args[0], cfg, opts)
		},
	}

	opts.session.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <input>.svg)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: svg, dot (default from --output extension)")
	cmd.Flags().StringVarP(&opts.kind, "kind", "k", "", "layout: random, circular, circlepack, forceatlas2, predefined")
	cmd.Flags().IntVar(&opts.iterations, "iterations", layout.DefaultIterations, "ForceAtlas2 iterations")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "seed for random and circlepack layouts")
	cmd.Flags().Float64Var(&opts.scale, "scale", nodelink.DefaultScale, "layout units to Graphviz points")
	cmd.Flags().BoolVar(&opts.labels, "labels", false, "label every node")
	cmd.Flags().BoolVar(&opts.hideEdges, "hide-edges", false, "draw nodes only")

	return cmd
}

// resolveFormat picks the output format from the flag or the file extension.
func resolveFormat(format, output string) (string, error) {
	if format == "" {
		format = formatSVG
		if ext := strings.TrimPrefix(filepath.Ext(output), "."); ext != "" {
			format = strings.ToLower(ext)
		}
	}
	if err := errors.ValidateFormat(format, renderFormats); err != nil {
		return "", err
	}
	return format, nil
}

// runRender lays out the graph and writes the frame.
func (c *CLI) runRender(ctx context.Context, input string, cfg config.Configuration, opts renderOpts) error {
	format, err := resolveFormat(opts.format, opts.output)
	if err != nil {
		return err
	}
	output := outputPath(input, opts.output, "."+format)

	sess, cleanup, err := c.openSession(input, cfg, opts.session.noCache, session.WithAnimationDuration(0))
	if err != nil {
		return err
	}
	defer cleanup()

	if err := sess.Render(ctx); err != nil {
		return fmt.Errorf("render session: %w", err)
	}

	dot := nodelink.ToDOT(sess.Frame(), nodelink.Options{Scale: opts.scale, Labels: opts.labels})
	data := []byte(dot)
	if format == formatSVG {
		spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %d nodes to SVG...", sess.Order()))
		spinner.Start()
		data, err = nodelink.RenderSVG(ctx, dot)
		if err != nil {
			spinner.StopWithError("Render failed")
			return fmt.Errorf("render svg: %w", err)
		}
		spinner.Stop()
	}

	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Rendered %s", strings.ToUpper(format))
	printFile(output)
	printStats(sess.Order(), sess.Size(), string(cfg.Layout))
	return nil
}
