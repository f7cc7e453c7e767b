package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/linkscope/pkg/render"
)

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		src       sourceFlags
		depth     int
		output    string
		format    string
		algorithm string
		query     string
		viewID    string
	)

	cmd := &cobra.Command{
		Use:   "export [node-id...]",
		Short: "Lay out a graph and render it as SVG, PNG or DOT",
		Long: `Grow a graph from seed nodes, or load a saved view with --view, and render it
with Graphviz at the computed positions.

The format defaults to the extension of --output.`,
		Example: `  linkscope export P:alice --dataset relations.json -o alice.svg
  linkscope export --view 6f1c... -o view.png
  linkscope export P:alice --algorithm circle --format dot -o alice.dot`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			if len(args) == 0 && viewID == "" {
				return fmt.Errorf("give at least one node id or --view")
			}
			fmtName := format
			if fmtName == "" {
				fmtName = filepath.Ext(output)
			}
			if fmtName == "" {
				fmtName = string(render.SVG)
			}
			f, err := render.ParseFormat(fmtName)
			if err != nil {
				return err
			}
			if output == "" {
				output = "graph." + string(f)
			}

			session, err := c.openBackend(src)
			if err != nil {
				return err
			}
			ws, err := c.newWorkspace(session, src.noCache)
			if err != nil {
				return err
			}
			if algorithm != "" {
				if _, err := ws.SetAlgorithm(ctx, algorithm); err != nil {
					return err
				}
			}

			sp := startSpinner(ctx, cmd.ErrOrStderr(), "Building graph...")
			if viewID != "" {
				sp.update("Loading view %s...", viewID)
				_, err = ws.LoadView(ctx, viewID)
			} else {
				err = grow(ctx, ws, args, depth, sp.growStep(depth))
			}
			var data []byte
			prog := newProgress(logger)
			if err == nil {
				sp.update("Rendering %d nodes (%s layout)...", ws.Store().NodeCount(), ws.LayoutConfig().Algorithm)
				ws.SetQuery(query)
				data, err = ws.Export(ctx, f)
			}
			sp.stop()
			if sp.interrupted() {
				return ctx.Err()
			}
			if err != nil {
				return err
			}
			prog.done("Rendered " + string(f))
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}

			printSuccess("Exported %s", ws.LayoutConfig().Algorithm+" layout")
			printFile(output)
			printStats(ws.Stats())
			return nil
		},
	}

	src.register(cmd)
	cmd.Flags().IntVarP(&depth, "depth", "d", 1, "expansion rounds")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default graph.<format>)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: svg, png, dot")
	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", "", "layout algorithm (overrides config)")
	cmd.Flags().StringVar(&query, "filter", "", "only draw nodes matching this query")
	cmd.Flags().StringVar(&viewID, "view", "", "export a saved view instead of growing a graph")
	_ = cmd.RegisterFlagCompletionFunc("algorithm", completeAlgorithms)
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)
	_ = cmd.RegisterFlagCompletionFunc("view", c.completeViewIDs(&src))

	return cmd
}
