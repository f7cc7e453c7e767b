package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/linkscope/pkg/overlay"
)

// statsCommand creates the stats command.
func (c *CLI) statsCommand() *cobra.Command {
	var (
		src    sourceFlags
		depth  int
		top    int
		query  string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "stats <node-id> [node-id...]",
		Short: "Grow a graph from seed nodes and print its statistics",
		Long: `Grow a graph from one or more seed nodes and print node count, edge count,
density and the number of connected components.

--depth expands every reached node again; --filter counts only the nodes a
filter query would show.`,
		Example: `  linkscope stats P:alice --dataset relations.json --depth 2
  linkscope stats P:alice O:Acme --top 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			session, err := c.openBackend(src)
			if err != nil {
				return err
			}
			ws, err := c.newWorkspace(session, src.noCache)
			if err != nil {
				return err
			}

			sp := startSpinner(ctx, cmd.ErrOrStderr(), "Growing graph...")
			err = grow(ctx, ws, args, depth, sp.growStep(depth))
			sp.stop()
			if sp.interrupted() {
				return ctx.Err()
			}
			if err != nil {
				return err
			}

			st := ws.Stats()
			degrees := overlay.Degrees(ws.Snapshot())
			if top < len(degrees) {
				degrees = degrees[:top]
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}

			fmt.Println(StyleTitle.Render("Graph from " + session.label))
			fmt.Println(statsTable(st, degrees))
			if query != "" {
				ws.SetQuery(query)
				vis := ws.Visible()
				printInfo("%d of %d nodes match %q", len(vis.VisibleNodes), st.NodeCount, vis.Query)
			}
			return nil
		},
	}

	src.register(cmd)
	cmd.Flags().IntVarP(&depth, "depth", "d", 1, "expansion rounds")
	cmd.Flags().IntVar(&top, "top", 5, "number of highest-degree nodes to list")
	cmd.Flags().StringVar(&query, "filter", "", "report how many nodes match a filter query")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print stats as JSON")

	return cmd
}
