package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	lserrors "github.com/matzehuels/linkscope/pkg/errors"
	"github.com/matzehuels/linkscope/pkg/graph"
)

// expandCommand creates the expand command.
func (c *CLI) expandCommand() *cobra.Command {
	var (
		src      sourceFlags
		limit    int
		asJSON   bool
		showList bool
	)

	cmd := &cobra.Command{
		Use:   "expand <node-id>",
		Short: "Fetch the neighbors of a node and print the relations",
		Long: `Fetch up to --limit relations of a node and merge them into a fresh graph.

Triples with a missing endpoint are skipped and reported as warnings.`,
		Example: `  linkscope expand P:alice --dataset relations.json
  linkscope expand P:alice --url http://localhost:8080 --limit 50 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			if err := lserrors.ValidateLimit(limit); err != nil {
				return err
			}
			session, err := c.openBackend(src)
			if err != nil {
				return err
			}
			ws, err := c.newWorkspace(session, src.noCache)
			if err != nil {
				return err
			}

			prog := newProgress(logger)
			sp := startSpinner(ctx, cmd.ErrOrStderr(), fmt.Sprintf("Fetching neighbors of %s...", args[0]))
			res, err := ws.Expand(ctx, args[0], limit)
			sp.stop()
			if sp.interrupted() {
				return ctx.Err()
			}
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Expanded %s", args[0]))

			for _, w := range res.Report.Warnings {
				printWarning("%s", w)
			}

			snap := ws.Snapshot()
			if asJSON {
				return writeGraphJSON(snap)
			}

			printSuccess("%d relations of %s", len(res.Triples), StyleHighlight.Render(args[0]))
			for _, t := range res.Triples {
				printTriple(t)
			}
			if showList {
				printNewline()
				for _, n := range snap.SortedNodes() {
					printKeyValue(n.ID, n.Label+" "+StyleDim.Render(n.Type))
				}
			}
			printNewline()
			printStats(ws.Stats())
			return nil
		},
	}

	src.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum relations to fetch (0 uses the configured limit)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the merged graph as JSON")
	cmd.Flags().BoolVar(&showList, "nodes", false, "list the nodes of the merged graph")

	return cmd
}

// graphJSON is the machine-readable form of a snapshot.
type graphJSON struct {
	Nodes []graph.Node `json:"nodes"`
	Edges []graph.Edge `json:"edges"`
}

func writeGraphJSON(snap graph.Snapshot) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(graphJSON{Nodes: snap.SortedNodes(), Edges: snap.SortedEdges()})
}
