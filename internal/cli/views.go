package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// viewsCommand creates the views command.
func (c *CLI) viewsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "views",
		Short: "List and inspect saved views",
	}

	cmd.AddCommand(c.viewsListCommand())
	cmd.AddCommand(c.viewsShowCommand())

	return cmd
}

// viewsListCommand creates the "views list" subcommand.
func (c *CLI) viewsListCommand() *cobra.Command {
	var src sourceFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved views",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := c.openBackend(src)
			if err != nil {
				return err
			}
			ws, err := c.newWorkspace(session, src.noCache)
			if err != nil {
				return err
			}
			list, err := ws.ListViews(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				printInfo("No saved views")
				return nil
			}
			for _, v := range list {
				printKeyValue(v.Name, StyleDim.Render(v.ID))
			}
			return nil
		},
	}

	src.register(cmd)
	return cmd
}

// viewsShowCommand creates the "views show" subcommand.
func (c *CLI) viewsShowCommand() *cobra.Command {
	var (
		src    sourceFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "show <view-id>",
		Short: "Load a saved view and print its nodes and positions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := c.openBackend(src)
			if err != nil {
				return err
			}
			ws, err := c.newWorkspace(session, src.noCache)
			if err != nil {
				return err
			}
			report, err := ws.LoadView(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, v := range report.Dropped {
				printWarning("%s", v)
			}

			snap := ws.Snapshot()
			if asJSON {
				return writeGraphJSON(snap)
			}

			fmt.Println(StyleTitle.Render(report.Name) + " " + StyleDim.Render(report.ID))
			for _, n := range snap.SortedNodes() {
				icon := iconFree
				if n.Locked {
					icon = iconLocked
				}
				pos := "unplaced"
				if n.Position != nil {
					pos = fmt.Sprintf("(%.1f, %.1f)", n.Position.X, n.Position.Y)
				}
				fmt.Printf("  %s %-24s %s\n", StyleWarning.Render(icon), n.ID, StyleDim.Render(pos))
			}
			printNewline()
			printStats(ws.Stats())
			return nil
		},
	}

	completeIDs := c.completeViewIDs(&src)
	cmd.ValidArgsFunction = func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return completeIDs(cmd, args, toComplete)
	}
	src.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the restored graph as JSON")
	return cmd
}
