package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/linkscope/pkg/cache"
	"github.com/matzehuels/linkscope/pkg/httputil"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the neighbor response and layout caches",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var neighborsOnly, layoutOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cached neighbor responses and layouts",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			if _, err := os.Stat(dir); os.IsNotExist(err) && c.cfg.Backend.CacheDir == "" {
				printInfo("Cache is empty")
				return nil
			}

			if !layoutOnly {
				hc, err := c.httpCache(c.cfg.Backend)
				if err != nil {
					return err
				}
				n := countFiles(hc.Dir())
				if err := hc.Clear(); err != nil {
					return fmt.Errorf("clear neighbor cache: %w", err)
				}
				printSuccess("Cleared %d cached neighbor responses", n)
				printDetail("Directory: %s", hc.Dir())
			}
			if !neighborsOnly {
				fc, err := cache.NewFileCache(filepath.Join(dir, layoutCacheDir))
				if err != nil {
					return err
				}
				n := countFiles(fc.Dir())
				if err := fc.Clear(); err != nil {
					return fmt.Errorf("clear layout cache: %w", err)
				}
				printSuccess("Cleared %d cached layouts", n)
				printDetail("Directory: %s", fc.Dir())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&neighborsOnly, "neighbors", false, "only clear neighbor responses")
	cmd.Flags().BoolVar(&layoutOnly, "layouts", false, "only clear layouts")
	cmd.MarkFlagsMutuallyExclusive("neighbors", "layouts")

	return cmd
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Println(dir)
			return nil
		},
	}
}

// countFiles counts regular files below dir. Missing directories count as
// empty.
func countFiles(dir string) int {
	count := 0
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}
		if !info.IsDir() {
			count++
		}
		return nil
	})
	return count
}
