package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/linkscope/internal/config"
	"github.com/matzehuels/linkscope/internal/server"
	lserrors "github.com/matzehuels/linkscope/pkg/errors"
	"github.com/matzehuels/linkscope/pkg/observability"
	"github.com/matzehuels/linkscope/pkg/relations"
	"github.com/matzehuels/linkscope/pkg/views"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		dataset   string
		store     string
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference neighbor and view backend",
		Long: `Serve neighbor queries from a relations dataset and store views in the
configured repository.

Routes:
  GET  /neighbors?node_id=<id>&limit=<n>
  POST /views, GET /views, GET /views/{id}
  GET  /healthz, GET /metrics`,
		Example: `  linkscope serve --dataset relations.json
  LINKSCOPE_SERVER_STORE=redis LINKSCOPE_SERVER_REDIS_URL=redis://localhost:6379/0 linkscope serve --dataset relations.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			sc := c.cfg.Server
			if addr != "" {
				sc.Addr = addr
			}
			if dataset != "" {
				sc.Dataset = dataset
			}
			if store != "" {
				sc.Store = store
			}
			cfg := c.cfg
			cfg.Server = sc
			if err := cfg.Validate(); err != nil {
				return err
			}
			if sc.Dataset == "" {
				return lserrors.New(lserrors.ErrCodeValidation, "a relations dataset is required (--dataset or [server] dataset)")
			}

			ds, err := relations.LoadFile(sc.Dataset)
			if err != nil {
				return err
			}
			logger.Info("loaded dataset", "path", sc.Dataset, "triples", ds.Len(), "nodes", len(ds.Nodes()))

			repo, closeRepo, err := openRepository(ctx, sc)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeRepo(); err != nil {
					logger.Warn("close view store", "error", err)
				}
			}()
			logger.Info("view store ready", "store", sc.Store)

			opts := server.Options{Logger: logger}
			if !noMetrics {
				reg := prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				hooks := observability.NewPrometheusHooks(reg)
				observability.SetExplorerHooks(hooks)
				observability.SetCacheHooks(hooks)
				observability.SetHTTPHooks(hooks)
				defer observability.Reset()
				opts.Gatherer = reg
			}

			return server.New(ds, repo, opts).ListenAndServe(ctx, sc.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&dataset, "dataset", "", "relations file served by /neighbors")
	cmd.Flags().StringVar(&store, "store", "", "view store: memory, file, redis, mongo, badger")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "disable the /metrics endpoint")
	_ = cmd.RegisterFlagCompletionFunc("store", completeStores)

	return cmd
}

// openRepository opens the view store selected by sc.Store and returns a
// function that releases it.
func openRepository(ctx context.Context, sc config.ServerConfig) (views.Repository, func() error, error) {
	noop := func() error { return nil }
	switch sc.Store {
	case config.StoreMemory, "":
		return views.NewMemoryRepository(), noop, nil
	case config.StoreFile:
		repo, err := views.NewFileRepository(sc.FileDir)
		if err != nil {
			return nil, nil, err
		}
		return repo, noop, nil
	case config.StoreRedis:
		repo, err := views.NewRedisRepository(ctx, sc.RedisURL, "")
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case config.StoreMongo:
		repo, err := views.NewMongoRepository(ctx, sc.MongoURI, sc.MongoDatabase, views.DefaultMongoCollection)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() error { return repo.Close(context.Background()) }, nil
	case config.StoreBadger:
		repo, err := views.OpenBadgerRepository(sc.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown view store %q", sc.Store)
	}
}
