package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackscan/internal/server"
	"github.com/matzehuels/stackscan/pkg/store"
)

// serveCommand runs the code location collector.
func (c *CLI) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the code location collector",
		Long: `Serve runs the HTTP collector that "stackscan detect --upload-url" posts code
locations to. Records are kept in memory unless --mongo-uri is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := map[string]any{}
			for name, key := range map[string]string{
				"addr":      "serve.addr",
				"mongo-uri": "serve.mongo_uri",
				"database":  "serve.database",
			} {
				if fl := cmd.Flags().Lookup(name); fl.Changed {
					overrides[key] = fl.Value.String()
				}
			}
			if fl := cmd.Flags().Lookup("workers"); fl.Changed {
				n, _ := cmd.Flags().GetInt("workers")
				overrides["serve.workers"] = n
			}
			return c.runServe(cmd.Context(), overrides)
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().String("mongo-uri", "", "MongoDB connection URI (default: in-memory)")
	cmd.Flags().String("database", "stackscan", "MongoDB database name")
	cmd.Flags().Int("workers", 4, "records validated concurrently")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, overrides map[string]any) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	cfg, err := c.loadConfig(wd, overrides)
	if err != nil {
		return err
	}

	var st store.Store
	if cfg.Serve.MongoURI != "" {
		ms, err := store.NewMongoStore(ctx, cfg.Serve.MongoURI, cfg.Serve.Database)
		if err != nil {
			return err
		}
		st = ms
		c.Logger.Info("using mongodb", "database", cfg.Serve.Database)
	} else {
		st = store.NewMemoryStore()
		c.Logger.Warn("records are kept in memory and lost on exit")
	}
	defer st.Close(context.Background())

	srv := server.New(st, server.WithLogger(c.Logger), server.WithWorkers(cfg.Serve.Workers))
	srv.Start(ctx)
	defer srv.Close()

	return server.Run(ctx, c.Logger, cfg.Serve.Addr, srv.Handler())
}
