package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tagsync/internal/config"
	"tagsync/internal/logger"
	"tagsync/internal/model"
	"tagsync/internal/rest"
	"tagsync/internal/tagcontainer"
	"tagsync/internal/version"
)

var (
	configPath string
	session    *tagcontainer.Session
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "tagctl",
		Short:   "Create and edit the tags of CMS pages and templates",
		Version: version.GetInfo().String(),
		Long: `tagctl talks to the CMS REST API. It creates tags from constructs or
by copying, lists and edits them, and classifies rendered pages.`,
		SilenceUsage:      true,
		PersistentPreRunE: connect,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if session != nil {
				session.Close()
			}
			logger.Sync()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("TAGSYNC_CONFIG"), "config file")

	rootCmd.AddCommand(tagsCmd())
	rootCmd.AddCommand(createCmd())
	rootCmd.AddCommand(createBatchCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(setCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(renderCmd())
	rootCmd.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// connect loads the config, sets up logging and logs in when credentials
// are configured.
func connect(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logger.InitLogger(cfg.Logging.DataDir, "tagctl", cfg.Logging.Level); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	client, err := rest.NewClient(cfg.Backend, logger.Logger)
	if err != nil {
		return err
	}
	session = tagcontainer.NewSession(client,
		tagcontainer.WithLogger(logger.Logger),
		tagcontainer.WithNodeID(cfg.Backend.NodeID),
		// Commands report errors themselves.
		tagcontainer.WithErrorHook(func(error) bool { return true }),
	)

	if cfg.Backend.SID == "" && cfg.Backend.Login != "" {
		if err := session.Login(cmd.Context(), cfg.Backend.Login, cfg.Backend.Password); err != nil {
			return err
		}
	}
	zap.L().Debug("Connected", zap.String("backend", cfg.Backend.BaseURL))
	return nil
}

// containerArg resolves "<page|template> <id>" arguments.
func containerArg(args []string) (*tagcontainer.Container, error) {
	id, err := strconv.Atoi(args[1])
	if err != nil {
		return nil, fmt.Errorf("invalid id %q", args[1])
	}
	return session.Container(model.Kind(args[0]), id)
}
