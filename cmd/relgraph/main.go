// Command relgraph serves and renders the relationship graph.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/anthonybishopric/relgraph/internal/config"
)

var version = "0.3.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "relgraph",
	Short: "relgraph: explore who did what to whom",
	Long: brand.Sprint("relgraph") + ": a force-directed graph of actors and their interactions\n" +
		subtle.Sprint("Serve the interactive viewer, render snapshots, load a database"),
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML config file")
	rootCmd.AddCommand(serveCmd, renderCmd, seedCmd, importCmd)
}

// setup loads the configuration and builds its logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		bad.Fprintf(os.Stderr, "relgraph: %v\n", err)
		os.Exit(1)
	}
}
