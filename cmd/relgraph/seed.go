package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anthonybishopric/relgraph/internal/config"
	"github.com/anthonybishopric/relgraph/pkg/relations"
)

var seedFlags struct {
	dsn  string
	file string
}

var seedCmd = &cobra.Command{
	Use:     "seed",
	Short:   "Create the postgres schema and replace its contents with a seed file",
	Example: "  relgraph seed --dsn postgres://localhost/relgraph?sslmode=disable --file seed.json",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()
		dsn := seedFlags.dsn
		if dsn == "" && cfg.Store.Driver == config.DriverPostgres {
			dsn = cfg.Store.DSN
		}
		if dsn == "" {
			return errors.New("seed needs --dsn or a postgres store.dsn")
		}

		seed, err := readSeedFile(seedFlags.file)
		if err != nil {
			return err
		}
		store, err := relations.NewPostgresStore(dsn)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		if err := store.Load(ctx, seed); err != nil {
			return fmt.Errorf("load seed: %w", err)
		}
		fmt.Printf("%s loaded %d actors, %d actions, %d stories, %d relations\n",
			good.Sprint("✓"), len(seed.Actors), len(seed.Actions), len(seed.Stories), len(seed.Relations))
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFlags.dsn, "dsn", "", "postgres connection string (overrides store.dsn)")
	seedCmd.Flags().StringVar(&seedFlags.file, "file", "", "JSON seed file")
	_ = seedCmd.MarkFlagRequired("file")
}
