package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anthonybishopric/relgraph/internal/config"
	"github.com/anthonybishopric/relgraph/pkg/relations"
)

var importFlags struct {
	dsn  string
	wipe bool
}

var importCmd = &cobra.Command{
	Use:   "import [report.csv]",
	Short: "Append relationships from a CSV report to the postgres store",
	Long: "Append relationships from a CSV report to the postgres store.\n\n" +
		"The report has a header line and the columns story_id, event_id, sequence_id,\n" +
		"triplet_id, subject, action, object. Actors and actions are matched by\n" +
		"description and created when missing. Reads stdin when no file is given.",
	Example: `  relgraph import --dsn postgres://localhost/relgraph?sslmode=disable report.csv
  relgraph import --wipe < report.csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()
		dsn := importFlags.dsn
		if dsn == "" && cfg.Store.Driver == config.DriverPostgres {
			dsn = cfg.Store.DSN
		}
		if dsn == "" {
			return errors.New("import needs --dsn or a postgres store.dsn")
		}

		// Parse everything before touching the database so a bad report
		// never wipes existing relations.
		var rows []relations.ImportRow
		if len(args) == 1 {
			rows, err = readImportFile(args[0])
		} else {
			rows, err = relations.ReadImport(os.Stdin)
		}
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
		if importFlags.wipe {
			fmt.Println(warn.Sprint("!"), "wiping existing relationships")
		}
		n, err := store.Import(ctx, rows, importFlags.wipe)
		if err != nil {
			return err
		}
		fmt.Printf("%s added %d new relationships\n", good.Sprint("✓"), n)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFlags.dsn, "dsn", "", "postgres connection string (overrides store.dsn)")
	importCmd.Flags().BoolVar(&importFlags.wipe, "wipe", false, "remove all existing relationships before loading new ones")
}
