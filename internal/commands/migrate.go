package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/fieldops/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Create or update the database schema. With --seed, demo accounts and
missions are inserted into an empty database.`,
	Args: cobra.NoArgs,
	RunE: withApp(runMigrate),
}

func init() {
	migrateCmd.Flags().Bool("seed", false, "insert demo accounts and missions")
}

// runMigrate relies on store.Open migrating the schema.
func runMigrate(cmd *cobra.Command, args []string, rt *app) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Schema up to date (%s)\n", rt.cfg.DatabaseDriver)

	seed, _ := cmd.Flags().GetBool("seed")
	if !seed {
		return nil
	}

	seeded, err := store.Seed(cmd.Context(), rt.store)
	if err != nil {
		return err
	}
	if seeded {
		fmt.Fprintln(out, "Seeded demo accounts and missions")
	} else {
		fmt.Fprintln(out, "Database already contains data, seed skipped")
	}
	return nil
}
