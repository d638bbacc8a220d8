package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/market-intel/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the sector/dimension taxonomy",
	Long:  "Loads the built-in robotics taxonomy, or a custom one from a YAML file. Seeding is idempotent.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		file, _ := cmd.Flags().GetString("file")
		tax := store.DefaultTaxonomy()
		if file != "" {
			tax, err = store.LoadTaxonomy(file)
			if err != nil {
				return err
			}
		}

		result, err := st.SeedTaxonomy(ctx, tax)
		if err != nil {
			return eris.Wrap(err, "seed")
		}

		fmt.Printf("Seeded %d sector(s), %d subcategorie(s), %d dimension(s)\n",
			result.SectorsCreated, result.SubcategoriesCreated, result.DimensionsCreated)
		return nil
	},
}

func init() {
	seedCmd.Flags().String("file", "", "taxonomy YAML file (default: built-in robotics taxonomy)")
	rootCmd.AddCommand(seedCmd)
}
