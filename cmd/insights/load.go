package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ffdc.sales_insights/pkg/database"
	"ffdc.sales_insights/pkg/loader"
)

var (
	loadTable string
	loadFile  string
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the CSV exports into the SQLite database",
	Long: `Replaces each configured table with the contents of its CSV file.
Use --table and --file together to load a single file instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		datasets := cfg.Datasets
		if loadTable != "" || loadFile != "" {
			if loadTable == "" || loadFile == "" {
				return errors.New("--table and --file must be used together")
			}
			datasets = []loader.Dataset{{Table: loadTable, Path: loadFile}}
		}
		if len(datasets) == 0 {
			return errors.New("no datasets configured")
		}

		db, err := database.InitDB(cfg.Database.Path, false)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := loader.LoadAll(cmd.Context(), db, datasets, log); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d table(s) into %s\n", len(datasets), cfg.Database.Path)
		return nil
	},
}

func init() {
	loadCmd.Flags().StringVar(&loadTable, "table", "", "table to replace")
	loadCmd.Flags().StringVar(&loadFile, "file", "", "CSV file to load")
}
