package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ffdc.sales_insights/pkg/database"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [tables...]",
	Short: "Print the columns of the configured (or given) tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		tables := args
		if len(tables) == 0 {
			tables = cfg.Database.Tables
		}

		db, err := database.InitDB(cfg.Database.Path, true)
		if err != nil {
			return err
		}
		defer db.Close()
		store := database.NewStore(db)

		out := cmd.OutOrStdout()
		for i, t := range tables {
			cols, err := store.TableSchema(cmd.Context(), t)
			if err != nil {
				return err
			}
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%s columns:\n", t)
			if len(cols) == 0 {
				fmt.Fprintln(out, "  (table not found)")
			}
			for _, c := range cols {
				fmt.Fprintf(out, "  %s\n", c)
			}
		}
		return nil
	},
}

var sampleLimit int

var sampleCmd = &cobra.Command{
	Use:   "sample <table>",
	Short: "Print the first rows of a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.InitDB(cfg.Database.Path, true)
		if err != nil {
			return err
		}
		defer db.Close()

		rows, err := database.NewStore(db).Sample(cmd.Context(), args[0], sampleLimit)
		if err != nil {
			return err
		}
		for _, r := range rows {
			b, err := json.Marshal(r)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
		}
		return nil
	},
}

func init() {
	sampleCmd.Flags().IntVarP(&sampleLimit, "limit", "n", 5, "number of rows")
}
