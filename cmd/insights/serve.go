package main

import (
	"database/sql"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ffdc.sales_insights/pkg/database"
	"ffdc.sales_insights/pkg/qa"
	"ffdc.sales_insights/pkg/sqlgen"
	"ffdc.sales_insights/web"
)

var noUpload bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question widget and the /ask endpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx := cmd.Context()

		store, writer, err := openDatabases(!noUpload)
		if err != nil {
			return err
		}
		defer store.DB().Close()
		if writer != nil {
			defer writer.Close()
		}

		if ok, err := store.IsDBPopulated(ctx, cfg.Database.Tables); err != nil || !ok {
			log.Warn("configured tables are missing, run 'insights load' first",
				zap.Strings("tables", cfg.Database.Tables), zap.Error(err))
		}

		gen, err := sqlgen.New(ctx, cfg.Generator)
		if err != nil {
			return err
		}
		log.Info("sql generator ready", zap.String("generator", gen.Name()))

		svc := qa.NewService(store, gen, cfg.Database.Tables, log)
		return web.StartServer(ctx, cfg, web.Deps{
			Service: svc,
			Store:   store,
			Writer:  writer,
			Logger:  log,
		})
	},
}

// openDatabases opens the query handle and, when uploads are enabled, the
// writable handle used by the upload route. The writer is opened first so a
// fresh install gets its database file.
func openDatabases(withWriter bool) (*database.Store, *sql.DB, error) {
	var writer *sql.DB
	if withWriter {
		w, err := database.InitDB(cfg.Database.Path, false)
		if err != nil {
			return nil, nil, err
		}
		writer = w
	}

	db, err := database.InitDB(cfg.Database.Path, cfg.Database.ReadOnly)
	if err != nil {
		if writer != nil {
			writer.Close()
		}
		return nil, nil, err
	}
	return database.NewStore(db), writer, nil
}

func init() {
	serveCmd.Flags().BoolVar(&noUpload, "no-upload", false, "disable the CSV upload endpoint")
}
