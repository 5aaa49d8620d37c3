// Command dbpatch brings an existing users table up to date by adding any
// missing profile columns. It never drops or rewrites data.
package main

import (
	"fmt"
	"os"

	"admin-dashboard/backend/internal/models"
	"admin-dashboard/backend/pkg/config"
	"admin-dashboard/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"
	log := logger.New(logConfig)

	db, err := config.NewDB(cfg, log)
	if err != nil {
		log.LogError(err, "Failed to connect to database")
		os.Exit(1)
	}
	if err := config.TestConnection(db); err != nil {
		log.LogError(err, "Database is not reachable")
		os.Exit(1)
	}

	report, err := models.PatchUserColumns(db)
	if err != nil {
		log.LogError(err, "Failed to patch users table")
		os.Exit(1)
	}

	switch {
	case report.CreatedTable:
		fmt.Println("Created users table.")
	case len(report.Added) == 0:
		fmt.Println("Users table is up to date.")
	default:
		for _, col := range report.Added {
			fmt.Printf("Added column %s.\n", col)
		}
		fmt.Printf("Added %d column(s) to users.\n", len(report.Added))
	}
}
