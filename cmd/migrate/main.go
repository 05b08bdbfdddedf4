package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"sentinal-social/config"
	"sentinal-social/internal/repository/postgres"
	"sentinal-social/pkg/database"
)

const usage = `
Sentinal Social - Database CLI Tool

Usage:
  migrate [command]

Commands:
  up          Create or update all tables
  status      Show database connection status and table counts
  reset       Drop all tables and re-run migrations (DANGEROUS)
  truncate    Truncate all tables (DANGEROUS)

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go status
`

func main() {
	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	cfg := config.LoadConfig()
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer database.Close(db)

	switch command {
	case "up":
		log.Println("Running migrations...")
		if err := postgres.Migrate(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed")
	case "status":
		for _, table := range postgres.Tables {
			if !database.TableExists(db, table) {
				log.Printf("Table %-28s does not exist", table)
				continue
			}
			count, err := database.TableCount(db, table)
			if err != nil {
				log.Printf("Error counting %s: %v", table, err)
				continue
			}
			log.Printf("Table %-28s exists (%d rows)", table, count)
		}
	case "reset":
		log.Println("Dropping all tables...")
		if err := database.DropTables(db, postgres.Tables...); err != nil {
			log.Fatalf("Drop failed: %v", err)
		}
		if err := postgres.Migrate(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Reset completed")
	case "truncate":
		if err := database.TruncateTables(db, postgres.Tables...); err != nil {
			log.Fatalf("Truncate failed: %v", err)
		}
		log.Println("All tables truncated")
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
