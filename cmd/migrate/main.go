package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"

	"crewsignal/internal/migrations"

	_ "github.com/mattn/go-sqlite3"
)

// Applies the current schema to a database file out of band, for
// provisioning a database before the service first starts or after a
// restore.
func main() {
	dbPath := flag.String("db", "./crewsignal.db", "Path to the database file")
	flag.Parse()

	db, err := sql.Open("sqlite3", *dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	schema, err := migrations.GetInitialSchema()
	if err != nil {
		log.Fatalf("Failed to load schema: %v", err)
	}

	if _, err := db.Exec(schema); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	fmt.Printf("Schema applied to %s\n", *dbPath)
}
