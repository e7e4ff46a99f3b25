package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the Postgres schema for the ranking and question tables.
var Migrations = migrate.NewMigrations()
