package postgres

import "embed"

// Migrations holds the schema of the default outbox and command tables.
// Custom table names configured in relay.outbox.table and
// relay.commands.table must be created by the owning service with the
// same columns.
//
//go:embed migrations/*.sql
var Migrations embed.FS

const (
	MigrationsDir   = "migrations"
	MigrationsTable = "relay_schema_migrations"
)
