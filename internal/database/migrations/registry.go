// Package migrations provides database migration management for bsrecorder.
package migrations

// AllMigrations returns all registered migrations in order.
func AllMigrations() []Migration {
	return []Migration{
		migrationBSRecorderSchema(),
	}
}
