// Package database provides the SQLite store used by the result collector.
//
// The connection is opened with WAL mode and a busy timeout so the
// collector's writer and the status queries do not trip over each other.
// Schema changes are plain SQL files applied in version order and recorded
// in schema_migrations.
//
// Migration files are named <version>_<name>.up.sql and
// <version>_<name>.down.sql, where version is a zero-padded number:
//
//	0001_create_results.up.sql
//	0001_create_results.down.sql
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
