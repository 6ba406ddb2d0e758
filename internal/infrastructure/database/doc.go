// Package database provides the SQLite connection behind the audit trail.
//
// It opens the database with WAL mode and a busy timeout, keeps a single
// connection (SQLite has one writer), and applies versioned migrations from
// any fs.FS, normally the embedded migrations package.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// All queries use parameterised statements. The database file is created
// with mode 0600.
package database
