// Package database provides the SQLite handle used by the time-tracking
// store.
//
// Open creates the file (and its directory) with WAL journaling and a busy
// timeout, limits the pool to one connection, and pings it. Schema changes
// are applied by Migrate from any fs.FS holding files named
// YYYYMMDD_HHMMSS_name.up.sql / .down.sql; the binary passes the embedded
// set from the top-level migrations package.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
