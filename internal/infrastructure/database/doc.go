// Package database provides SQLite connectivity for the gridctl device registry.
//
// This package manages:
//   - Opening the database with WAL mode and a busy timeout
//   - Embedded, versioned schema migrations
//   - Health checks and connection lifecycle
//
// All queries elsewhere in gridctl use parameterised statements. The database
// file is created with 0600 permissions.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
