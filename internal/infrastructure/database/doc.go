// Package database wraps the SQLite handle used by every Builder Core
// repository (users, profiles, refresh tokens, templates).
//
// The database opens in WAL mode with STRICT tables, a 0600 file mode,
// and a single-connection pool. SQLite serialises writers regardless of
// pool size, so one connection keeps SQLITE_BUSY out of normal operation.
//
// Schema changes ship as embedded migration pairs (.up.sql / .down.sql)
// under migrations/ and are applied at startup:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive. New columns are nullable or carry a DEFAULT,
// and columns are never dropped or renamed outside a major release, so
// an older binary can still read a newer file after a rollback.
package database
