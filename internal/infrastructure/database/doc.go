// Package database opens the SQLite file behind the delivery spool and
// applies its schema.
//
// The pool holds a single connection. Migrations are read from any fs.FS,
// normally the embedded migrations.FS, and each runs in its own
// transaction. The database file is chmod 0600 after creation.
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Spool.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	err = db.Migrate(ctx, migrations.FS)
package database
