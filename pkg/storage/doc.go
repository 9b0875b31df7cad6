// Package storage opens and configures the shared PostgreSQL pool and
// Redis client, and provides the DBTX abstraction that lets stores run
// against either a pool or a transaction.
//
//	db, err := storage.OpenPostgres(ctx, storage.PostgresConfig{URL: cfg.DatabaseURL})
//	err = storage.WithTx(ctx, db, func(tx *sql.Tx) error {
//		// stores built on tx
//	})
package storage
