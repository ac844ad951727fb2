package database

import (
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := initTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Meters and assignment sets are stored as JSON text, matching the shared
// store layout every client replicates from.
func initTables(db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE,
			password TEXT,
			full_name TEXT,
			role TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS industries (
			id TEXT PRIMARY KEY,
			name TEXT,
			subscription_id TEXT,
			city TEXT,
			address TEXT,
			meters TEXT,
			allowed_daily_consumption NUMERIC
		)`,
		`CREATE TABLE IF NOT EXISTS readings (
			id TEXT PRIMARY KEY,
			industry_id TEXT,
			meter_id TEXT,
			timestamp BIGINT,
			value NUMERIC,
			image_ref TEXT,
			recorded_by TEXT,
			is_manual BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS assignments (
			username TEXT PRIMARY KEY,
			industries TEXT
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
