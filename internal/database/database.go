package database

import (
	"database/sql"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite" // SQLite driver
)

// New creates a new database connection pool.
func New(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dataSourceName+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs the SQL statements to set up the database schema.
// Username and email uniqueness is enforced here, at the storage layer;
// the services treat the resulting constraint violation as the only
// signal of a duplicate registration.
func Migrate(db *sql.DB) error {
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT NOT NULL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'standard',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS classifications (
		id TEXT NOT NULL PRIMARY KEY,
		username TEXT NOT NULL,
		label TEXT NOT NULL,
		confidence REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS waste_daily (
		day TEXT NOT NULL,
		label TEXT NOT NULL,
		-- recorded weight and classified item count are separate measures
		total_kg REAL NOT NULL DEFAULT 0,
		items INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (day, label)
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT NOT NULL PRIMARY KEY,
		type TEXT NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		username TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(sqlStmt)
	return err
}

// Seed inserts the configured admin account if it does not exist yet.
// Re-running it is a no-op, so the -init entry point is safe to repeat.
func Seed(db *sql.DB, id, username, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = db.Exec(
		`INSERT INTO users (id, username, email, password_hash, role) VALUES (?, ?, ?, ?, 'admin')
		 ON CONFLICT(username) DO NOTHING`,
		id, username, email, string(hash),
	)
	return err
}
