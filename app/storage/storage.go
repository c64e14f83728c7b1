// Package storage provides the sqlite-backed store for the badword corpus
// metadata. The corpus is written by the import path and read once at startup,
// the detection core treats it as read-only input for the process lifetime.
package storage

import (
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver loaded here
)

// NewSqlite creates a new sqlite database connection for the given file,
// ":memory:" makes an ephemeral database for tests.
func NewSqlite(file string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", file)
	if err != nil {
		return nil, err
	}
	if err := setSqlitePragma(db); err != nil {
		return nil, err
	}
	return db, nil
}

func setSqlitePragma(db *sqlx.DB) error {
	pragmas := map[string]string{
		"busy_timeout": "5000",
	}
	for name, value := range pragmas {
		if _, err := db.Exec("PRAGMA " + name + " = " + value); err != nil {
			return err
		}
	}
	return nil
}
