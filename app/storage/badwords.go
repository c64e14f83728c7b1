package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/jmoiron/sqlx"

	"github.com/wolf-whitz/wzdetect/lib/detect"
)

// Badwords is a storage for the badword corpus metadata, keyed by the word itself.
type Badwords struct {
	db   *sqlx.DB
	lock *sync.RWMutex
}

// NewBadwords creates the badwords storage and its schema if needed.
func NewBadwords(db *sqlx.DB) (*Badwords, error) {
	if db == nil {
		return nil, fmt.Errorf("db connection is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	schema := `
        CREATE TABLE IF NOT EXISTS badwords (
            word TEXT PRIMARY KEY,
            category TEXT NOT NULL,
            language TEXT NOT NULL,
            level INTEGER NOT NULL DEFAULT 1,
            timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_badwords_category ON badwords(category);
        CREATE INDEX IF NOT EXISTS idx_badwords_language ON badwords(language);
    `
	if _, err = tx.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &Badwords{db: db, lock: &sync.RWMutex{}}, nil
}

// All reads the complete corpus. Fails on an empty corpus and reports every
// malformed row, loading a partial corpus is not supported.
func (b *Badwords) All(ctx context.Context) ([]detect.Entry, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	var entries []detect.Entry
	err := b.db.SelectContext(ctx, &entries, "SELECT word, category, language, level FROM badwords ORDER BY word")
	if err != nil {
		return nil, fmt.Errorf("failed to read badwords: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("badwords storage is empty")
	}

	var invalid *multierror.Error
	for _, e := range entries {
		if e.Word == "" {
			invalid = multierror.Append(invalid, fmt.Errorf("badword with empty word"))
		}
		if e.Category == "" {
			invalid = multierror.Append(invalid, fmt.Errorf("badword %q has empty category", e.Word))
		}
		if e.Level < 0 {
			invalid = multierror.Append(invalid, fmt.Errorf("badword %q has negative level %d", e.Word, e.Level))
		}
	}
	if err := invalid.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("malformed badwords storage: %w", err)
	}
	return entries, nil
}

// Import loads badword entries from a json-lines reader, one object per line:
// {"word":"...", "category":"...", "language":"...", "level":1}
// Existing words are replaced. Returns the number of imported entries.
func (b *Badwords) Import(ctx context.Context, r io.Reader) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	count := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e detect.Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return 0, fmt.Errorf("failed to parse badword line %d: %w", count+1, err)
		}
		if e.Word == "" {
			return 0, fmt.Errorf("badword line %d has empty word", count+1)
		}
		if e.Language == "" {
			e.Language = "en"
		}
		query := `INSERT OR REPLACE INTO badwords (word, category, language, level) VALUES (?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, query, e.Word, e.Category, e.Language, e.Level); err != nil {
			return 0, fmt.Errorf("failed to insert badword %q: %w", e.Word, err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read import data: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return count, nil
}

// Count returns the number of badwords in the storage.
func (b *Badwords) Count(ctx context.Context) (int, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	var count int
	if err := b.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM badwords"); err != nil {
		return 0, fmt.Errorf("failed to count badwords: %w", err)
	}
	return count, nil
}
