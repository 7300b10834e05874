package source

import (
	"context"
	"database/sql"

	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/errors"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/ref"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/sqlite"
)

const versesSchema = `CREATE TABLE IF NOT EXISTS verses (
	book    TEXT    NOT NULL,
	chapter INTEGER NOT NULL,
	verse   INTEGER NOT NULL,
	text    TEXT    NOT NULL,
	PRIMARY KEY (book, chapter, verse)
)`

// LoadSQLite reads the verses(book, chapter, verse, text) table of the
// database at path. The book column may hold names or slugs.
func LoadSQLite(path string) (*Dataset, error) {
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer db.Close()

	d, err := ReadSQLite(context.Background(), db)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset %s", path)
	}
	return d, nil
}

// ReadSQLite builds a Dataset from the verses table of db.
func ReadSQLite(ctx context.Context, db *sql.DB) (*Dataset, error) {
	rows, err := db.QueryContext(ctx, `SELECT book, chapter, verse, text FROM verses`)
	if err != nil {
		return nil, errors.NewIO("query", "verses", err)
	}
	defer rows.Close()

	verses := make(map[string]string)
	for rows.Next() {
		var (
			book           string
			chapter, verse int
			text           string
		)
		if err := rows.Scan(&book, &chapter, &verse, &text); err != nil {
			return nil, errors.NewIO("scan", "verses", err)
		}
		verses[ref.New(book, chapter, verse).Key()] = text
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIO("read", "verses", err)
	}
	return NewDataset(verses), nil
}

// WriteSQLite creates the verses table in db if needed and upserts every
// verse whose key parses, in a single transaction.
func (d *Dataset) WriteSQLite(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, versesSchema); err != nil {
		return errors.NewIO("create", "verses", err)
	}

	return sqlite.WithTx(ctx, db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO verses (book, chapter, verse, text) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return errors.NewIO("prepare", "verses", err)
		}
		defer stmt.Close()

		for _, key := range d.Keys() {
			r, ok := ref.ParseKey(key)
			if !ok {
				continue
			}
			if _, err := stmt.ExecContext(ctx, r.Slug(), r.Chapter(), r.Verse(), d.verses[key]); err != nil {
				return errors.NewIO("insert", key, err)
			}
		}
		return nil
	})
}
