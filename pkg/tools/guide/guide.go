// Package guide serves destination tips from a local SQLite index of
// travel guide passages. The index is built offline from plain text
// guides and queried at plan time with simple keyword overlap, so no
// network or embedding model is involved.
package guide

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

// DefaultTipCount is how many passages RetrieveTips returns when the
// caller does not say.
const DefaultTipCount = 3

const schema = `
CREATE TABLE IF NOT EXISTS passages (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	source  TEXT NOT NULL,
	content TEXT NOT NULL
);`

// Index is a read-write handle on a passage database.
type Index struct {
	db *sql.DB
}

// Open opens or creates the passage database at path.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path+"?_journal=WAL&_sync=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("guide: open index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("guide: create schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the database handle.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// BuildFromDir indexes every .txt file under dir, one passage per
// paragraph. Existing passages are replaced so rebuilds are safe.
func (ix *Index) BuildFromDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("guide: read guide dir: %w", err)
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("guide: begin index build: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM passages`); err != nil {
		return 0, fmt.Errorf("guide: clear passages: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO passages (source, content) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("guide: prepare insert: %w", err)
	}
	defer stmt.Close()

	total := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".txt" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return 0, fmt.Errorf("guide: read %s: %w", e.Name(), err)
		}
		for _, passage := range splitPassages(string(raw)) {
			if _, err := stmt.ExecContext(ctx, e.Name(), passage); err != nil {
				return 0, fmt.Errorf("guide: insert passage: %w", err)
			}
			total++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("guide: commit index build: %w", err)
	}
	return total, nil
}

// splitPassages breaks a guide into paragraph passages, dropping
// blanks.
func splitPassages(text string) []string {
	blocks := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		b = strings.TrimSpace(b)
		if b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Tip is one retrieved passage with its origin file.
type Tip struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

// RetrieveTips returns the k passages sharing the most keywords with
// the query. Passages with no overlap are never returned.
func (ix *Index) RetrieveTips(ctx context.Context, query string, k int) ([]Tip, error) {
	if k <= 0 {
		k = DefaultTipCount
	}
	terms := tokenize(query)
	if len(terms) == 0 {
		return []Tip{}, nil
	}

	rows, err := ix.db.QueryContext(ctx, `SELECT source, content FROM passages`)
	if err != nil {
		return nil, fmt.Errorf("guide: query passages: %w", err)
	}
	defer rows.Close()

	type scored struct {
		tip   Tip
		score int
	}
	var candidates []scored
	for rows.Next() {
		var t Tip
		if err := rows.Scan(&t.Source, &t.Content); err != nil {
			return nil, fmt.Errorf("guide: scan passage: %w", err)
		}
		if s := overlap(terms, tokenize(t.Content)); s > 0 {
			candidates = append(candidates, scored{tip: t, score: s})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("guide: iterate passages: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	tips := make([]Tip, len(candidates))
	for i, c := range candidates {
		tips[i] = c.tip
	}
	return tips, nil
}

// tokenize lowercases and splits on non-letter non-digit runes,
// dropping words too short to carry meaning.
func tokenize(s string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len(w) >= 3 {
			set[w] = struct{}{}
		}
	}
	return set
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}
