package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kisernl/flashcard-app/internal/apperr"
)

// DB is the SQLite-backed Store. A single *DB handle is opened at startup
// and shared; sql.DB serializes access internally.
type DB struct {
	conn *sql.DB
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// Open opens (or creates) the SQLite database and applies pending schema
// migrations. Failures wrap apperr.ErrStoreUnavailable.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w: %v", apperr.ErrStoreUnavailable, err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w: %v", apperr.ErrStoreUnavailable, err)
	}
	if err := applyMigrations(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func spec(collection string) (collectionSpec, error) {
	cs, ok := collections[collection]
	if !ok {
		return collectionSpec{}, fmt.Errorf("store: unknown collection %q", collection)
	}
	return cs, nil
}

// GetAll returns every record in the collection, ordered by id for stable
// iteration.
func (db *DB) GetAll(ctx context.Context, collection string) ([]Record, error) {
	cs, err := spec(collection)
	if err != nil {
		return nil, err
	}
	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf(`SELECT id, doc FROM %s ORDER BY id`, cs.table))
	if err != nil {
		return nil, fmt.Errorf("store: get all %s: %w", collection, err)
	}
	defer rows.Close()
	return scanRecords(rows, collection)
}

// GetByKey returns the record with the given id, or nil when absent.
func (db *DB) GetByKey(ctx context.Context, collection, id string) (*Record, error) {
	cs, err := spec(collection)
	if err != nil {
		return nil, err
	}
	var rec Record
	var doc string
	err = db.conn.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT id, doc FROM %s WHERE id = ?`, cs.table), id,
	).Scan(&rec.ID, &doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get %s/%s: %w", collection, id, err)
	}
	rec.Doc = []byte(doc)
	return &rec, nil
}

// GetByIndex returns all records whose indexed field equals value.
func (db *DB) GetByIndex(ctx context.Context, collection, index, value string) ([]Record, error) {
	cs, err := spec(collection)
	if err != nil {
		return nil, err
	}
	idx, ok := cs.indexes[index]
	if !ok {
		return nil, fmt.Errorf("store: unknown index %q on %s", index, collection)
	}
	rows, err := db.conn.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, doc FROM %s WHERE %s = ? ORDER BY id`, cs.table, idx.column), value)
	if err != nil {
		return nil, fmt.Errorf("store: get %s by %s: %w", collection, index, err)
	}
	defer rows.Close()
	return scanRecords(rows, collection)
}

// Put upserts a record by primary key. The indexed columns are re-extracted
// from the document on every write so index lookups stay consistent.
func (db *DB) Put(ctx context.Context, collection string, rec Record) error {
	cs, err := spec(collection)
	if err != nil {
		return err
	}
	if rec.ID == "" {
		return fmt.Errorf("store: put %s: empty id", collection)
	}

	names := sortedIndexNames(cs)
	specs := make([]indexSpec, len(names))
	for i, n := range names {
		specs[i] = cs.indexes[n]
	}
	values := indexValues(rec.Doc, specs)

	cols := []string{"id"}
	args := []any{rec.ID}
	var updates []string
	for i, s := range specs {
		cols = append(cols, s.column)
		args = append(args, values[i])
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", s.column, s.column))
	}
	cols = append(cols, "doc")
	args = append(args, string(rec.Doc))
	updates = append(updates, "doc = excluded.doc")

	q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s`,
		cs.table,
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
		strings.Join(updates, ", "))

	if _, err := db.conn.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("store: put %s/%s: %w", collection, rec.ID, err)
	}
	return nil
}

// Delete removes a record by id. Deleting an absent record is not an error.
func (db *DB) Delete(ctx context.Context, collection, id string) error {
	cs, err := spec(collection)
	if err != nil {
		return err
	}
	if _, err := db.conn.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, cs.table), id); err != nil {
		return fmt.Errorf("store: delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func scanRecords(rows *sql.Rows, collection string) ([]Record, error) {
	out := []Record{}
	for rows.Next() {
		var rec Record
		var doc string
		if err := rows.Scan(&rec.ID, &doc); err != nil {
			return nil, fmt.Errorf("store: scan %s row: %w", collection, err)
		}
		rec.Doc = []byte(doc)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func sortedIndexNames(cs collectionSpec) []string {
	names := make([]string, 0, len(cs.indexes))
	for n := range cs.indexes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
