// Package db exposes the current overlays to ad-hoc SQL through an
// in-memory DuckDB database. Nothing is written to disk; the overlays
// table is rebuilt from an editor snapshot before every query.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/joeblew999/plat-overlay/internal/editor"
	"github.com/joeblew999/plat-overlay/internal/export"
	"github.com/joeblew999/plat-overlay/internal/overlay"
)

// Table is the name queries select from.
const Table = "overlays"

const schema = `CREATE TABLE IF NOT EXISTS overlays (
	ref       INTEGER PRIMARY KEY,
	kind      VARCHAR NOT NULL,
	state     VARCHAR NOT NULL,
	color     VARCHAR,
	draggable BOOLEAN NOT NULL,
	lat       DOUBLE NOT NULL,
	lon       DOUBLE NOT NULL,
	radius    DOUBLE,
	vertices  INTEGER NOT NULL,
	north     DOUBLE NOT NULL,
	south     DOUBLE NOT NULL,
	west      DOUBLE NOT NULL,
	east      DOUBLE NOT NULL,
	wkt       VARCHAR NOT NULL
)`

// Store is an in-memory DuckDB holding the latest overlay snapshot.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Result is the outcome of a query.
type Result struct {
	Columns []string
	Rows    []map[string]any
}

// Open creates the in-memory database and its schema.
func Open(ctx context.Context) (*Store, error) {
	conn, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: conn}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Query loads items into the overlays table and runs query against it.
func (s *Store) Query(ctx context.Context, items []editor.Item, query string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(ctx, items); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	res := &Result{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		res.Rows = append(res.Rows, row)
	}
	return res, rows.Err()
}

// Tables lists the tables visible to queries.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// load replaces the table contents with items in one transaction.
func (s *Store) load(ctx context.Context, items []editor.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	// a previous query may have dropped or altered the table
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+Table); err != nil {
		return fmt.Errorf("reset %s: %w", Table, err)
	}
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create %s: %w", Table, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO overlays
		(ref, kind, state, color, draggable, lat, lon, radius, vertices, north, south, west, east, wkt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		o := it.Overlay
		anchor, b := o.Anchor(), o.Bounds()
		var color sql.NullString
		if c := o.Tint(); c != "" {
			color = sql.NullString{String: c, Valid: true}
		}
		var radius sql.NullFloat64
		vertices := 1
		switch v := o.(type) {
		case overlay.Circle:
			radius = sql.NullFloat64{Float64: v.Radius, Valid: true}
		case overlay.Polygon:
			vertices = len(v.Vertices)
		}
		if _, err := stmt.ExecContext(ctx,
			int(it.Ref), o.Kind().String(), it.State.String(), color, o.IsDraggable(),
			anchor.Lat, anchor.Lon, radius, vertices,
			b.North(), b.South(), b.West(), b.East(), export.WKT(o),
		); err != nil {
			return fmt.Errorf("insert overlay %d: %w", it.Ref, err)
		}
	}
	return tx.Commit()
}
