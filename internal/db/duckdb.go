// Package db keeps an in-memory DuckDB mirror of loaded cantons and
// computed stat tables so they can be inspected with SQL.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"
)

// Config holds database configuration. An empty Path opens an in-memory
// database.
type Config struct {
	Path string
}

// Canton is one row of the cantons table.
type Canton struct {
	Name    string
	AreaKm2 float64
}

// Stat is one row of the canton_road_stats table.
type Stat struct {
	Canton   string
	LengthKm float64
	Density  float64
}

// Warehouse wraps the DuckDB connection.
type Warehouse struct {
	db *sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS cantons (
		dataset VARCHAR NOT NULL,
		canton VARCHAR NOT NULL,
		area_km2 DOUBLE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS canton_road_stats (
		dataset VARCHAR NOT NULL,
		category VARCHAR NOT NULL,
		canton VARCHAR NOT NULL,
		length_km DOUBLE NOT NULL,
		density DOUBLE NOT NULL
	)`,
}

// Open opens the database and creates the schema.
func Open(cfg Config) (*Warehouse, error) {
	conn, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	for _, stmt := range schema {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return &Warehouse{db: conn}, nil
}

// DB returns the underlying connection for ad-hoc queries.
func (w *Warehouse) DB() *sql.DB {
	if w == nil {
		return nil
	}
	return w.db
}

// Close closes the database connection.
func (w *Warehouse) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

// PutCantons replaces the cantons of dataset.
func (w *Warehouse) PutCantons(ctx context.Context, dataset string, cantons []Canton) error {
	return w.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cantons WHERE dataset = ?`, dataset); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO cantons (dataset, canton, area_km2) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, c := range cantons {
			if _, err := stmt.ExecContext(ctx, dataset, c.Name, c.AreaKm2); err != nil {
				return err
			}
		}
		return nil
	})
}

// PutStats replaces the stat table of one dataset and category.
func (w *Warehouse) PutStats(ctx context.Context, dataset, category string, stats []Stat) error {
	return w.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM canton_road_stats WHERE dataset = ? AND category = ?`, dataset, category); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO canton_road_stats (dataset, category, canton, length_km, density) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, s := range stats {
			if _, err := stmt.ExecContext(ctx, dataset, category, s.Canton, s.LengthKm, s.Density); err != nil {
				return err
			}
		}
		return nil
	})
}

// Stats reads back the stat table of one dataset and category.
func (w *Warehouse) Stats(ctx context.Context, dataset, category string) ([]Stat, error) {
	rows, err := w.db.QueryContext(ctx,
		`SELECT canton, length_km, density FROM canton_road_stats WHERE dataset = ? AND category = ? ORDER BY rowid`,
		dataset, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Stat
	for rows.Next() {
		var s Stat
		if err := rows.Scan(&s.Canton, &s.LengthKm, &s.Density); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DropDataset removes every row of dataset.
func (w *Warehouse) DropDataset(ctx context.Context, dataset string) error {
	return w.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM canton_road_stats WHERE dataset = ?`, dataset); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM cantons WHERE dataset = ?`, dataset)
		return err
	})
}

func (w *Warehouse) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
