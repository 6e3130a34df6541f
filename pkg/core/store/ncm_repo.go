package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"custobrasil/pkg/core/ncm"
)

// NCMRepo stores and serves the NCM reference table.
// With a pool it reads and writes the ncm_reference table; without one it
// falls back to a CSV file under the local cache directory.
//
// Schema:
//
//	CREATE TABLE IF NOT EXISTS ncm_reference (
//	  ncm8 TEXT PRIMARY KEY,
//	  description TEXT,
//	  ii_rate DOUBLE PRECISION,
//	  ipi_rate DOUBLE PRECISION,
//	  utrib_abrev TEXT,
//	  utrib_desc TEXT,
//	  updated_at TIMESTAMPTZ
//	);
type NCMRepo struct {
	pool     *pgxpool.Pool
	filePath string
}

// NewNCMRepo creates a repository. If pool is nil and filePath is empty, the
// fallback CSV lives under .cache/refdata/ncm_reference.csv.
func NewNCMRepo(pool *pgxpool.Pool, filePath string) *NCMRepo {
	if pool == nil && filePath == "" {
		filePath = filepath.Join(".cache", "refdata", "ncm_reference.csv")
	}
	if filePath != "" {
		if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
			fmt.Printf("[WARNING] Check NCM cache dir: %v\n", err)
		}
	}
	return &NCMRepo{pool: pool, filePath: filePath}
}

// SaveTable upserts the full reference table.
func (r *NCMRepo) SaveTable(ctx context.Context, table *ncm.Table) error {
	if r.pool != nil {
		query := `
			INSERT INTO ncm_reference (ncm8, description, ii_rate, ipi_rate, utrib_abrev, utrib_desc, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (ncm8)
			DO UPDATE SET
				description = EXCLUDED.description,
				ii_rate = EXCLUDED.ii_rate,
				ipi_rate = EXCLUDED.ipi_rate,
				utrib_abrev = EXCLUDED.utrib_abrev,
				utrib_desc = EXCLUDED.utrib_desc,
				updated_at = EXCLUDED.updated_at;
		`
		now := time.Now()
		for _, e := range table.Entries() {
			if _, err := r.pool.Exec(ctx, query, e.NCM8, e.Description, e.IIRate, e.IPIRate, e.UTribAbbrev, e.UTribDesc, now); err != nil {
				return fmt.Errorf("store: upsert ncm %s: %w", e.NCM8, err)
			}
		}
		return nil
	}

	f, err := os.Create(r.filePath)
	if err != nil {
		return fmt.Errorf("store: create %s: %w", r.filePath, err)
	}
	defer f.Close()
	if err := table.WriteCSV(f); err != nil {
		return fmt.Errorf("store: write %s: %w", r.filePath, err)
	}
	return nil
}

// Lookup fetches a single entry by dotted or bare NCM code.
func (r *NCMRepo) Lookup(ctx context.Context, code string) (ncm.Entry, error) {
	ncm8, err := ncm.Normalize(code)
	if err != nil {
		return ncm.Entry{}, err
	}

	if r.pool != nil {
		query := `SELECT ncm8, description, ii_rate, ipi_rate, utrib_abrev, utrib_desc FROM ncm_reference WHERE ncm8 = $1`
		var e ncm.Entry
		err := r.pool.QueryRow(ctx, query, ncm8).Scan(
			&e.NCM8, &e.Description, &e.IIRate, &e.IPIRate, &e.UTribAbbrev, &e.UTribDesc)
		if err != nil {
			if err == pgx.ErrNoRows {
				return ncm.Entry{}, fmt.Errorf("store: NCM %s not found", ncm.Dotted(ncm8))
			}
			return ncm.Entry{}, fmt.Errorf("store: lookup %s: %w", ncm8, err)
		}
		return e, nil
	}

	table, err := r.LoadTable(ctx)
	if err != nil {
		return ncm.Entry{}, err
	}
	e, ok := table.Lookup(ncm8)
	if !ok {
		return ncm.Entry{}, fmt.Errorf("store: NCM %s not found", ncm.Dotted(ncm8))
	}
	return e, nil
}

// LoadTable reads the full table into memory for bulk use (scenario rate
// defaulting, report annotation).
func (r *NCMRepo) LoadTable(ctx context.Context) (*ncm.Table, error) {
	if r.pool != nil {
		rows, err := r.pool.Query(ctx, `SELECT ncm8, description, ii_rate, ipi_rate, utrib_abrev, utrib_desc FROM ncm_reference`)
		if err != nil {
			return nil, fmt.Errorf("store: load reference table: %w", err)
		}
		defer rows.Close()

		var entries []ncm.Entry
		for rows.Next() {
			var e ncm.Entry
			if err := rows.Scan(&e.NCM8, &e.Description, &e.IIRate, &e.IPIRate, &e.UTribAbbrev, &e.UTribDesc); err != nil {
				return nil, fmt.Errorf("store: scan reference row: %w", err)
			}
			entries = append(entries, e)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("store: read reference rows: %w", err)
		}
		return ncm.NewTable(entries), nil
	}

	f, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", r.filePath, err)
	}
	defer f.Close()
	table, err := ncm.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("store: parse %s: %w", r.filePath, err)
	}
	return table, nil
}
