package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/renderworks/plantops/pkg/types"
)

// SQLite is a Backend storing records in a single SQLite file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and runs migrations.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer; keeps ":memory:" databases on a single connection too.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	slog.Info("store: opened sqlite database", "path", path)
	return s, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// schemaVersion returns the applied migration version. A fresh database,
// without a schema_version table or with an empty one, is at version 0.
func (s *SQLite) schemaVersion() (int, error) {
	var tables int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'").Scan(&tables)
	if err != nil {
		return 0, fmt.Errorf("read schema: %w", err)
	}
	if tables == 0 {
		return 0, nil
	}

	var version int
	err = s.db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func (s *SQLite) migrate() error {
	version, err := s.schemaVersion()
	if err != nil {
		return err
	}

	if version < 1 {
		_, err := s.db.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS cooking_cycles (
				id         TEXT PRIMARY KEY,
				factory_id TEXT NOT NULL,
				date       TEXT NOT NULL,
				start_time INTEGER NOT NULL,
				end_time   INTEGER,
				created_at TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_cycles_factory_date ON cooking_cycles(factory_id, date);

			CREATE TABLE IF NOT EXISTS downtime (
				id             TEXT PRIMARY KEY,
				factory_id     TEXT NOT NULL,
				date           TEXT NOT NULL,
				reason         TEXT NOT NULL DEFAULT '',
				start_time     TEXT,
				end_time       TEXT,
				duration_hours REAL NOT NULL DEFAULT 0,
				created_at     TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_downtime_factory_date ON downtime(factory_id, date);

			CREATE TABLE IF NOT EXISTS production_entries (
				id         TEXT PRIMARY KEY,
				factory_id TEXT NOT NULL,
				date       TEXT NOT NULL,
				input_kg   REAL NOT NULL DEFAULT 0,
				output_kg  REAL NOT NULL DEFAULT 0,
				created_at TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_production_factory_date ON production_entries(factory_id, date);

			CREATE TABLE IF NOT EXISTS material_receipts (
				id          TEXT PRIMARY KEY,
				factory_id  TEXT NOT NULL,
				date        TEXT NOT NULL,
				supplier    TEXT NOT NULL DEFAULT '',
				quantity_kg REAL NOT NULL DEFAULT 0,
				created_at  TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_receipts_factory_date ON material_receipts(factory_id, date);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		slog.Info("store: applied migration", "version", 1)
	}
	return nil
}

// Load reads every persisted record.
func (s *SQLite) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	var err error
	if snap.Cycles, err = s.loadCycles(ctx); err != nil {
		return nil, err
	}
	if snap.Downtime, err = s.loadDowntime(ctx); err != nil {
		return nil, err
	}
	if snap.Production, err = s.loadProduction(ctx); err != nil {
		return nil, err
	}
	if snap.Receipts, err = s.loadReceipts(ctx); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *SQLite) loadCycles(ctx context.Context) ([]types.CookingCycle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, factory_id, date, start_time, end_time, created_at FROM cooking_cycles`)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	var out []types.CookingCycle
	for rows.Next() {
		var (
			c       types.CookingCycle
			start   int64
			end     sql.NullInt64
			created sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.FactoryID, &c.Date, &start, &end, &created); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		c.Start = types.TimeOfDay(start)
		if end.Valid {
			e := types.TimeOfDay(end.Int64)
			c.End = &e
		}
		if c.CreatedAt, err = parseInstant(created); err != nil {
			return nil, fmt.Errorf("cycle %s created_at: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLite) loadDowntime(ctx context.Context) ([]types.DowntimeInterval, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, factory_id, date, reason, start_time, end_time, duration_hours, created_at FROM downtime`)
	if err != nil {
		return nil, fmt.Errorf("query downtime: %w", err)
	}
	defer rows.Close()

	var out []types.DowntimeInterval
	for rows.Next() {
		var (
			d                   types.DowntimeInterval
			start, end, created sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.FactoryID, &d.Date, &d.Reason, &start, &end, &d.DurationHours, &created); err != nil {
			return nil, fmt.Errorf("scan downtime: %w", err)
		}
		if d.Start, err = parseInstant(start); err != nil {
			return nil, fmt.Errorf("downtime %s start_time: %w", d.ID, err)
		}
		if d.End, err = parseInstant(end); err != nil {
			return nil, fmt.Errorf("downtime %s end_time: %w", d.ID, err)
		}
		if d.CreatedAt, err = parseInstant(created); err != nil {
			return nil, fmt.Errorf("downtime %s created_at: %w", d.ID, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLite) loadProduction(ctx context.Context) ([]types.ProductionEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, factory_id, date, input_kg, output_kg, created_at FROM production_entries`)
	if err != nil {
		return nil, fmt.Errorf("query production: %w", err)
	}
	defer rows.Close()

	var out []types.ProductionEntry
	for rows.Next() {
		var (
			p       types.ProductionEntry
			created sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.FactoryID, &p.Date, &p.InputKg, &p.OutputKg, &created); err != nil {
			return nil, fmt.Errorf("scan production: %w", err)
		}
		if p.CreatedAt, err = parseInstant(created); err != nil {
			return nil, fmt.Errorf("production %s created_at: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLite) loadReceipts(ctx context.Context) ([]types.MaterialReceipt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, factory_id, date, supplier, quantity_kg, created_at FROM material_receipts`)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}
	defer rows.Close()

	var out []types.MaterialReceipt
	for rows.Next() {
		var (
			r       types.MaterialReceipt
			created sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.FactoryID, &r.Date, &r.Supplier, &r.QuantityKg, &created); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		if r.CreatedAt, err = parseInstant(created); err != nil {
			return nil, fmt.Errorf("receipt %s created_at: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveCycle inserts or replaces a cycle.
func (s *SQLite) SaveCycle(ctx context.Context, c types.CookingCycle) error {
	var end sql.NullInt64
	if c.End != nil {
		end = sql.NullInt64{Int64: int64(*c.End), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cooking_cycles (id, factory_id, date, start_time, end_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			factory_id = excluded.factory_id,
			date       = excluded.date,
			start_time = excluded.start_time,
			end_time   = excluded.end_time,
			created_at = excluded.created_at`,
		c.ID, c.FactoryID, c.Date, int64(c.Start), end, formatInstant(c.CreatedAt))
	return err
}

// DeleteCycle removes a cycle row.
func (s *SQLite) DeleteCycle(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cooking_cycles WHERE id = ?`, id)
	return err
}

// SaveDowntime inserts or replaces a downtime record.
func (s *SQLite) SaveDowntime(ctx context.Context, d types.DowntimeInterval) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO downtime (id, factory_id, date, reason, start_time, end_time, duration_hours, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			factory_id     = excluded.factory_id,
			date           = excluded.date,
			reason         = excluded.reason,
			start_time     = excluded.start_time,
			end_time       = excluded.end_time,
			duration_hours = excluded.duration_hours,
			created_at     = excluded.created_at`,
		d.ID, d.FactoryID, d.Date, d.Reason,
		formatInstant(d.Start), formatInstant(d.End), d.DurationHours, formatInstant(d.CreatedAt))
	return err
}

// DeleteDowntime removes a downtime row.
func (s *SQLite) DeleteDowntime(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM downtime WHERE id = ?`, id)
	return err
}

// SaveProduction inserts or replaces a production entry.
func (s *SQLite) SaveProduction(ctx context.Context, p types.ProductionEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO production_entries (id, factory_id, date, input_kg, output_kg, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			factory_id = excluded.factory_id,
			date       = excluded.date,
			input_kg   = excluded.input_kg,
			output_kg  = excluded.output_kg,
			created_at = excluded.created_at`,
		p.ID, p.FactoryID, p.Date, p.InputKg, p.OutputKg, formatInstant(p.CreatedAt))
	return err
}

// DeleteProduction removes a production row.
func (s *SQLite) DeleteProduction(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM production_entries WHERE id = ?`, id)
	return err
}

// SaveReceipt inserts or replaces a material receipt.
func (s *SQLite) SaveReceipt(ctx context.Context, r types.MaterialReceipt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO material_receipts (id, factory_id, date, supplier, quantity_kg, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			factory_id  = excluded.factory_id,
			date        = excluded.date,
			supplier    = excluded.supplier,
			quantity_kg = excluded.quantity_kg,
			created_at  = excluded.created_at`,
		r.ID, r.FactoryID, r.Date, r.Supplier, r.QuantityKg, formatInstant(r.CreatedAt))
	return err
}

// DeleteReceipt removes a receipt row.
func (s *SQLite) DeleteReceipt(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM material_receipts WHERE id = ?`, id)
	return err
}

func formatInstant(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339Nano), Valid: true}
}

func parseInstant(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
