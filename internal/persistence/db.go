// Package persistence provides SQLite storage for the query history.
package persistence

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/phase-lever/internal/phase"
)

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS queries (
		id TEXT PRIMARY KEY,
		x REAL NOT NULL,
		t REAL NOT NULL,
		kind TEXT NOT NULL,
		region TEXT NOT NULL,
		liquid REAL NOT NULL,
		ti REAL NOT NULL,
		tiu2 REAL NOT NULL,
		u REAL NOT NULL,
		liquid_x REAL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_queries_created ON queries(created_at);
	CREATE INDEX IF NOT EXISTS idx_queries_region ON queries(region);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Query is one stored classification.
type Query struct {
	ID      string   `db:"id" json:"id"`
	X       float64  `db:"x" json:"x"`
	T       float64  `db:"t" json:"t"`
	Kind    string   `db:"kind" json:"kind"`
	Region  string   `db:"region" json:"region"`
	Liquid  float64  `db:"liquid" json:"liquid"`
	Ti      float64  `db:"ti" json:"ti"`
	TiU2    float64  `db:"tiu2" json:"tiu2"`
	U       float64  `db:"u" json:"u"`
	LiquidX *float64 `db:"liquid_x" json:"liquid_composition,omitempty"`

	CreatedAtMs int64 `db:"created_at" json:"created_at_ms"`
}

// CreatedAt returns the insertion time.
func (q Query) CreatedAt() time.Time {
	return time.UnixMilli(q.CreatedAtMs)
}

// NewQuery builds a record for a classified point with a fresh ID.
func NewQuery(x, t float64, r phase.Region, a phase.Amounts) Query {
	return Query{
		ID:          uuid.NewString(),
		X:           x,
		T:           t,
		Kind:        r.Kind(),
		Region:      r.Name(),
		Liquid:      a.Liquid,
		Ti:          a.Ti,
		TiU2:        a.TiU2,
		U:           a.U,
		LiquidX:     a.LiquidComposition,
		CreatedAtMs: time.Now().UnixMilli(),
	}
}

// SaveQuery appends a query to the history.
func (db *DB) SaveQuery(q Query) error {
	_, err := db.conn.NamedExec(`INSERT INTO queries
		(id, x, t, kind, region, liquid, ti, tiu2, u, liquid_x, created_at)
		VALUES (:id, :x, :t, :kind, :region, :liquid, :ti, :tiu2, :u, :liquid_x, :created_at)`, q)
	if err != nil {
		return fmt.Errorf("insert query %s: %w", q.ID, err)
	}
	return nil
}

// SaveQueries writes a batch of queries in one transaction.
func (db *DB) SaveQueries(qs []Query) error {
	if len(qs) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range qs {
		_, err := tx.NamedExec(`INSERT INTO queries
			(id, x, t, kind, region, liquid, ti, tiu2, u, liquid_x, created_at)
			VALUES (:id, :x, :t, :kind, :region, :liquid, :ti, :tiu2, :u, :liquid_x, :created_at)`, q)
		if err != nil {
			return fmt.Errorf("insert query %s: %w", q.ID, err)
		}
	}

	slog.Debug("queries saved", "count", len(qs))
	return tx.Commit()
}

// RecentQueries returns the most recent queries, newest first.
func (db *DB) RecentQueries(limit int) ([]Query, error) {
	var qs []Query
	err := db.conn.Select(&qs,
		"SELECT * FROM queries ORDER BY created_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	return qs, err
}

// GetQuery looks up a query by ID.
func (db *DB) GetQuery(id string) (Query, error) {
	var q Query
	err := db.conn.Get(&q, "SELECT * FROM queries WHERE id = ?", id)
	return q, err
}

// CountByRegion returns how many stored queries fell in each region.
func (db *DB) CountByRegion() (map[string]int, error) {
	var rows []struct {
		Region string `db:"region"`
		N      int    `db:"n"`
	}
	if err := db.conn.Select(&rows, "SELECT region, COUNT(*) AS n FROM queries GROUP BY region"); err != nil {
		return nil, fmt.Errorf("count by region: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Region] = r.N
	}
	return counts, nil
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}
