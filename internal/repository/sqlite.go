package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/SautiereQDev/BoursaVision-sub003/internal/model"
)

// SQLiteRepository persists timelines to a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRepository opens (or creates) the database and runs migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRepository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite timeline repository opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRepository) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS timelines (
			symbol     TEXT PRIMARY KEY,
			currency   TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS timeline_points (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol          TEXT NOT NULL,
			bar_time        INTEGER NOT NULL,
			interval        TEXT NOT NULL,
			open            TEXT,
			high            TEXT,
			low             TEXT,
			close           TEXT,
			adj_close       TEXT,
			volume          INTEGER,
			currency        TEXT NOT NULL,
			source          TEXT NOT NULL,
			precision_level INTEGER NOT NULL,
			created_at      INTEGER NOT NULL,
			UNIQUE(symbol, bar_time, interval)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_points_symbol_time ON timeline_points(symbol, bar_time)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// GetTimeline loads a timeline with all its points. Returns (nil, nil) when
// the symbol has never been saved.
func (r *SQLiteRepository) GetTimeline(ctx context.Context, symbol string) (*model.Timeline, error) {
	var currency string
	var fetchedAt int64
	err := r.db.QueryRowContext(ctx,
		`SELECT currency, fetched_at FROM timelines WHERE symbol = ?`, symbol).
		Scan(&currency, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load timeline %s: %w", symbol, err)
	}

	tl := model.NewTimeline(symbol, currency)
	tl.SetFetchedAt(time.Unix(fetchedAt, 0).UTC())

	rows, err := r.db.QueryContext(ctx,
		`SELECT bar_time, interval, open, high, low, close, adj_close, volume,
		        currency, source, precision_level, created_at
		 FROM timeline_points WHERE symbol = ? ORDER BY bar_time`, symbol)
	if err != nil {
		return nil, fmt.Errorf("load points %s: %w", symbol, err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan point %s: %w", symbol, err)
		}
		tl.Upsert(p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate points %s: %w", symbol, err)
	}
	return tl, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPoint(row rowScanner) (model.TimelinePoint, error) {
	var (
		barTime, createdAt   int64
		interval, currency   string
		source               string
		precision            int
		open, high, low, cls sql.NullString
		adjClose             sql.NullString
		volume               sql.NullInt64
	)
	if err := row.Scan(&barTime, &interval, &open, &high, &low, &cls, &adjClose,
		&volume, &currency, &source, &precision, &createdAt); err != nil {
		return model.TimelinePoint{}, err
	}

	p := model.TimelinePoint{
		Timestamp: time.Unix(barTime, 0).UTC(),
		Open:      decodePrice(open, currency),
		High:      decodePrice(high, currency),
		Low:       decodePrice(low, currency),
		Close:     decodePrice(cls, currency),
		AdjClose:  decodePrice(adjClose, currency),
		Interval:  model.Interval(interval),
		Source:    source,
		Precision: model.PrecisionLevel(precision),
		CreatedAt: time.Unix(createdAt, 0).UTC(),
	}
	if volume.Valid {
		v := volume.Int64
		p.Volume = &v
	}
	return p, nil
}

// decodePrice restores a decimal string column. Amounts are stored as TEXT so
// no precision is lost round-tripping through SQLite.
func decodePrice(col sql.NullString, currency string) *model.Price {
	if !col.Valid {
		return nil
	}
	amount, err := decimal.NewFromString(col.String)
	if err != nil {
		return nil
	}
	return &model.Price{Amount: amount, Currency: currency}
}

func encodePrice(p *model.Price) interface{} {
	if p == nil {
		return nil
	}
	return p.Amount.String()
}

func encodeVolume(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// SaveTimeline upserts the timeline row (currency, fetched_at). Points are
// written separately via BulkSavePoints.
func (r *SQLiteRepository) SaveTimeline(ctx context.Context, tl *model.Timeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO timelines (symbol, currency, fetched_at) VALUES (?,?,?)
		 ON CONFLICT(symbol) DO UPDATE SET currency = excluded.currency, fetched_at = excluded.fetched_at`,
		tl.Symbol, tl.Currency, tl.FetchedAt().Unix())
	if err != nil {
		return fmt.Errorf("save timeline %s: %w", tl.Symbol, err)
	}
	return nil
}

// BulkSavePoints writes points in one transaction. The unique constraint on
// (symbol, bar_time, interval) makes concurrent double-writes converge; an
// existing row is replaced only by an equal-or-finer precision tier, matching
// the in-memory upsert rule.
func (r *SQLiteRepository) BulkSavePoints(ctx context.Context, symbol string, points []model.TimelinePoint) error {
	if len(points) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO timeline_points
			(symbol, bar_time, interval, open, high, low, close, adj_close,
			 volume, currency, source, precision_level, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(symbol, bar_time, interval) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, adj_close = excluded.adj_close,
			volume = excluded.volume, source = excluded.source,
			precision_level = excluded.precision_level, created_at = excluded.created_at
		 WHERE excluded.precision_level >= timeline_points.precision_level`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		currency := "USD"
		if p.Close != nil {
			currency = p.Close.Currency
		} else if p.Open != nil {
			currency = p.Open.Currency
		}
		_, err := stmt.ExecContext(ctx,
			symbol, p.Timestamp.Unix(), string(p.Interval),
			encodePrice(p.Open), encodePrice(p.High), encodePrice(p.Low),
			encodePrice(p.Close), encodePrice(p.AdjClose),
			encodeVolume(p.Volume), currency, p.Source,
			int(p.Precision), p.CreatedAt.Unix())
		if err != nil {
			return fmt.Errorf("upsert point %s@%d: %w", symbol, p.Timestamp.Unix(), err)
		}
	}
	return tx.Commit()
}

// DeleteOldPoints removes points older than the cutoff, returning the count.
func (r *SQLiteRepository) DeleteOldPoints(ctx context.Context, symbol string, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM timeline_points WHERE symbol = ? AND bar_time < ?`,
		symbol, olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete old points %s: %w", symbol, err)
	}
	return res.RowsAffected()
}

// GetLatestPoint returns the newest persisted point for symbol, or (nil, nil).
func (r *SQLiteRepository) GetLatestPoint(ctx context.Context, symbol string) (*model.TimelinePoint, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT bar_time, interval, open, high, low, close, adj_close, volume,
		        currency, source, precision_level, created_at
		 FROM timeline_points WHERE symbol = ? ORDER BY bar_time DESC LIMIT 1`, symbol)
	p, err := scanPoint(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest point %s: %w", symbol, err)
	}
	return &p, nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	log.Println("[INFO] closing sqlite timeline repository")
	return r.db.Close()
}
