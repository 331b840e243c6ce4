package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"divscan/internal/logger"
	"divscan/internal/market"
)

const klineSchema = `
CREATE TABLE IF NOT EXISTS klines (
	source      TEXT    NOT NULL,
	symbol      TEXT    NOT NULL,
	interval    TEXT    NOT NULL,
	open_time   INTEGER NOT NULL,
	close_time  INTEGER NOT NULL DEFAULT 0,
	open_price  REAL    NOT NULL,
	high_price  REAL    NOT NULL,
	low_price   REAL    NOT NULL,
	close_price REAL    NOT NULL,
	volume      REAL    NOT NULL DEFAULT 0,
	trades      INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (source, symbol, interval, open_time)
)`

const upsertKline = `
INSERT INTO klines (source, symbol, interval, open_time, close_time, open_price, high_price, low_price, close_price, volume, trades)
VALUES (:source, :symbol, :interval, :open_time, :close_time, :open_price, :high_price, :low_price, :close_price, :volume, :trades)
ON CONFLICT (source, symbol, interval, open_time) DO UPDATE SET
	close_time = excluded.close_time,
	open_price = excluded.open_price,
	high_price = excluded.high_price,
	low_price = excluded.low_price,
	close_price = excluded.close_price,
	volume = excluded.volume,
	trades = excluded.trades`

const trimKlines = `
DELETE FROM klines
WHERE source = ? AND symbol = ? AND interval = ? AND open_time NOT IN (
	SELECT open_time FROM klines WHERE source = ? AND symbol = ? AND interval = ?
	ORDER BY open_time DESC LIMIT ?
)`

// Caches written before series were keyed by source lack the column;
// they are dropped and refilled on the next fetch.
const legacyKlines = `SELECT COUNT(*) FROM pragma_table_info('klines') WHERE name = 'source'`

type klineRow struct {
	Source     string  `db:"source"`
	Symbol     string  `db:"symbol"`
	Interval   string  `db:"interval"`
	OpenTime   int64   `db:"open_time"`
	CloseTime  int64   `db:"close_time"`
	OpenPrice  float64 `db:"open_price"`
	HighPrice  float64 `db:"high_price"`
	LowPrice   float64 `db:"low_price"`
	ClosePrice float64 `db:"close_price"`
	Volume     float64 `db:"volume"`
	Trades     int64   `db:"trades"`
}

func (r klineRow) candle() market.Candle {
	return market.Candle{
		OpenTime:  r.OpenTime,
		CloseTime: r.CloseTime,
		Open:      r.OpenPrice,
		High:      r.HighPrice,
		Low:       r.LowPrice,
		Close:     r.ClosePrice,
		Volume:    r.Volume,
		Trades:    r.Trades,
	}
}

// SQLiteKlineStore persists candles between runs so repeated scans only
// hit the exchange for stale series.
type SQLiteKlineStore struct {
	db *sqlx.DB
}

func OpenSQLiteKlineStore(path string) (*SQLiteKlineStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite store: path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open %s: %w", path, err)
	}
	// modernc serialises writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: init: %w", err)
	}
	return &SQLiteKlineStore{db: db}, nil
}

func migrate(db *sqlx.DB) error {
	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	var tables int
	if err := db.Get(&tables, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'klines'`); err != nil {
		return err
	}
	if tables > 0 {
		var hasSource int
		if err := db.Get(&hasSource, legacyKlines); err != nil {
			return err
		}
		if hasSource == 0 {
			logger.Warnf("[store] dropping kline cache without source column")
			if _, err := db.Exec(`DROP TABLE klines`); err != nil {
				return err
			}
		}
	}
	_, err := db.Exec(klineSchema)
	return err
}

func (s *SQLiteKlineStore) Put(ctx context.Context, source, symbol, interval string, ks []market.Candle, limit int) error {
	if !validKey(source, symbol, interval) {
		return errEmptyKey
	}
	if len(ks) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = 100
	}
	source, symbol, interval = strings.ToLower(source), strings.ToUpper(symbol), strings.ToLower(interval)
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareNamedContext(ctx, upsertKline)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()
	for _, c := range ks {
		row := klineRow{
			Source: source, Symbol: symbol, Interval: interval,
			OpenTime: c.OpenTime, CloseTime: c.CloseTime,
			OpenPrice: c.Open, HighPrice: c.High, LowPrice: c.Low, ClosePrice: c.Close,
			Volume: c.Volume, Trades: c.Trades,
		}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("upsert %s %s %d: %w", symbol, interval, c.OpenTime, err)
		}
	}
	if _, err := tx.ExecContext(ctx, trimKlines, source, symbol, interval, source, symbol, interval, limit); err != nil {
		return fmt.Errorf("trim %s %s: %w", symbol, interval, err)
	}
	return tx.Commit()
}

func (s *SQLiteKlineStore) Get(ctx context.Context, source, symbol, interval string) ([]market.Candle, error) {
	var rows []klineRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM klines WHERE source = ? AND symbol = ? AND interval = ? ORDER BY open_time ASC`,
		strings.ToLower(source), strings.ToUpper(symbol), strings.ToLower(interval))
	if err != nil {
		return nil, fmt.Errorf("select %s %s: %w", symbol, interval, err)
	}
	out := make([]market.Candle, len(rows))
	for i, r := range rows {
		out[i] = r.candle()
	}
	return out, nil
}

func (s *SQLiteKlineStore) Export(ctx context.Context, source, symbol, interval string, limit int) ([]market.Candle, error) {
	if !validKey(source, symbol, interval) {
		return nil, errEmptyKey
	}
	if limit <= 0 {
		return nil, nil
	}
	var rows []klineRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM klines WHERE source = ? AND symbol = ? AND interval = ? ORDER BY open_time DESC LIMIT ?`,
		strings.ToLower(source), strings.ToUpper(symbol), strings.ToLower(interval), limit)
	if err != nil {
		return nil, fmt.Errorf("export %s %s: %w", symbol, interval, err)
	}
	out := make([]market.Candle, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = r.candle()
	}
	return out, nil
}

func (s *SQLiteKlineStore) Close() error { return s.db.Close() }
