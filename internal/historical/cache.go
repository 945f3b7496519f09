package historical

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Cache stores fetched price histories locally to avoid repeated API calls
type Cache struct {
	db *sql.DB
}

// NewCache creates a new price history cache
func NewCache(dbPath string) (*Cache, error) {
	if dbPath == ":memory:" {
		dbPath = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Configure SQLite
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	c := &Cache{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return c, nil
}

// migrate creates the necessary tables
func (c *Cache) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS price_histories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		bars_json TEXT NOT NULL,
		bar_count INTEGER NOT NULL,
		total_volume INTEGER NOT NULL,
		first_open REAL NOT NULL,
		last_close REAL NOT NULL,
		fetched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, start_date, end_date)
	);

	CREATE INDEX IF NOT EXISTS idx_price_histories_symbol ON price_histories(symbol);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Close closes the database connection
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get retrieves a cached history for the exact window, or nil if not cached
func (c *Cache) Get(symbol string, start, end time.Time) (*PriceHistory, error) {
	var barsJSON string
	err := c.db.QueryRow(
		"SELECT bars_json FROM price_histories WHERE symbol = ? AND start_date = ? AND end_date = ?",
		symbol, start.Format(dateLayout), end.Format(dateLayout),
	).Scan(&barsJSON)

	if err == sql.ErrNoRows {
		return nil, nil // Not cached
	}
	if err != nil {
		return nil, err
	}

	var bars []DailyBar
	if err := json.Unmarshal([]byte(barsJSON), &bars); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached bars: %w", err)
	}

	return &PriceHistory{Symbol: symbol, Bars: bars}, nil
}

// Put stores a history for the given window
func (c *Cache) Put(h *PriceHistory, start, end time.Time) error {
	barsJSON, err := json.Marshal(h.Bars)
	if err != nil {
		return fmt.Errorf("failed to marshal bars: %w", err)
	}

	_, err = c.db.Exec(`
		INSERT OR REPLACE INTO price_histories
		(symbol, start_date, end_date, bars_json, bar_count, total_volume, first_open, last_close)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		h.Symbol, start.Format(dateLayout), end.Format(dateLayout), string(barsJSON),
		len(h.Bars), h.TotalVolume(), h.Open(), h.Close(),
	)
	return err
}

// ListSymbols returns every symbol with at least one cached window
func (c *Cache) ListSymbols() ([]string, error) {
	rows, err := c.db.Query("SELECT DISTINCT symbol FROM price_histories ORDER BY symbol")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// CachedBarCount returns the number of cached bars for a symbol across windows
func (c *Cache) CachedBarCount(symbol string) (int, error) {
	var count sql.NullInt64
	err := c.db.QueryRow(
		"SELECT SUM(bar_count) FROM price_histories WHERE symbol = ?",
		symbol,
	).Scan(&count)
	return int(count.Int64), err
}

// Clear removes cached windows for symbol, or everything when symbol is empty.
// It returns the number of removed windows.
func (c *Cache) Clear(symbol string) (int64, error) {
	var res sql.Result
	var err error
	if symbol == "" {
		res, err = c.db.Exec("DELETE FROM price_histories")
	} else {
		res, err = c.db.Exec("DELETE FROM price_histories WHERE symbol = ?", symbol)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
