// Package sqlite persists orders and the checkout operation log.
//
// WAL mode is enabled on Open so that readers never block writers and vice
// versa; the order read endpoint may be queried while checkouts commit.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	// Register the pure-Go SQLite driver. modernc.org/sqlite avoids CGO,
	// which keeps Docker (Alpine) builds trivial.
	_ "modernc.org/sqlite"
)

// timeLayout is RFC3339 with nanoseconds, stored as TEXT (SQLite idiom).
const timeLayout = "2006-01-02T15:04:05.999999999Z"

// schema is the DDL executed once on startup.
//
// Money columns are TEXT holding exact decimal strings: order totals and
// captured prices must survive round-trips without floating point drift.
// The CHECK constraints are the last line of defence for the atomicity
// guarantee: a bad row aborts the whole transaction.
const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,

    -- Externally safe identifier (uuid). The integer id stays internal
    -- to the API surface but is what order_items reference.
    reference     TEXT    NOT NULL UNIQUE,

    user_email    TEXT    NOT NULL,

    -- Exact decimal string, e.g. "1999.98".
    total_amount  TEXT    NOT NULL,

    status        TEXT    NOT NULL DEFAULT 'pending',

    -- RFC3339 stored as TEXT.
    created_at    TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS order_items (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id    INTEGER NOT NULL REFERENCES orders(id),
    product_id  INTEGER NOT NULL CHECK (product_id > 0),
    quantity    INTEGER NOT NULL CHECK (quantity > 0),

    -- Price captured at purchase time; never updated afterwards.
    unit_price  TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);

CREATE TABLE IF NOT EXISTS checkout_log (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,

    -- Correlates the rows of one checkout attempt. Not UNIQUE: one row
    -- per stage transition.
    order_ref  TEXT    NOT NULL,

    stage      TEXT    NOT NULL,
    detail     TEXT    NOT NULL DEFAULT '',

    -- W3C identifiers of the active OTel span, for jumping from a log
    -- row to the full distributed trace.
    trace_id   TEXT    NOT NULL DEFAULT '',
    span_id    TEXT    NOT NULL DEFAULT '',

    at         TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_checkout_log_order_ref ON checkout_log(order_ref, at);
`

// Store wraps the SQLite database. It implements both the order
// repository and the operation log repository.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
//
//	store, err := sqlite.Open("./data/checkout.db")
func Open(path string) (*Store, error) {
	// The pure-Go driver takes pragmas as query parameters. WAL enables
	// concurrent readers; foreign_keys enforces the items→order link;
	// busy_timeout waits for locks instead of failing immediately.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	// Driver name is "sqlite" for modernc, not "sqlite3".
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database connection. Call it with defer in main().
func (s *Store) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}
