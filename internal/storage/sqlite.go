package storage

import (
	"database/sql"
	"sort"
	"strings"
	"time"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

type DB interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	Close() error
}

// Store records analysis runs. Only the request and its outcome are kept;
// prices and statistics are never written.
type Store struct{ db DB }

// Run is one analysis request and its outcome.
type Run struct {
	ID      string
	Symbols []string
	Years   int
	OK      bool
	Reason  string
	At      time.Time
}

// SymbolUsage counts how often a symbol was requested.
type SymbolUsage struct {
	Symbol string
	Count  int
}

func OpenSQLite(dsn string) (DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// one writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)
	return db, nil
}

func InitSchema(db DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs(
		id TEXT PRIMARY KEY, symbols TEXT, years INTEGER, ok INTEGER, reason TEXT, ts INTEGER
	)`)
	return err
}

func NewStore(db DB) *Store { return &Store{db: db} }

func (s *Store) SaveRun(r Run) error {
	ok := 0
	if r.OK {
		ok = 1
	}
	_, err := s.db.Exec(`INSERT INTO runs(id,symbols,years,ok,reason,ts) VALUES(?,?,?,?,?,?)`,
		r.ID, strings.Join(r.Symbols, ","), r.Years, ok, r.Reason, r.At.Unix())
	return err
}

// RecentRuns returns the latest runs, newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(`SELECT id,symbols,years,ok,reason,ts FROM runs ORDER BY ts DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var (
			r    Run
			syms string
			ok   int
			ts   int64
		)
		if err := rows.Scan(&r.ID, &syms, &r.Years, &ok, &r.Reason, &ts); err != nil {
			return nil, err
		}
		if syms != "" {
			r.Symbols = strings.Split(syms, ",")
		}
		r.OK = ok == 1
		r.At = time.Unix(ts, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SymbolUsage counts symbol requests since the given time, most requested first.
func (s *Store) SymbolUsage(since time.Time) ([]SymbolUsage, error) {
	rows, err := s.db.Query(`SELECT symbols FROM runs WHERE ts>=?`, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[string]int{}
	var order []string
	for rows.Next() {
		var syms string
		if err := rows.Scan(&syms); err != nil {
			return nil, err
		}
		for _, sym := range strings.Split(syms, ",") {
			if sym == "" {
				continue
			}
			if counts[sym] == 0 {
				order = append(order, sym)
			}
			counts[sym]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]SymbolUsage, 0, len(order))
	for _, sym := range order {
		out = append(out, SymbolUsage{Symbol: sym, Count: counts[sym]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}
