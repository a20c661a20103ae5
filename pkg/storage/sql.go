package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"RangeSSE/pkg/utils"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLStore keeps the entries of one store in its own table. Empty slots have
// no row.
type SQLStore struct {
	mu     sync.Mutex
	db     *sql.DB
	owned  bool
	table  string
	layout Layout
	size   uint64
}

// OpenSQL opens a database for bucket tables. driver is "sqlite" or "mysql".
func OpenSQL(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA synchronous = NORMAL;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set sqlite pragmas: %w", err)
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// NewSQLStore creates a store table in db. The store closes db on Close only
// when owned is set.
func NewSQLStore(db *sql.DB, owned bool, layout Layout) *SQLStore {
	return &SQLStore{
		db:     db,
		owned:  owned,
		table:  "buckets_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		layout: layout,
	}
}

func (s *SQLStore) Table() string { return s.table }

func (s *SQLStore) Init(size uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		off BIGINT PRIMARY KEY,
		label BLOB NOT NULL,
		ciphertext BLOB NOT NULL,
		iv BLOB NOT NULL
	)`, s.table)
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	if _, err := s.db.Exec("DELETE FROM " + s.table); err != nil {
		return fmt.Errorf("clear table %s: %w", s.table, err)
	}
	s.size = size
	return nil
}

func (s *SQLStore) WriteAt(off uint64, e Entry) error {
	return s.WriteBatch([]Cell{{Off: off, Entry: e}})
}

// WriteBatch writes every cell in one transaction.
func (s *SQLStore) WriteBatch(cells []Cell) error {
	if len(cells) == 0 {
		return nil
	}
	for _, c := range cells {
		if err := s.layout.check(c.Entry); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cells {
		if err := checkOffset(c.Off, s.size); err != nil {
			return err
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(fmt.Sprintf("REPLACE INTO %s (off, label, ciphertext, iv) VALUES (?, ?, ?, ?)", s.table))
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range cells {
		if _, err := stmt.Exec(int64(c.Off), c.Entry.Label, c.Entry.Ciphertext, c.Entry.IV); err != nil {
			tx.Rollback()
			return fmt.Errorf("write entry %d: %w", c.Off, err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) ReadAt(off uint64) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkOffset(off, s.size); err != nil {
		return Entry{}, false, err
	}

	var e Entry
	err := s.db.QueryRow(fmt.Sprintf("SELECT label, ciphertext, iv FROM %s WHERE off = ?", s.table), int64(off)).
		Scan(&e.Label, &e.Ciphertext, &e.IV)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("read entry %d: %w", off, err)
	}
	if err := s.layout.check(e); err != nil {
		return Entry{}, false, fmt.Errorf("%w: %v", utils.ErrMalformedEncoding, err)
	}
	return e, true, nil
}

// ReadRange reads the run with one range query.
func (s *SQLStore) ReadRange(off, n uint64) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if off+n > s.size || off+n < off {
		return nil, fmt.Errorf("%w: [%d,%d) of %d", ErrOffsetOutOfRange, off, off+n, s.size)
	}

	rows, err := s.db.Query(fmt.Sprintf("SELECT off, label, ciphertext, iv FROM %s WHERE off >= ? AND off < ? ORDER BY off ASC", s.table),
		int64(off), int64(off+n))
	if err != nil {
		return nil, fmt.Errorf("read entries [%d,%d): %w", off, off+n, err)
	}
	defer rows.Close()

	out := make([]Entry, n)
	for rows.Next() {
		var at int64
		var e Entry
		if err := rows.Scan(&at, &e.Label, &e.Ciphertext, &e.IV); err != nil {
			return nil, err
		}
		if err := s.layout.check(e); err != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrMalformedEncoding, err)
		}
		out[uint64(at)-off] = e
	}
	return out, rows.Err()
}

func (s *SQLStore) Size() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

func (s *SQLStore) Layout() Layout { return s.layout }

// Close drops the table.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	_, err := s.db.Exec("DROP TABLE IF EXISTS " + s.table)
	if s.owned {
		if cerr := s.db.Close(); err == nil {
			err = cerr
		}
	}
	s.db = nil
	return err
}
