package storage

import (
	"encoding/base64"
	"fmt"
	"sync"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// LabelStore maps blind labels to entries. The label of an entry is its key.
type LabelStore interface {
	PutBatch(entries []Entry) error
	// Get reports false for a label that was never stored.
	Get(label []byte) (Entry, bool, error)
	Len() int
	Close() error
}

type RAMLabelStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewRAMLabelStore() *RAMLabelStore {
	return &RAMLabelStore{entries: make(map[string]Entry)}
}

func (s *RAMLabelStore) PutBatch(entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.entries[string(e.Label)] = e
	}
	return nil
}

func (s *RAMLabelStore) Get(label []byte) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[string(label)]
	return e, ok, nil
}

func (s *RAMLabelStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *RAMLabelStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}

// LabelRecord is one row of a gorm label table.
type LabelRecord struct {
	Label      string `gorm:"primaryKey;size:64"`
	Ciphertext []byte
	IV         []byte
}

// GormLabelStore keeps entries in a table of its own, labels base64 encoded.
type GormLabelStore struct {
	mu    sync.Mutex
	db    *gorm.DB
	table string
	count int
	batch int
}

const defaultBatchSize = 500

// OpenMySQL connects gorm to a MySQL server and checks the connection.
func OpenMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	return db, ping(db)
}

// OpenGormSQLite connects gorm to a SQLite file over the pure Go driver.
func OpenGormSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: path}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, ping(db)
}

func ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// NewGormLabelStore creates and migrates table in db.
func NewGormLabelStore(db *gorm.DB, table string) (*GormLabelStore, error) {
	if err := db.Table(table).AutoMigrate(&LabelRecord{}); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", table, err)
	}
	return &GormLabelStore{db: db, table: table, batch: defaultBatchSize}, nil
}

func (s *GormLabelStore) Table() string { return s.table }

func (s *GormLabelStore) PutBatch(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]LabelRecord, len(entries))
	for i, e := range entries {
		rows[i] = LabelRecord{
			Label:      base64.StdEncoding.EncodeToString(e.Label),
			Ciphertext: e.Ciphertext,
			IV:         e.IV,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Table(s.table).CreateInBatches(&rows, s.batch).Error; err != nil {
		return fmt.Errorf("write %d labels: %w", len(rows), err)
	}
	s.count += len(rows)
	return nil
}

func (s *GormLabelStore) Get(label []byte) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []LabelRecord
	res := s.db.Table(s.table).Where("label = ?", base64.StdEncoding.EncodeToString(label)).Limit(1).Find(&rows)
	if res.Error != nil {
		return Entry{}, false, fmt.Errorf("read label: %w", res.Error)
	}
	if len(rows) == 0 {
		return Entry{}, false, nil
	}
	return Entry{
		Label:      append([]byte(nil), label...),
		Ciphertext: rows[0].Ciphertext,
		IV:         rows[0].IV,
	}, true, nil
}

func (s *GormLabelStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Close drops the table; the connection stays open for other stores.
func (s *GormLabelStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Migrator().DropTable(s.table)
	s.db = nil
	return err
}
