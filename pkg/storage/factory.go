package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BucketFactory creates an empty bucket store for one index build.
type BucketFactory func(layout Layout) (BucketStore, error)

// LabelFactory creates an empty label store for one index build.
type LabelFactory func() (LabelStore, error)

func RAMBuckets() BucketFactory {
	return func(layout Layout) (BucketStore, error) {
		return NewRAMStore(layout), nil
	}
}

// DiskBuckets creates stores whose files live in dir.
func DiskBuckets(dir string) BucketFactory {
	return func(layout Layout) (BucketStore, error) {
		return NewDiskStore(dir, "index", layout), nil
	}
}

// SQLBuckets creates one table per store in a shared database.
func SQLBuckets(db *sql.DB) BucketFactory {
	return func(layout Layout) (BucketStore, error) {
		if db == nil {
			return nil, fmt.Errorf("sql buckets: nil database")
		}
		return NewSQLStore(db, false, layout), nil
	}
}

func RAMLabels() LabelFactory {
	return func() (LabelStore, error) {
		return NewRAMLabelStore(), nil
	}
}

// GormLabels creates one table per store in db.
func GormLabels(db *gorm.DB) LabelFactory {
	return func() (LabelStore, error) {
		return NewGormLabelStore(db, "labels_"+strings.ReplaceAll(uuid.NewString(), "-", ""))
	}
}
