package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"RangeSSE/pkg/Database"
	"RangeSSE/pkg/LogSRC"
	"RangeSSE/pkg/LogSRCi"
	"RangeSSE/pkg/PiBas"
	"RangeSSE/pkg/config"
	"RangeSSE/pkg/monitor"
	"RangeSSE/pkg/storage"
	"RangeSSE/pkg/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	zc.Level = level
	return zc.Build()
}

// backend holds the store factories of the configured storage and the
// connections behind them.
type backend struct {
	buckets storage.BucketFactory
	labels  storage.LabelFactory
	sqlDB   *sql.DB
	gormDB  *gorm.DB
}

func openBackend(cfg config.StorageConfig) (*backend, error) {
	b := &backend{buckets: storage.RAMBuckets(), labels: storage.RAMLabels()}
	var err error
	switch cfg.Backend {
	case "ram":
	case "disk":
		b.buckets = storage.DiskBuckets(cfg.Path)
	case "sqlite":
		if b.sqlDB, err = storage.OpenSQL("sqlite", cfg.Path); err != nil {
			return nil, err
		}
		if b.gormDB, err = storage.OpenGormSQLite(cfg.Path); err != nil {
			b.Close()
			return nil, err
		}
	case "mysql":
		if b.sqlDB, err = storage.OpenSQL("mysql", cfg.DSN); err != nil {
			return nil, err
		}
		if b.gormDB, err = storage.OpenMySQL(cfg.DSN); err != nil {
			b.Close()
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if b.sqlDB != nil {
		b.buckets = storage.SQLBuckets(b.sqlDB)
	}
	if b.gormDB != nil {
		b.labels = storage.GormLabels(b.gormDB)
	}
	return b, nil
}

func (b *backend) Close() error {
	var errs []error
	if b.sqlDB != nil {
		errs = append(errs, b.sqlDB.Close())
	}
	if b.gormDB != nil {
		if db, err := b.gormDB.DB(); err == nil {
			errs = append(errs, db.Close())
		}
	}
	return errors.Join(errs...)
}

// staticFactory builds the configured static scheme over the backend.
func staticFactory(cfg config.SchemeConfig, b *backend, logger *zap.Logger, rec *monitor.Recorder) (utils.SchemeFactory, error) {
	placement, err := PiBas.ParsePlacement(cfg.Placement)
	if err != nil {
		return nil, err
	}
	opts := PiBas.Options{
		Placement: placement,
		Buckets:   b.buckets,
		Labels:    b.labels,
		Logger:    logger,
		Recorder:  rec,
	}
	switch cfg.Name {
	case "PiBas":
		return PiBas.Factory(opts), nil
	case "LogSRC":
		return LogSRC.Factory(opts), nil
	case "LogSRCi":
		layout, err := LogSRCi.ParseIndex2Layout(cfg.Index2)
		if err != nil {
			return nil, err
		}
		return LogSRCi.Factory(LogSRCi.Options{Options: opts, Index2: layout}), nil
	}
	return nil, fmt.Errorf("unknown scheme %q", cfg.Name)
}

func loadRecords(ctx context.Context, cfg config.DatasetConfig) ([]utils.Record, error) {
	if cfg.MongoURI != "" {
		db, err := Database.MongoDBSetup(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		defer db.Client().Disconnect(ctx)
		return Database.LoadRecords(ctx, db, cfg.Collection)
	}
	if cfg.CSV == "" {
		return nil, errors.New("no dataset: set --data or --mongo-uri")
	}
	return Database.LoadCSV(cfg.CSV)
}
