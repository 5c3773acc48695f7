package gormstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tradejournal/internal/store"
	storemodel "tradejournal/internal/store/model"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options 对应 storage 配置段。
type Options struct {
	Driver       string
	Path         string
	DSN          string
	MaxOpenConns int
}

// GormStore implements store.Store on top of gorm; sqlite by default.
type GormStore struct {
	db *gorm.DB
}

var _ store.Store = (*GormStore)(nil)

// Open 根据驱动打开数据库并完成自动迁移。
func Open(opts Options) (*GormStore, error) {
	dialector, err := dialectorFor(opts)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("gorm store: open %s: %w", opts.Driver, err)
	}
	s, err := NewFromDB(db)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil && opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		sqlDB.SetMaxIdleConns(opts.MaxOpenConns)
	}
	return s, nil
}

// NewFromDB 复用已有连接，执行迁移。
func NewFromDB(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db 不能为空")
	}
	if err := db.AutoMigrate(storemodel.All()...); err != nil {
		return nil, fmt.Errorf("gorm store: migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func dialectorFor(opts Options) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "sqlite":
		path := strings.TrimSpace(opts.Path)
		if path == "" {
			return nil, fmt.Errorf("gorm store: sqlite path cannot be empty")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		// BEGIN IMMEDIATE 避免两个写事务在读锁升级时互相等待
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate", path)
		return sqlite.Open(dsn), nil
	case "mysql":
		return mysql.Open(opts.DSN), nil
	case "postgres":
		return postgres.Open(opts.DSN), nil
	default:
		return nil, fmt.Errorf("gorm store: unsupported driver %q", opts.Driver)
	}
}

func (s *GormStore) Begin(ctx context.Context) (store.UnitOfWork, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store 未初始化")
	}
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &gormUnitOfWork{tx: tx}, nil
}

// Close closes the underlying database connection.
func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormUnitOfWork struct {
	tx   *gorm.DB
	done bool
}

func (u *gormUnitOfWork) Plans() store.PlanRepository {
	return &planRepository{db: u.tx}
}

func (u *gormUnitOfWork) Transactions() store.TransactionRepository {
	return &transactionRepository{db: u.tx}
}

func (u *gormUnitOfWork) Executions() store.ExecutionRepository {
	return &executionRepository{db: u.tx}
}

func (u *gormUnitOfWork) Settings() store.SettingsRepository {
	return &settingsRepository{db: u.tx}
}

func (u *gormUnitOfWork) Commit() error {
	if u.done {
		return fmt.Errorf("unit of work already finished")
	}
	u.done = true
	return u.tx.Commit().Error
}

func (u *gormUnitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	return u.tx.Rollback().Error
}
