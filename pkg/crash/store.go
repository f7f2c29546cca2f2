package crash

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrReportNotFound is returned when a crash report does not exist.
var ErrReportNotFound = errors.New("crash report not found")

// DatabaseType defines the supported database backends.
type DatabaseType string

const (
	// DatabaseTypeSQLite uses a local SQLite file (default).
	DatabaseTypeSQLite DatabaseType = "sqlite"

	// DatabaseTypePostgres ships reports to a shared PostgreSQL database.
	DatabaseTypePostgres DatabaseType = "postgres"
)

// PostgresConfig contains PostgreSQL-specific configuration.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string // disable, require, verify-ca, verify-full
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.SSLMode != "" {
		dsn += " sslmode=" + c.SSLMode
	}
	return dsn
}

// StoreConfig selects where crash reports are written.
type StoreConfig struct {
	Type     DatabaseType
	Path     string // SQLite database file
	Postgres PostgresConfig
}

// ApplyDefaults fills in missing configuration with default values.
func (c *StoreConfig) ApplyDefaults() {
	if c.Type == "" {
		c.Type = DatabaseTypeSQLite
	}
	if c.Type == DatabaseTypeSQLite && c.Path == "" {
		configDir := os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			homeDir, _ := os.UserHomeDir()
			configDir = filepath.Join(homeDir, ".config")
		}
		c.Path = filepath.Join(configDir, "kestrel", "crashes.db")
	}
	if c.Type == DatabaseTypePostgres {
		if c.Postgres.Port == 0 {
			c.Postgres.Port = 5432
		}
		if c.Postgres.SSLMode == "" {
			c.Postgres.SSLMode = "disable"
		}
	}
}

// Validate checks if the configuration is valid.
func (c *StoreConfig) Validate() error {
	switch c.Type {
	case DatabaseTypeSQLite:
		if c.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case DatabaseTypePostgres:
		if c.Postgres.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
		if c.Postgres.Database == "" {
			return fmt.Errorf("postgres database is required")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Type)
	}
	return nil
}

// Store persists crash reports.
type Store interface {
	Save(ctx context.Context, report *Report) error
	Get(ctx context.Context, crashID string) (*Report, error)
	List(ctx context.Context, limit int) ([]Report, error)
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
	Close() error
}

// GORMStore implements Store on SQLite or PostgreSQL.
type GORMStore struct {
	db *gorm.DB
}

var _ Store = (*GORMStore)(nil)

// OpenStore opens the configured database and migrates the schema.
func OpenStore(cfg *StoreConfig) (*GORMStore, error) {
	if cfg == nil {
		cfg = &StoreConfig{}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid crash store configuration: %w", err)
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case DatabaseTypeSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		// WAL lets the diagnostics server read while a crash is being written.
		dialector = sqlite.Open(cfg.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	case DatabaseTypePostgres:
		dialector = postgres.Open(cfg.Postgres.DSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to crash store: %w", err)
	}

	if err := db.AutoMigrate(&Report{}); err != nil {
		return nil, fmt.Errorf("failed to migrate crash store: %w", err)
	}

	return &GORMStore{db: db}, nil
}

// Save inserts report.
func (s *GORMStore) Save(ctx context.Context, report *Report) error {
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("failed to save crash report: %w", err)
	}
	return nil
}

// Get returns the report with crashID.
func (s *GORMStore) Get(ctx context.Context, crashID string) (*Report, error) {
	var r Report
	err := s.db.WithContext(ctx).Where("crash_id = ?", crashID).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// List returns up to limit reports, newest first. A non-positive limit
// returns all reports.
func (s *GORMStore) List(ctx context.Context, limit int) ([]Report, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var reports []Report
	if err := q.Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("failed to list crash reports: %w", err)
	}
	return reports, nil
}

// Prune deletes reports created before olderThan and returns how many
// were removed.
func (s *GORMStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", olderThan).Delete(&Report{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune crash reports: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Close closes the underlying connection pool.
func (s *GORMStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
