package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tg-moderation/internal/config"
	"tg-moderation/internal/logger"
	"tg-moderation/internal/models"
)

var (
	// DB is the global database connection
	DB *gorm.DB
)

// Initialize opens the configured database, migrates the schema and stores the
// connection in DB. It is a no-op when the database is disabled.
func Initialize(cfg *config.Config) error {
	if !cfg.Database.Enabled {
		logger.Infof("Database support is disabled, moderation state is kept in memory")
		return nil
	}

	db, err := Open(cfg.Database, cfg.Logger.Level)
	if err != nil {
		return err
	}
	if err := Migrate(db); err != nil {
		return err
	}

	DB = db
	logger.Infof("Database connection established successfully (%s)", cfg.Database.Driver)
	return nil
}

// Open connects to the database described by dbCfg without migrating it.
func Open(dbCfg config.DatabaseConfig, logLevel string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch dbCfg.Driver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
			dbCfg.Username,
			dbCfg.Password,
			dbCfg.Host,
			dbCfg.Port,
			dbCfg.DBName,
			dbCfg.Charset,
		)
		logger.Infof("Connecting to database: %s:%d/%s", dbCfg.Host, dbCfg.Port, dbCfg.DBName)
		dialector = mysql.Open(dsn)
	case "sqlite", "":
		if dir := filepath.Dir(dbCfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		logger.Infof("Opening sqlite database: %s", dbCfg.Path)
		dialector = sqlite.Open(dbCfg.Path + "?_busy_timeout=5000&_journal_mode=WAL")
	default:
		return nil, fmt.Errorf("unsupported database driver %q", dbCfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewCustomGormLogger(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get SQL DB: %w", err)
	}

	if dbCfg.Driver == "mysql" {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	} else {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// tables lists the models the bot owns, in creation order.
func tables() []interface{} {
	return []interface{}{
		&models.GroupInfo{},
		&models.ViolationRecord{},
		&models.ChallengeRecord{},
		&models.PendingNotice{},
		&models.BlockedUser{},
		&models.PendingUnban{},
	}
}

// Migrate creates or updates every table the bot owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(tables()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Reset drops every table the bot owns and recreates them empty.
func Reset(db *gorm.DB) error {
	if err := db.Migrator().DropTable(tables()...); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	return Migrate(db)
}

// TableStatus describes one table for the status command.
type TableStatus struct {
	Table  string
	Exists bool
	Rows   int64
}

// Status reports whether each table exists and how many rows it holds.
func Status(db *gorm.DB) ([]TableStatus, error) {
	var out []TableStatus
	for _, model := range tables() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("failed to parse model: %w", err)
		}
		st := TableStatus{Table: stmt.Schema.Table}
		if db.Migrator().HasTable(model) {
			st.Exists = true
			if err := db.Model(model).Count(&st.Rows).Error; err != nil {
				return nil, wrap("count "+st.Table, err)
			}
		}
		out = append(out, st)
	}
	return out, nil
}

// GetDB returns the database connection
func GetDB() *gorm.DB {
	return DB
}

// IsEnabled returns true if database support is enabled
func IsEnabled(cfg *config.Config) bool {
	return cfg.Database.Enabled
}

// Close releases the global connection.
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	DB = nil
	return sqlDB.Close()
}
