package bootstrap

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/kottzoltan/aivio/internal/models"
	"github.com/kottzoltan/aivio/pkg/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Options controls database bootstrap behavior.
type Options struct {
	InitSQLPath string // optional .sql script executed before migration
	AutoMigrate bool   // migrate entity tables
	SeedNonProd bool   // insert sample data outside production
}

// SetupDatabase opens the configured database, optionally runs an init
// script, migrates the entity tables and seeds non-production sample data.
func SetupDatabase(w io.Writer, opts *Options) (*gorm.DB, error) {
	if opts == nil {
		opts = &Options{}
	}

	driver := config.GlobalConfig.Database.Driver
	dsn := config.GlobalConfig.Database.DSN

	gormConfig := &gorm.Config{
		Logger: gormlogger.New(
			logWriter{w},
			gormlogger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	}

	var db *gorm.DB
	var err error
	switch driver {
	case "", "sqlite":
		db, err = gorm.Open(sqlite.Open(dsn), gormConfig)
	case "mysql":
		db, err = gorm.Open(mysql.Open(dsn), gormConfig)
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if opts.InitSQLPath != "" {
		if err := execSQLFile(db, opts.InitSQLPath); err != nil {
			return nil, fmt.Errorf("failed to run init sql: %w", err)
		}
	}

	if opts.AutoMigrate {
		err = db.AutoMigrate(
			&models.PersonaOverride{},
			&models.ConversationLog{},
			&models.CRMSyncRecord{},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to migrate tables: %w", err)
		}
	}

	if opts.SeedNonProd && config.GlobalConfig.Server.Mode != "production" {
		seeder := &SeedService{db: db}
		if err := seeder.SeedAll(); err != nil {
			return nil, fmt.Errorf("failed to seed data: %w", err)
		}
	}

	return db, nil
}

// execSQLFile runs each ;-separated statement of the script in order.
func execSQLFile(db *gorm.DB, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	for _, stmt := range strings.Split(string(raw), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// logWriter adapts an io.Writer to the gorm logger interface.
type logWriter struct {
	w io.Writer
}

func (l logWriter) Printf(format string, args ...interface{}) {
	fmt.Fprintf(l.w, format+"\n", args...)
}
