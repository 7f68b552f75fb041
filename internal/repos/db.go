package repos

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"wleci/internal/domain"
)

// OpenDB connects to the store named by dsn and migrates the schema. A
// postgres:// URL selects Postgres; anything else is a sqlite path (":memory:"
// included).
func OpenDB(dsn string) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger: logger.New(
			log.New(log.Writer(), "[gorm] ", log.LstdFlags),
			logger.Config{
				SlowThreshold:             1500 * time.Millisecond,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
		TranslateError: true,
	}

	var (
		db  *gorm.DB
		err error
	)
	if isPostgres(dsn) {
		sqlDB, perr := openPostgres(dsn)
		if perr != nil {
			return nil, perr
		}
		db, err = gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gcfg)
	} else {
		db, err = openSQLite(dsn, gcfg)
	}
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&domain.User{}, &domain.Post{}, &domain.SessionRevocation{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func openSQLite(dsn string, gcfg *gorm.Config) (*gorm.DB, error) {
	memory := dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
	if !memory && !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), gcfg)
	if err != nil {
		return nil, err
	}
	if memory {
		// every pooled connection would otherwise get its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, err
		}
	}
	return db, nil
}

func openPostgres(dsn string) (*sql.DB, error) {
	pcfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	sqlDB := stdlib.OpenDB(*pcfg)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	// fail fast if unreachable
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	return sqlDB, nil
}

// Ping reports whether the database answers within ctx.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// SeedDemo inserts the demo accounts and posts (idempotent). Demo accounts
// have no password and therefore cannot log in.
func SeedDemo(ctx context.Context, db *gorm.DB) error {
	type demo struct {
		email, name, title, content string
	}
	rows := []demo{
		{"john@example.com", "John Doe", "Getting Started with Go", "Go is a small language with a big standard library..."},
		{"jane@example.com", "Jane Smith", "Introduction to GORM", "GORM is an ORM library for Go..."},
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range rows {
			name := d.name
			u := domain.User{Email: d.email, Name: &name, Role: domain.RoleUser}
			if err := tx.Where(domain.User{Email: d.email}).FirstOrCreate(&u).Error; err != nil {
				return err
			}
			content := d.content
			p := domain.Post{Title: d.title, Content: &content, Published: true, AuthorID: &u.ID}
			if err := tx.Where(domain.Post{Title: d.title}).FirstOrCreate(&p).Error; err != nil {
				return err
			}
		}
		log.Println("[seed] demo users and posts ensured")
		return nil
	})
}
