package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Config is read from DATABASE_* env vars.
type Config struct {
	Driver   string        `env:"DRIVER" envDefault:"sqlite"`
	DSN      string        `env:"URL" envDefault:"./database.db"`
	MaxConns int           `env:"MAX_CONNS" envDefault:"5"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"5s"`
	// TimeZone is applied as a postgres session parameter.
	TimeZone string `env:"TIMEZONE"`
}

// Connect opens the database, verifies connectivity with a ping and applies
// the embedded migrations.
func Connect(cfg Config) (*sqlx.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.timeout())
	defer cancel()
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Open opens a pooled handle without touching the schema.
func Open(cfg Config) (*sqlx.DB, error) {
	var (
		sqlDB *sql.DB
		bind  string
		err   error
	)
	switch cfg.Driver {
	case "", DriverSQLite:
		sqlDB, err = sql.Open("sqlite", sqliteDSN(cfg.DSN))
		bind = "sqlite3"
	case DriverPostgres:
		sqlDB, err = sql.Open("postgres", postgresDSN(cfg.DSN, cfg.TimeZone))
		bind = "postgres"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 5
	}
	if bind == "sqlite3" {
		// a single writer; the busy timeout queues the rest
		maxConns = 1
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.timeout())
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return sqlx.NewDb(sqlDB, bind), nil
}

// Migrate applies every pending migration bundled with the binary.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	dialect := goose.DialectSQLite3
	if db.DriverName() == "postgres" {
		dialect = goose.DialectPostgres
	}
	fsys, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(dialect, db.DB, fsys)
	if err != nil {
		return fmt.Errorf("migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 5 * time.Second
	}
	return c.Timeout
}

// sqliteDSN adds a busy timeout unless the caller already supplied pragmas.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)"
}

// postgresDSN passes the time zone as a run-time parameter so it applies to
// every pooled connection, for both URL and key=value style DSNs.
func postgresDSN(dsn, tz string) string {
	if tz == "" {
		return dsn
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return dsn
		}
		q := u.Query()
		q.Set("timezone", tz)
		u.RawQuery = q.Encode()
		return u.String()
	}
	return dsn + " timezone=" + quoteLiteral(tz)
}

// quoteLiteral escapes single quotes and wraps the value in single quotes.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
