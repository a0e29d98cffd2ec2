package database

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "net/url"
    "time"

    "github.com/jmoiron/sqlx"
    _ "github.com/lib/pq" // PostgreSQL driver

    appconfig "github.com/GTDGit/storefront_api/internal/config"
)

// DefaultAttempts is the retry budget used when the database is required.
const DefaultAttempts = 5

// DSN builds the lib/pq connection URL for cfg.
func DSN(cfg *appconfig.DatabaseConfig) string {
    return fmt.Sprintf(
        "postgres://%s:%s@%s:%s/%s?sslmode=%s",
        url.QueryEscape(cfg.User), url.QueryEscape(cfg.Password), cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
    )
}

// Connect establishes a PostgreSQL connection using the provided configuration.
// It retries up to attempts times with exponential backoff starting at 500ms
// so a database container that is still booting does not fail startup. In
// auto store mode the caller passes a single attempt and falls back to the
// offline projection on error. The returned *sqlx.DB is pinged before return.
func Connect(ctx context.Context, cfg *appconfig.DatabaseConfig, attempts int) (*sqlx.DB, error) {
    if cfg == nil {
        return nil, errors.New("nil database config")
    }
    if attempts < 1 {
        attempts = 1
    }

    const baseDelay = 500 * time.Millisecond
    dsn := DSN(cfg)

    var db *sqlx.DB
    var lastErr error
    for attempt := 1; attempt <= attempts; attempt++ {
        db, lastErr = sqlx.Open("postgres", dsn)
        if lastErr == nil {
            setPool(db.DB)

            pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
            lastErr = db.PingContext(pingCtx)
            cancel()
            if lastErr == nil {
                return db, nil
            }
            _ = db.Close()
        }

        if attempt == attempts {
            break
        }
        if err := sleepWithBackoff(ctx, attempt, baseDelay); err != nil {
            return nil, err
        }
    }

    return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, lastErr)
}

// Open returns a pooled handle without contacting the server. Queries fail
// until the database becomes reachable.
func Open(cfg *appconfig.DatabaseConfig) (*sqlx.DB, error) {
    db, err := sqlx.Open("postgres", DSN(cfg))
    if err != nil {
        return nil, err
    }
    setPool(db.DB)
    return db, nil
}

// setPool configures the connection pool for the database.
func setPool(db *sql.DB) {
    db.SetMaxOpenConns(25)
    db.SetMaxIdleConns(5)
    db.SetConnMaxLifetime(5 * time.Minute)
}

// sleepWithBackoff sleeps base * 2^(attempt-1), capped to 5s, or until ctx ends.
func sleepWithBackoff(ctx context.Context, attempt int, base time.Duration) error {
    d := base << (attempt - 1)
    if d > 5*time.Second {
        d = 5 * time.Second
    }
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-t.C:
        return nil
    }
}
