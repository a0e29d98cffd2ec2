package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/sync/singleflight"
)

// UndefinedColumn is the SQLSTATE PostgreSQL reports for a missing column.
const UndefinedColumn = "42703"

// IsUndefinedColumn reports whether err is a PostgreSQL undefined_column error.
func IsUndefinedColumn(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == UndefinedColumn
}

// ColumnSet is the set of columns a table supports.
type ColumnSet map[string]bool

// Has reports whether col is present.
func (s ColumnSet) Has(col string) bool { return s[col] }

// SchemaCache discovers and caches the column list of each table so writes
// can be shaped to what the remote schema actually accepts.
type SchemaCache struct {
	db    *sqlx.DB
	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]ColumnSet
}

// NewSchemaCache creates a new SchemaCache.
func NewSchemaCache(db *sqlx.DB) *SchemaCache {
	return &SchemaCache{db: db, cache: make(map[string]ColumnSet)}
}

// Columns returns the cached column set for table, reading
// information_schema once when it is not cached. Concurrent callers share
// one query.
func (p *SchemaCache) Columns(ctx context.Context, table string) (ColumnSet, error) {
	p.mu.RLock()
	cols, ok := p.cache[table]
	p.mu.RUnlock()
	if ok {
		return cols, nil
	}

	v, err, _ := p.group.Do(table, func() (interface{}, error) {
		const q = `
            SELECT column_name FROM information_schema.columns
            WHERE table_schema = current_schema() AND table_name = $1`
		var names []string
		if err := p.db.SelectContext(ctx, &names, q, table); err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("table %s not found", table)
		}
		set := make(ColumnSet, len(names))
		for _, n := range names {
			set[n] = true
		}
		p.mu.Lock()
		p.cache[table] = set
		p.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return nil, fmt.Errorf("read %s columns: %w", table, err)
	}
	return v.(ColumnSet), nil
}

// Invalidate drops the cached column set for table.
func (p *SchemaCache) Invalidate(table string) {
	p.mu.Lock()
	delete(p.cache, table)
	p.mu.Unlock()
}

// column is one value of a shaped write.
type column struct {
	name     string
	value    interface{}
	optional bool
}

// shape keeps required columns and the optional ones the table supports.
func shape(cols []column, supported ColumnSet) []column {
	out := make([]column, 0, len(cols))
	for _, c := range cols {
		if c.optional && !supported.Has(c.name) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// withSchema runs write with the table's column set. When the write fails
// with undefined_column the cache is dropped, the schema re-read and the
// write retried exactly once.
func (p *SchemaCache) withSchema(ctx context.Context, table string, write func(ColumnSet) error) error {
	cols, err := p.Columns(ctx, table)
	if err != nil {
		return err
	}
	err = write(cols)
	if !IsUndefinedColumn(err) {
		return err
	}

	p.Invalidate(table)
	if cols, err = p.Columns(ctx, table); err != nil {
		return err
	}
	return write(cols)
}
