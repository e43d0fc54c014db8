package database

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robalyx/warden/internal/database/dbretry"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ErrConnReleased is returned when a released connection is used again.
var ErrConnReleased = errors.New("connection already released")

// Statement is one parameterized statement of a transaction. Placeholders use "?".
type Statement struct {
	Query string
	Args  []any
}

// Querier runs raw statements.
type Querier interface {
	// Query executes a statement, discarding any rows.
	Query(ctx context.Context, stmt string, args ...any) error
	// QueryWithResults executes a statement and returns every row as a column map.
	QueryWithResults(ctx context.Context, stmt string, args ...any) ([]map[string]any, error)
}

// Conn is a pooled connection held by one handler until released.
type Conn interface {
	Querier
	// Release returns the connection to the pool. Further calls are no-ops.
	Release()
}

// Gateway is the raw statement surface of the database.
type Gateway interface {
	Querier
	// Acquire checks a dedicated connection out of the pool.
	Acquire(ctx context.Context) (Conn, error)
	// WithinTransaction runs statements in one transaction and reports whether it committed.
	WithinTransaction(ctx context.Context, stmts []Statement) bool
	// Destroy drains the pool.
	Destroy() error
}

// gateway implements Gateway on a bun database.
type gateway struct {
	db     *bun.DB
	logger *zap.Logger
}

// newGateway creates the raw statement gateway.
func newGateway(db *bun.DB, logger *zap.Logger) *gateway {
	return &gateway{
		db:     db,
		logger: logger.Named("db_gateway"),
	}
}

// Query executes a statement, wrapping failures with the statement and its arguments.
func (g *gateway) Query(ctx context.Context, stmt string, args ...any) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		return execRaw(ctx, g.db, stmt, args)
	})
}

// QueryWithResults executes a statement and returns its rows.
func (g *gateway) QueryWithResults(ctx context.Context, stmt string, args ...any) ([]map[string]any, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]map[string]any, error) {
		return scanRaw(ctx, g.db, stmt, args)
	})
}

// Acquire checks a dedicated connection out of the pool.
func (g *gateway) Acquire(ctx context.Context) (Conn, error) {
	c, err := g.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	return &conn{conn: c, logger: g.logger}, nil
}

// WithinTransaction runs statements in one transaction. Any failure rolls the whole unit back.
func (g *gateway) WithinTransaction(ctx context.Context, stmts []Statement) bool {
	err := dbretry.Transaction(ctx, g.db, func(ctx context.Context, tx bun.Tx) error {
		for _, stmt := range stmts {
			if err := execRaw(ctx, tx, stmt.Query, stmt.Args); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		g.logger.Error("Transaction rolled back",
			zap.Int("statements", len(stmts)),
			zap.Error(err))
		return false
	}

	return true
}

// Destroy drains the pool.
func (g *gateway) Destroy() error {
	if err := g.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// conn is a Conn backed by a dedicated bun connection.
type conn struct {
	conn     bun.Conn
	logger   *zap.Logger
	mu       sync.Mutex
	released bool
}

// Query executes a statement on the held connection.
func (c *conn) Query(ctx context.Context, stmt string, args ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return ErrConnReleased
	}
	return execRaw(ctx, c.conn, stmt, args)
}

// QueryWithResults executes a statement on the held connection and returns its rows.
func (c *conn) QueryWithResults(ctx context.Context, stmt string, args ...any) ([]map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return nil, ErrConnReleased
	}
	return scanRaw(ctx, c.conn, stmt, args)
}

// Release returns the connection to the pool.
func (c *conn) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return
	}
	c.released = true

	if err := c.conn.Close(); err != nil {
		c.logger.Warn("Failed to release connection", zap.Error(err))
	}
}

// execRaw runs stmt on db, annotating errors with the statement and arguments.
func execRaw(ctx context.Context, db bun.IDB, stmt string, args []any) error {
	if _, err := db.NewRaw(stmt, args...).Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute %q with args %v: %w", stmt, args, err)
	}
	return nil
}

// scanRaw runs stmt on db and scans every row into a column map.
func scanRaw(ctx context.Context, db bun.IDB, stmt string, args []any) ([]map[string]any, error) {
	rows := make([]map[string]any, 0)
	if err := db.NewRaw(stmt, args...).Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to query %q with args %v: %w", stmt, args, err)
	}
	return rows, nil
}
