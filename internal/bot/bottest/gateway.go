package bottest

import (
	"context"
	"sync"

	"github.com/robalyx/warden/internal/database"
)

// Gateway is an in-memory database.Gateway recording statements and connection use.
type Gateway struct {
	store *Store

	mu         sync.Mutex
	statements []string
	acquired   int
	released   int
	rows       []map[string]any
}

var _ database.Gateway = (*Gateway)(nil)

// SetRows sets the rows every QueryWithResults call returns.
func (g *Gateway) SetRows(rows []map[string]any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rows = rows
}

// Statements returns every executed statement.
func (g *Gateway) Statements() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.statements...)
}

// Acquired returns how many connections were checked out.
func (g *Gateway) Acquired() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.acquired
}

// Released returns how many connections were returned.
func (g *Gateway) Released() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.released
}

func (g *Gateway) Query(_ context.Context, stmt string, _ ...any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statements = append(g.statements, stmt)
	return nil
}

func (g *Gateway) QueryWithResults(_ context.Context, stmt string, _ ...any) ([]map[string]any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statements = append(g.statements, stmt)
	return g.rows, nil
}

func (g *Gateway) Acquire(_ context.Context) (database.Conn, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.acquired++
	return &conn{gateway: g}, nil
}

func (g *Gateway) WithinTransaction(ctx context.Context, stmts []database.Statement) bool {
	for _, stmt := range stmts {
		_ = g.Query(ctx, stmt.Query, stmt.Args...)
	}
	return true
}

func (g *Gateway) Destroy() error {
	return nil
}

type conn struct {
	gateway  *Gateway
	once     sync.Once
	released bool
}

func (c *conn) Query(ctx context.Context, stmt string, args ...any) error {
	if c.released {
		return database.ErrConnReleased
	}
	return c.gateway.Query(ctx, stmt, args...)
}

func (c *conn) QueryWithResults(ctx context.Context, stmt string, args ...any) ([]map[string]any, error) {
	if c.released {
		return nil, database.ErrConnReleased
	}
	return c.gateway.QueryWithResults(ctx, stmt, args...)
}

func (c *conn) Release() {
	c.once.Do(func() {
		c.released = true
		c.gateway.mu.Lock()
		c.gateway.released++
		c.gateway.mu.Unlock()
	})
}
