package memory

import (
	"context"
	"fmt"
	"sync"

	"go.llib.dev/userstream"
)

// Provider hands out connections to a Table.
//
// The fault injection fields are read on every call,
// so a test can arm them between two steps of a stream.
type Provider struct {
	Table *Table

	// ConnectErr makes Connect fail.
	ConnectErr error
	// SelectErr makes Conn.Select fail.
	SelectErr error
	// RowsErr is reported by Rows.Err after FailAfter rows were read.
	RowsErr   error
	FailAfter int
	// CloseErr is returned from Conn.Close, after the connection was released.
	CloseErr error

	mutex    sync.Mutex
	connects int
	closes   int
	selects  int
}

func NewProvider(users ...userstream.User) *Provider {
	return &Provider{Table: NewTable(users...)}
}

func (p *Provider) Connect(ctx context.Context) (userstream.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.ConnectErr != nil {
		return nil, p.ConnectErr
	}
	if p.Table == nil {
		p.Table = NewTable()
	}
	p.connects++
	return &conn{provider: p}, nil
}

// Connects is the number of successful Connect calls.
func (p *Provider) Connects() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.connects
}

// Closes is the number of connections that were released.
func (p *Provider) Closes() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.closes
}

// Selects is the number of queries that were started.
func (p *Provider) Selects() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.selects
}

// Open is the number of connections currently held by someone.
func (p *Provider) Open() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.connects - p.closes
}

type conn struct {
	provider *Provider

	mutex  sync.Mutex
	closed bool
}

func (c *conn) Select(ctx context.Context, q userstream.Query) (userstream.Rows, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.provider.mutex.Lock()
	c.provider.selects++
	selectErr := c.provider.SelectErr
	c.provider.mutex.Unlock()
	if selectErr != nil {
		return nil, selectErr
	}
	users, err := c.provider.Table.selectUsers(q)
	if err != nil {
		return nil, err
	}
	return &rows{
		conn:    c,
		ctx:     ctx,
		users:   users,
		columns: q.GetColumns(),
		index:   -1,
	}, nil
}

func (c *conn) isClosed() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.closed
}

func (c *conn) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	c.provider.mutex.Lock()
	defer c.provider.mutex.Unlock()
	c.provider.closes++
	return c.provider.CloseErr
}

type rows struct {
	conn    *conn
	ctx     context.Context
	users   []userstream.User
	columns []userstream.Column

	index  int
	read   int
	closed bool
	err    error
}

func (r *rows) Next() bool {
	if r.closed || r.err != nil {
		return false
	}
	if r.conn.isClosed() {
		r.err = ErrClosed
		return false
	}
	if err := r.ctx.Err(); err != nil {
		r.err = err
		return false
	}
	r.conn.provider.mutex.Lock()
	rowsErr, failAfter := r.conn.provider.RowsErr, r.conn.provider.FailAfter
	r.conn.provider.mutex.Unlock()
	if rowsErr != nil && failAfter <= r.read {
		r.err = rowsErr
		return false
	}
	if len(r.users) <= r.index+1 {
		return false
	}
	r.index++
	r.read++
	return true
}

func (r *rows) Scan(dest ...any) error {
	if r.closed {
		return ErrClosed
	}
	if r.index < 0 || len(r.users) <= r.index {
		return fmt.Errorf("memory: Scan called without a current row")
	}
	if len(dest) != len(r.columns) {
		return fmt.Errorf("memory: expected %d destination arguments in Scan, not %d", len(r.columns), len(dest))
	}
	u := r.users[r.index]
	for i, col := range r.columns {
		v, err := columnValue(u, col)
		if err != nil {
			return err
		}
		if err := assign(dest[i], v); err != nil {
			return fmt.Errorf("memory: scanning column %q: %w", col, err)
		}
	}
	return nil
}

func (r *rows) Err() error { return r.err }

func (r *rows) Close() error {
	r.closed = true
	r.users = nil
	return nil
}

func assign(dst, v any) error {
	switch dst := dst.(type) {
	case *any:
		*dst = v
		return nil
	case *string:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("can't assign %T to %T", v, dst)
		}
		*dst = s
		return nil
	case *float64:
		f, ok := v.(float64)
		if !ok {
			return fmt.Errorf("can't assign %T to %T", v, dst)
		}
		*dst = f
		return nil
	case *int:
		f, ok := v.(float64)
		if !ok {
			return fmt.Errorf("can't assign %T to %T", v, dst)
		}
		*dst = int(f)
		return nil
	default:
		return fmt.Errorf("unsupported scan destination %T", dst)
	}
}
