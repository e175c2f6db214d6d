package userstream

import (
	"context"

	"go.llib.dev/frameless/pkg/errorkit"
	"go.llib.dev/frameless/pkg/flsql"
	"go.llib.dev/frameless/pkg/logger"
	"go.llib.dev/frameless/pkg/logging"
)

// ScanFunc maps the current row of a cursor into a value.
type ScanFunc[T any] func(flsql.Scanner) (T, error)

// Cursor wraps one connection and one active query, and hands out rows one at a time.
// It is the single source of truth for exhaustion: once Next reported the end of the stream,
// it keeps reporting it.
//
// A Cursor is not safe for concurrent use.
type Cursor[T any] struct {
	conn Conn
	rows Rows
	scan ScanFunc[T]

	done   bool
	closed bool
	err    error
}

// OpenCursor connects to the store and starts the query.
// Connection failures are reported as ErrConnection, query failures as ErrStream.
// On failure, nothing is left open.
func OpenCursor[T any](ctx context.Context, p Provider, q Query, scan ScanFunc[T]) (*Cursor[T], error) {
	conn, err := p.Connect(ctx)
	if err != nil {
		return nil, ErrConnection.Wrap(err)
	}
	rows, err := conn.Select(ctx, q)
	if err != nil {
		return nil, errorkit.Merge(ErrStream.Wrap(err), conn.Close())
	}
	logger.Debug(ctx, "userstream cursor opened",
		logging.Field("order_by", string(q.OrderBy)),
		logging.Field("limit", q.Limit),
		logging.Field("offset", q.Offset))
	return &Cursor[T]{
		conn: conn,
		rows: rows,
		scan: scan,
	}, nil
}

// Next advances the cursor by exactly one row.
// The boolean result is false at the end of the stream.
// When an error is returned, the cursor has already released its connection.
// A failure to release the connection at the end of the stream is reported as ErrStream as well.
func (c *Cursor[T]) Next() (T, bool, error) {
	var zero T
	if c.done {
		return zero, false, nil
	}
	if !c.rows.Next() {
		c.done = true
		if err := c.rows.Err(); err != nil {
			return zero, false, c.fail(err)
		}
		if err := c.Close(); err != nil {
			return zero, false, ErrStream.Wrap(err)
		}
		return zero, false, nil
	}
	v, err := c.scan(c.rows)
	if err != nil {
		c.done = true
		return zero, false, c.fail(err)
	}
	return v, true, nil
}

func (c *Cursor[T]) fail(err error) error {
	return errorkit.Merge(ErrStream.Wrap(err), c.Close())
}

// Close releases the rows and the connection.
// It is safe to call multiple times; only the first call releases anything.
func (c *Cursor[T]) Close() error {
	if c.closed {
		return c.err
	}
	c.closed = true
	c.done = true
	c.err = errorkit.Merge(c.rows.Close(), c.conn.Close())
	return c.err
}
