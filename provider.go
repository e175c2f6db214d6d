package userstream

//go:generate mockgen -destination mocks_test.go -source provider.go -package userstream_test

import (
	"context"
	"io"
	"iter"
)

// Provider opens connections to the store that holds the user table.
// Every successful Connect must be paired with exactly one Conn.Close.
type Provider interface {
	Connect(ctx context.Context) (Conn, error)
}

// Conn is a single connection, owned by exactly one stream at a time.
type Conn interface {
	// Select starts a query over the user table.
	// The returned Rows hold the cursor state until they are closed.
	Select(ctx context.Context, q Query) (Rows, error)
	io.Closer
}

// Rows is the server-side cursor of an active Select.
type Rows interface {
	io.Closer
	// Next prepares the next row for reading.
	// It reports false when the result set is exhausted or an error occurred.
	Next() bool
	// Scan reads the columns of the current row into dest, positionally.
	Scan(dest ...any) error
	// Err returns the error, if any, that was encountered during iteration.
	Err() error
}

// Query describes a read against the user table.
type Query struct {
	// Columns is the projection. When empty, UserColumns is used.
	Columns []Column
	// OrderBy is the ordering key of the result. When empty, the store's own order is used.
	OrderBy Column
	// Limit bounds the number of returned rows. Zero means unbounded.
	Limit int
	// Offset skips the first n rows of the ordered result.
	Offset int
}

func (q Query) GetColumns() []Column {
	if len(q.Columns) == 0 {
		return UserColumns
	}
	return q.Columns
}

// Schema is the bootstrap side of a store.
type Schema interface {
	// EnsureSchema creates the database and the user table when they are missing.
	// It must be safe to call repeatedly.
	EnsureSchema(ctx context.Context) error
	// Count returns the number of users in the table.
	Count(ctx context.Context) (int, error)
	// Insert stores the users, ignoring rows whose id or email already exists.
	// It returns the number of users that were actually inserted.
	Insert(ctx context.Context, users iter.Seq2[User, error]) (int, error)
}
