// Package memory is an in-process implementation of the userstream store ports.
// It is primarily meant for testing: the Provider keeps count of every connection
// it hands out and can be told to fail at any step of a stream.
package memory

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync"

	"go.llib.dev/frameless/pkg/errorkit"

	"go.llib.dev/userstream"
)

const ErrClosed errorkit.Error = "memory: use of closed connection"

// Table is an in-memory user table that keeps insertion order.
type Table struct {
	mutex sync.RWMutex
	users []userstream.User
}

func NewTable(users ...userstream.User) *Table {
	t := &Table{}
	for _, u := range users {
		t.insert(u)
	}
	return t
}

// EnsureSchema implements userstream.Schema.
func (t *Table) EnsureSchema(ctx context.Context) error {
	return ctx.Err()
}

// Count implements userstream.Schema.
func (t *Table) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return len(t.users), nil
}

// Insert implements userstream.Schema.
// Users with an already taken id or email are ignored.
func (t *Table) Insert(ctx context.Context, users iter.Seq2[userstream.User, error]) (int, error) {
	var n int
	for u, err := range users {
		if err != nil {
			return n, err
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if t.insert(u) {
			n++
		}
	}
	return n, nil
}

func (t *Table) insert(u userstream.User) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	for _, o := range t.users {
		if o.ID == u.ID || o.Email == u.Email {
			return false
		}
	}
	t.users = append(t.users, u)
	return true
}

// Users returns a copy of the table content in insertion order.
func (t *Table) Users() []userstream.User {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return slices.Clone(t.users)
}

func (t *Table) selectUsers(q userstream.Query) ([]userstream.User, error) {
	t.mutex.RLock()
	users := slices.Clone(t.users)
	t.mutex.RUnlock()

	if q.OrderBy != "" {
		var cmpErr error
		slices.SortStableFunc(users, func(a, b userstream.User) int {
			av, err := columnValue(a, q.OrderBy)
			if err != nil {
				cmpErr = err
				return 0
			}
			bv, _ := columnValue(b, q.OrderBy)
			return compare(av, bv)
		})
		if cmpErr != nil {
			return nil, cmpErr
		}
	}
	for _, col := range q.GetColumns() {
		if _, err := columnValue(userstream.User{}, col); err != nil {
			return nil, err
		}
	}
	if q.Offset < 0 || q.Limit < 0 {
		return nil, fmt.Errorf("memory: invalid range limit=%d offset=%d", q.Limit, q.Offset)
	}
	if len(users) <= q.Offset {
		return nil, nil
	}
	users = users[q.Offset:]
	if 0 < q.Limit && q.Limit < len(users) {
		users = users[:q.Limit]
	}
	return users, nil
}

func columnValue(u userstream.User, col userstream.Column) (any, error) {
	switch col {
	case userstream.ColumnID:
		return u.ID, nil
	case userstream.ColumnName:
		return u.Name, nil
	case userstream.ColumnEmail:
		return u.Email, nil
	case userstream.ColumnAge:
		return u.Age, nil
	default:
		return nil, fmt.Errorf("memory: unknown column %q", col)
	}
}

func compare(a, b any) int {
	switch a := a.(type) {
	case string:
		return strings.Compare(a, b.(string))
	case float64:
		b := b.(float64)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}
