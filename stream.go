package userstream

import (
	"context"
	"iter"

	"go.llib.dev/frameless/pkg/logger"
	"go.llib.dev/frameless/pkg/logging"
)

// Streamer produces lazy sequences over the user table of a Provider.
//
// The returned sequences are not restartable in the sense of sharing state:
// every range over them opens a brand-new connection and cursor,
// and two active iterations never share anything.
type Streamer struct {
	Provider Provider
	// OrderBy is the ordering key used by every stream.
	// Page streams rely on it to stay consistent between independent range queries.
	//
	// default: ColumnID
	OrderBy Column
}

func (s Streamer) orderBy() Column {
	if s.OrderBy == "" {
		return ColumnID
	}
	return s.OrderBy
}

// Rows streams the users one by one, in the order the backing query returns them.
func (s Streamer) Rows(ctx context.Context) iter.Seq2[User, error] {
	return cursorSeq(ctx, s.Provider, Query{OrderBy: s.orderBy()}, ScanUser)
}

// Ages streams only the age column of every user.
func (s Streamer) Ages(ctx context.Context) iter.Seq2[float64, error] {
	return cursorSeq(ctx, s.Provider, Query{
		Columns: []Column{ColumnAge},
		OrderBy: s.orderBy(),
	}, ScanAge)
}

// Batches streams the users in groups of size, read from a single held-open cursor.
// Every batch has exactly size users except possibly the last one.
// An empty pull ends the stream and is never yielded.
func (s Streamer) Batches(ctx context.Context, size int) iter.Seq2[Batch, error] {
	if size < 1 {
		return errSeq[Batch](ErrInvalidArgument.F("batch size must be positive, got %d", size))
	}
	return func(yield func(Batch, error) bool) {
		cur, err := OpenCursor(ctx, s.Provider, Query{OrderBy: s.orderBy()}, ScanUser)
		if err != nil {
			yield(nil, err)
			return
		}
		defer release(ctx, cur)
		for {
			batch := make(Batch, 0, size)
			for len(batch) < size {
				u, ok, err := cur.Next()
				if err != nil {
					yield(nil, err)
					return
				}
				if !ok {
					break
				}
				batch = append(batch, u)
			}
			if len(batch) == 0 {
				return
			}
			if !yield(batch, nil) {
				return
			}
		}
	}
}

// Filter draws batches of size and yields, in their original order,
// only the users that satisfy the predicate.
// The predicate is evaluated exactly once per user.
// The batch size never affects the result, only the read granularity.
func (s Streamer) Filter(ctx context.Context, size int, predicate func(User) bool) iter.Seq2[User, error] {
	batches := s.Batches(ctx, size)
	return func(yield func(User, error) bool) {
		for batch, err := range batches {
			if err != nil {
				yield(User{}, err)
				return
			}
			for _, u := range batch {
				if !predicate(u) {
					continue
				}
				if !yield(u, nil) {
					return
				}
			}
		}
	}
}

// OlderThan is a Filter predicate that keeps users strictly older than age.
func OlderThan(age float64) func(User) bool {
	return func(u User) bool { return u.Age > age }
}

// Pages streams the table as pages of size, using a fresh connection and a bounded
// range query for every page. No cursor is held between pages.
// The stream ends on the first empty page, which is not yielded.
func (s Streamer) Pages(ctx context.Context, size int) iter.Seq2[Page, error] {
	return s.PagesFrom(ctx, size, 0)
}

// PagesFrom is Pages, resumed from a previously stored offset.
func (s Streamer) PagesFrom(ctx context.Context, size, offset int) iter.Seq2[Page, error] {
	if size < 1 {
		return errSeq[Page](ErrInvalidArgument.F("page size must be positive, got %d", size))
	}
	if offset < 0 {
		return errSeq[Page](ErrInvalidArgument.F("page offset must not be negative, got %d", offset))
	}
	return func(yield func(Page, error) bool) {
		for {
			page, err := s.fetchPage(ctx, size, offset)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(page) == 0 {
				return
			}
			if !yield(page, nil) {
				return
			}
			offset += size
		}
	}
}

func (s Streamer) fetchPage(ctx context.Context, size, offset int) (Page, error) {
	logger.Debug(ctx, "fetching userstream page",
		logging.Field("limit", size),
		logging.Field("offset", offset))
	cur, err := OpenCursor(ctx, s.Provider, Query{
		OrderBy: s.orderBy(),
		Limit:   size,
		Offset:  offset,
	}, ScanUser)
	if err != nil {
		return nil, err
	}
	defer release(ctx, cur)
	page := make(Page, 0, size)
	for {
		u, ok, err := cur.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return page, nil
		}
		page = append(page, u)
	}
}

func cursorSeq[T any](ctx context.Context, p Provider, q Query, scan ScanFunc[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		cur, err := OpenCursor(ctx, p, q, scan)
		if err != nil {
			yield(zero, err)
			return
		}
		defer release(ctx, cur)
		for {
			v, ok, err := cur.Next()
			if err != nil {
				yield(zero, err)
				return
			}
			if !ok {
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// release closes a cursor when the consumer stops early or a panic unwinds the stream.
// Errors surfaced by Cursor.Next are already released, so this is a no-op for them.
func release[T any](ctx context.Context, cur *Cursor[T]) {
	if cur.closed {
		logger.Debug(ctx, "userstream cursor closed", logging.ErrField(cur.err))
		return
	}
	if err := cur.Close(); err != nil {
		logger.Warn(ctx, "failed to release userstream cursor", logging.ErrField(err))
		return
	}
	logger.Debug(ctx, "userstream cursor released early")
}

func errSeq[T any](err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}
