package userstream

import (
	"context"
	"iter"
)

// OffsetStore persists the position of a resumable page stream.
type OffsetStore interface {
	// LoadOffset returns the stored offset of the named stream.
	LoadOffset(ctx context.Context, name string) (offset int, found bool, err error)
	// SaveOffset stores the offset from which the named stream continues.
	SaveOffset(ctx context.Context, name string, offset int) error
}

// ResumablePages is Pages, continued from the offset stored under name.
// The offset after a page is committed once the consumer finished its loop body for it,
// so delivery is at-least-once: a page in which the consumer stopped is yielded again by the next run.
func (s Streamer) ResumablePages(ctx context.Context, store OffsetStore, name string, size int) iter.Seq2[Page, error] {
	return func(yield func(Page, error) bool) {
		offset, _, err := store.LoadOffset(ctx, name)
		if err != nil {
			yield(nil, err)
			return
		}
		for page, err := range s.PagesFrom(ctx, size, offset) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(page, nil) {
				return
			}
			offset += len(page)
			if err := store.SaveOffset(ctx, name, offset); err != nil {
				yield(nil, err)
				return
			}
		}
	}
}
