package memory

import (
	"context"
	"sync"
)

// OffsetStore keeps page stream offsets in memory.
type OffsetStore struct {
	mutex   sync.Mutex
	offsets map[string]int
}

func (s *OffsetStore) LoadOffset(ctx context.Context, name string) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	offset, ok := s.offsets[name]
	return offset, ok, nil
}

func (s *OffsetStore) SaveOffset(ctx context.Context, name string, offset int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.offsets == nil {
		s.offsets = make(map[string]int)
	}
	s.offsets[name] = offset
	return nil
}
