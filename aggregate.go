package userstream

import (
	"context"
	"iter"
)

// Number is the set of values a Mean can aggregate.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Mean is a running arithmetic mean.
// It only keeps the sum and the count, never the observed values.
type Mean struct {
	Sum   float64
	Count int
}

func (m *Mean) Add(v float64) {
	m.Sum += v
	m.Count++
}

// Value returns the mean of the observed values, or 0 when nothing was observed.
func (m Mean) Value() float64 {
	if m.Count == 0 {
		return 0
	}
	return m.Sum / float64(m.Count)
}

// MeanOf consumes seq into a Mean, using constant memory.
// The first error of the sequence stops the consumption and is returned.
func MeanOf[N Number](seq iter.Seq2[N, error]) (Mean, error) {
	var m Mean
	for v, err := range seq {
		if err != nil {
			return Mean{}, err
		}
		m.Add(float64(v))
	}
	return m, nil
}

// Average returns the mean of the values of seq.
// An empty sequence averages to 0.
func Average[N Number](seq iter.Seq2[N, error]) (float64, error) {
	m, err := MeanOf(seq)
	if err != nil {
		return 0, err
	}
	return m.Value(), nil
}

// AgeMean streams the age column into a Mean.
func (s Streamer) AgeMean(ctx context.Context) (Mean, error) {
	return MeanOf(s.Ages(ctx))
}

// AverageAge streams the age column and returns its mean.
func (s Streamer) AverageAge(ctx context.Context) (float64, error) {
	m, err := s.AgeMean(ctx)
	if err != nil {
		return 0, err
	}
	return m.Value(), nil
}
