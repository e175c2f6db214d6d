// Package userstreamcontracts holds the behaviour every userstream store adapter must satisfy.
package userstreamcontracts

import (
	"context"
	"iter"
	"math"
	"testing"

	"go.llib.dev/frameless/port/contract"
	"go.llib.dev/testcase"

	"go.llib.dev/userstream"
	"go.llib.dev/userstream/fixtures"
)

// Subject is a store under test.
// MakeSubject must return a store with an empty, isolated user table,
// and is expected to register its own cleanup on the testing.TB.
type Subject struct {
	Provider userstream.Provider
	Schema   userstream.Schema
}

func Store(mk func(testing.TB) Subject) contract.Contract {
	s := testcase.NewSpec(nil)

	subject := testcase.Let(s, func(t *testcase.T) Subject {
		return mk(t)
	})
	streamer := testcase.Let(s, func(t *testcase.T) userstream.Streamer {
		return userstream.Streamer{Provider: subject.Get(t).Provider}
	})
	users := testcase.Let(s, func(t *testcase.T) []userstream.User {
		return fixtures.Users(t.Random.IntB(7, 23))
	})
	s.Before(func(t *testcase.T) {
		t.Must.NoError(userstream.Bootstrap(context.Background(), subject.Get(t).Schema, fixtures.Seq(users.Get(t))))
	})

	// expected is the content of the table in the order of the store's collation of the ordering key.
	expected := testcase.Let(s, func(t *testcase.T) []userstream.User {
		return collect(t, streamer.Get(t).Rows(context.Background()))
	})

	s.Test("bootstrap is idempotent and seeds only a missing table", func(t *testcase.T) {
		ctx := context.Background()
		schema := subject.Get(t).Schema
		t.Must.NoError(userstream.Bootstrap(ctx, schema, fixtures.Seq(fixtures.Users(3))))
		n, err := schema.Count(ctx)
		t.Must.NoError(err)
		t.Must.Equal(len(users.Get(t)), n)
	})

	s.Test("insert ignores users that already exist", func(t *testcase.T) {
		ctx := context.Background()
		schema := subject.Get(t).Schema
		inserted, err := schema.Insert(ctx, fixtures.Seq(users.Get(t)[:1]))
		t.Must.NoError(err)
		t.Must.Equal(0, inserted)
	})

	s.Test("rows yields every user exactly once", func(t *testcase.T) {
		got := collect(t, streamer.Get(t).Rows(context.Background()))
		t.Must.Equal(len(users.Get(t)), len(got))
		t.Must.ContainExactly(users.Get(t), got)
	})

	s.Test("rows are ordered by the ordering key", func(t *testcase.T) {
		t.Must.Equal(expected.Get(t), collect(t, streamer.Get(t).Rows(context.Background())))
	})

	s.Test("rows can be iterated again after an early exit", func(t *testcase.T) {
		ctx := context.Background()
		rows := streamer.Get(t).Rows(ctx)
		for u, err := range rows {
			t.Must.NoError(err)
			t.Must.Equal(expected.Get(t)[0], u)
			break
		}
		t.Must.Equal(expected.Get(t), collect(t, rows))
	})

	s.Test("ages follow the rows", func(t *testcase.T) {
		var exp []float64
		for _, u := range expected.Get(t) {
			exp = append(exp, u.Age)
		}
		t.Must.Equal(exp, collect(t, streamer.Get(t).Ages(context.Background())))
	})

	s.Test("batches concatenate into the rows", func(t *testcase.T) {
		size := t.Random.IntB(1, len(users.Get(t))+2)
		batches := collect(t, streamer.Get(t).Batches(context.Background(), size))
		var got []userstream.User
		for i, batch := range batches {
			t.Must.NotEmpty(batch)
			if i < len(batches)-1 {
				t.Must.Equal(size, len(batch))
			}
			got = append(got, batch...)
		}
		t.Must.Equal(expected.Get(t), got)
	})

	s.Test("filter is independent from the batch size", func(t *testcase.T) {
		var (
			age  = float64(t.Random.IntB(18, 80))
			size = t.Random.IntB(1, len(users.Get(t))+2)
			exp  []userstream.User
		)
		for _, u := range expected.Get(t) {
			if u.Age > age {
				exp = append(exp, u)
			}
		}
		got := collect(t, streamer.Get(t).Filter(context.Background(), size, userstream.OlderThan(age)))
		t.Must.Equal(len(exp), len(got))
		if 0 < len(exp) {
			t.Must.Equal(exp, got)
		}
	})

	s.Test("pages concatenate into the rows", func(t *testcase.T) {
		size := t.Random.IntB(1, len(users.Get(t))+2)
		var got []userstream.User
		for _, page := range collect(t, streamer.Get(t).Pages(context.Background(), size)) {
			t.Must.NotEmpty(page)
			t.Must.True(len(page) <= size)
			got = append(got, page...)
		}
		t.Must.Equal(expected.Get(t), got)
	})

	s.Test("average age is the mean of every age", func(t *testcase.T) {
		var sum float64
		for _, u := range users.Get(t) {
			sum += u.Age
		}
		exp := sum / float64(len(users.Get(t)))
		got, err := streamer.Get(t).AverageAge(context.Background())
		t.Must.NoError(err)
		t.Must.True(math.Abs(exp-got) < 0.000001)
	})

	s.Context("when the table is empty", func(s *testcase.Spec) {
		users.Let(s, func(t *testcase.T) []userstream.User { return nil })

		s.Test("every stream ends without yielding", func(t *testcase.T) {
			ctx := context.Background()
			st := streamer.Get(t)
			t.Must.Empty(collect(t, st.Rows(ctx)))
			t.Must.Empty(collect(t, st.Batches(ctx, 3)))
			t.Must.Empty(collect(t, st.Pages(ctx, 3)))
			t.Must.Empty(collect(t, st.Filter(ctx, 3, userstream.OlderThan(25))))
		})

		s.Test("average age is zero", func(t *testcase.T) {
			got, err := streamer.Get(t).AverageAge(context.Background())
			t.Must.NoError(err)
			t.Must.Equal(float64(0), got)
		})
	})

	return s.AsSuite("userstream.Store")
}

func collect[T any](t *testcase.T, seq iter.Seq2[T, error]) []T {
	t.Helper()
	var vs []T
	for v, err := range seq {
		t.Must.NoError(err)
		vs = append(vs, v)
	}
	return vs
}
