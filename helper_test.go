package userstream_test

import (
	"fmt"
	"iter"

	"go.llib.dev/userstream"
)

// usersWithAges returns users whose ids follow the order of ages,
// so streams ordered by user_id yield them in the same order.
func usersWithAges(ages ...float64) []userstream.User {
	users := make([]userstream.User, 0, len(ages))
	for i, age := range ages {
		users = append(users, userstream.User{
			ID:    fmt.Sprintf("user-%04d", i),
			Name:  fmt.Sprintf("User %d", i),
			Email: fmt.Sprintf("user%d@example.com", i),
			Age:   age,
		})
	}
	return users
}

func usersN(n int) []userstream.User {
	ages := make([]float64, n)
	for i := range ages {
		ages[i] = float64(18 + i%60)
	}
	return usersWithAges(ages...)
}

func collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var vs []T
	for v, err := range seq {
		if err != nil {
			return vs, err
		}
		vs = append(vs, v)
	}
	return vs, nil
}

func sizes[T ~[]userstream.User](groups []T) []int {
	var out []int
	for _, g := range groups {
		out = append(out, len(g))
	}
	return out
}

func flatten[T ~[]userstream.User](groups []T) []userstream.User {
	var out []userstream.User
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func seq(users []userstream.User) iter.Seq2[userstream.User, error] {
	return func(yield func(userstream.User, error) bool) {
		for _, u := range users {
			if !yield(u, nil) {
				return
			}
		}
	}
}
