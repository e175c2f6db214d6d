// Package fixtures creates populated users for tests and for seeding development databases.
package fixtures

import (
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/Pallinder/go-randomdata"
	uuid "github.com/satori/go.uuid"

	"go.llib.dev/userstream"
)

var mutex sync.Mutex

// NewID returns a new user_id value.
func NewID() string {
	return uuid.NewV4().String()
}

// User returns a random user with a fresh id.
// The age is a whole number of years between 18 and 80.
func User() userstream.User {
	mutex.Lock()
	defer mutex.Unlock()
	return userstream.User{
		ID:    NewID(),
		Name:  randomdata.FullName(randomdata.RandomGender),
		Email: randomdata.Email(),
		Age:   float64(randomdata.Number(18, 81)),
	}
}

// Users returns n random users with unique ids and unique emails.
func Users(n int) []userstream.User {
	users := make([]userstream.User, 0, n)
	for i := 0; i < n; i++ {
		u := User()
		u.Email = uniqueEmail(u.Email, u.ID)
		users = append(users, u)
	}
	return users
}

// WithAges returns one random user per age, in the order of ages.
func WithAges(ages ...float64) []userstream.User {
	users := Users(len(ages))
	for i, age := range ages {
		users[i].Age = age
	}
	return users
}

func uniqueEmail(email, id string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return fmt.Sprintf("%s@example.com", id)
	}
	return fmt.Sprintf("%s+%s@%s", local, id[:8], domain)
}

// Seq turns users into the source shape that userstream.Schema.Insert and userstream.Bootstrap consume.
func Seq(users []userstream.User) iter.Seq2[userstream.User, error] {
	return func(yield func(userstream.User, error) bool) {
		for _, u := range users {
			if !yield(u, nil) {
				return
			}
		}
	}
}
