// Package userstream streams the rows of the user_data table lazily.
//
// Every stream is an iter.Seq2 that pulls from the backing store only when the consumer asks for
// the next element, so a table of any size can be processed with bounded memory.
// Each iteration owns its own connection, which is released when the iteration ends,
// whether the stream was exhausted, failed, or the consumer stopped early.
package userstream

import (
	"go.llib.dev/frameless/pkg/errorkit"
	"go.llib.dev/frameless/pkg/flsql"
)

const (
	// ErrConnection is returned when a connection to the backing store can't be established.
	ErrConnection errorkit.Error = "userstream: connection error"
	// ErrInvalidArgument is returned for a non-positive batch or page size.
	ErrInvalidArgument errorkit.Error = "userstream: invalid argument"
	// ErrStream is returned when pulling rows or pages fails mid-stream.
	ErrStream errorkit.Error = "userstream: stream error"
	// ErrSchema is returned when the database or the user table can't be created.
	ErrSchema errorkit.Error = "userstream: schema error"
)

// User is a single row of the user_data table.
type User struct {
	ID    string
	Name  string
	Email string
	Age   float64
}

// Batch is a group of users read from one continuously held cursor.
type Batch []User

// Page is a group of users read with an independent bounded range query.
type Page []User

// Column is a column of the user table.
type Column = flsql.ColumnName

const (
	ColumnID    Column = "user_id"
	ColumnName  Column = "name"
	ColumnEmail Column = "email"
	ColumnAge   Column = "age"
)

// UserColumns are the columns of a full User projection, in scan order.
var UserColumns = []Column{ColumnID, ColumnName, ColumnEmail, ColumnAge}

// ScanUser maps a full User projection row.
func ScanUser(s flsql.Scanner) (User, error) {
	var u User
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.Age)
	return u, err
}

// ScanAge maps a row that only projects the age column.
func ScanAge(s flsql.Scanner) (float64, error) {
	var age float64
	err := s.Scan(&age)
	return age, err
}
