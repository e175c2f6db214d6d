// Package csvimport reads user rows from a tabular file
// with a header row and the user_id, name, email, age columns.
package csvimport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"
	"strings"

	"go.llib.dev/frameless/pkg/errorkit"
	"go.llib.dev/frameless/pkg/logger"
	"go.llib.dev/frameless/pkg/logging"

	"go.llib.dev/userstream"
	"go.llib.dev/userstream/fixtures"
)

const ErrMalformedRow errorkit.Error = "csvimport: malformed row"

// Read streams the users of a CSV document.
// The first record is the header. Columns are matched by header name when the header names them,
// otherwise the user_id, name, email, age positional order is assumed.
//
// Malformed rows are skipped and logged, they don't stop the import.
// A row with an empty user_id receives a freshly generated one.
func Read(ctx context.Context, r io.Reader) iter.Seq2[userstream.User, error] {
	return func(yield func(userstream.User, error) bool) {
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true

		header, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			yield(userstream.User{}, err)
			return
		}
		idx := indexHeader(header)

		var line int = 1
		for {
			line++
			record, err := cr.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				var perr *csv.ParseError
				if errors.As(err, &perr) {
					logger.Warn(ctx, "skipping unparsable csv row", logging.Field("line", line), logging.ErrField(err))
					continue
				}
				yield(userstream.User{}, err)
				return
			}
			u, err := idx.user(record)
			if err != nil {
				logger.Warn(ctx, "skipping csv row", logging.Field("line", line), logging.ErrField(err))
				continue
			}
			if !yield(u, nil) {
				return
			}
		}
	}
}

// ReadFile is Read over the file at path. The file is closed when the iteration ends.
func ReadFile(ctx context.Context, path string) iter.Seq2[userstream.User, error] {
	return func(yield func(userstream.User, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield(userstream.User{}, err)
			return
		}
		defer func() {
			if err := f.Close(); err != nil {
				logger.Warn(ctx, "failed to close csv file", logging.Field("path", path), logging.ErrField(err))
			}
		}()
		for u, err := range Read(ctx, f) {
			if !yield(u, err) {
				return
			}
			if err != nil {
				return
			}
		}
	}
}

type columnIndex struct {
	id, name, email, age int
}

func indexHeader(header []string) columnIndex {
	idx := columnIndex{id: 0, name: 1, email: 2, age: 3}
	named := columnIndex{id: -1, name: -1, email: -1, age: -1}
	for i, h := range header {
		switch userstream.Column(strings.ToLower(strings.TrimSpace(h))) {
		case userstream.ColumnID, "id":
			named.id = i
		case userstream.ColumnName:
			named.name = i
		case userstream.ColumnEmail:
			named.email = i
		case userstream.ColumnAge:
			named.age = i
		}
	}
	if 0 <= named.name && 0 <= named.email && 0 <= named.age {
		return named
	}
	return idx
}

func (idx columnIndex) user(record []string) (userstream.User, error) {
	get := func(i int) string {
		if i < 0 || len(record) <= i {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	u := userstream.User{
		ID:    get(idx.id),
		Name:  get(idx.name),
		Email: get(idx.email),
	}
	if u.Name == "" {
		return u, ErrMalformedRow.F("missing name")
	}
	if u.Email == "" {
		return u, ErrMalformedRow.F("missing email")
	}
	age, err := strconv.ParseFloat(get(idx.age), 64)
	if err != nil {
		return u, ErrMalformedRow.Wrap(fmt.Errorf("invalid age: %w", err))
	}
	u.Age = age
	if u.ID == "" {
		u.ID = fixtures.NewID()
	}
	return u, nil
}
