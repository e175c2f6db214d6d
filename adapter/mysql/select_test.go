package mysql_test

import (
	"testing"

	"go.llib.dev/testcase/assert"

	"go.llib.dev/userstream"
	"go.llib.dev/userstream/adapter/mysql"
	"go.llib.dev/userstream/adapter/mysql/internal/queries"
)

func TestSelectQuery(t *testing.T) {
	t.Run("full projection", func(t *testing.T) {
		query, args, err := mysql.SelectQuery("user_data", userstream.Query{OrderBy: userstream.ColumnID})
		assert.NoError(t, err)
		assert.Equal(t, "SELECT `user_id`, `name`, `email`, `age` FROM `user_data` ORDER BY `user_id`", query)
		assert.Empty(t, args)
	})

	t.Run("page", func(t *testing.T) {
		query, args, err := mysql.SelectQuery("user_data", userstream.Query{
			Columns: []userstream.Column{userstream.ColumnAge},
			OrderBy: userstream.ColumnID,
			Limit:   4,
			Offset:  8,
		})
		assert.NoError(t, err)
		assert.Equal(t, "SELECT `age` FROM `user_data` ORDER BY `user_id` LIMIT ? OFFSET ?", query)
		assert.Equal(t, []any{4, 8}, args)
	})

	t.Run("offset without limit", func(t *testing.T) {
		_, args, err := mysql.SelectQuery("user_data", userstream.Query{Offset: 2})
		assert.NoError(t, err)
		assert.Equal(t, []any{queries.MaxLimit, 2}, args)
	})

	t.Run("invalid column", func(t *testing.T) {
		_, _, err := mysql.SelectQuery("user_data", userstream.Query{OrderBy: "age; --"})
		assert.Error(t, err)
	})
}
