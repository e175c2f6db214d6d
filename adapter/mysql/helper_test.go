package mysql_test

import (
	"context"
	"fmt"
	"testing"

	"go.llib.dev/frameless/pkg/env"
	"go.llib.dev/testcase/assert"
	"go.llib.dev/testcase/random"

	"go.llib.dev/userstream/adapter/mysql"
)

var rnd = random.New(random.CryptoSeed{})

func DatabaseDSN(tb testing.TB) string {
	const envKey = "MYSQL_DATABASE_DSN"
	u, ok, err := env.Lookup[string](envKey)
	assert.NoError(tb, err)
	if !ok {
		tb.Skipf("env variable is missing %s", envKey)
	}
	return u
}

// NewProvider connects to the test database with a table that is unique to the test.
func NewProvider(tb testing.TB) *mysql.Provider {
	p, err := mysql.Connect(mysql.Config{
		DSN:   DatabaseDSN(tb),
		Table: fmt.Sprintf("user_data_%d", rnd.IntB(100000, 999999)),
	})
	assert.NoError(tb, err)
	tb.Cleanup(func() {
		assert.NoError(tb, p.DropTable(context.Background()))
		assert.NoError(tb, p.Close())
	})
	return p
}
