// Package postgresql implements the userstream store ports on top of PostgreSQL with pgx.
package postgresql

import (
	"context"
	"fmt"
	"iter"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"

	"go.llib.dev/frameless/pkg/errorkit"
	"go.llib.dev/frameless/pkg/flsql"
	"go.llib.dev/frameless/pkg/logger"
	"go.llib.dev/frameless/pkg/logging"

	"go.llib.dev/userstream"
	"go.llib.dev/userstream/adapter/postgresql/internal/queries"
)

type Config struct {
	URL   string `env:"POSTGRES_DATABASE_URL" default:"postgres://postgres@localhost:5432/alx_prodev?sslmode=disable"`
	Table string `env:"POSTGRES_TABLE" default:"user_data"`
	// MaintenanceDatabase is the database used to create the target database when it is missing.
	MaintenanceDatabase string `env:"POSTGRES_MAINTENANCE_DATABASE" default:"postgres"`
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Provider dials a new, unpooled connection for every userstream.Conn.
type Provider struct {
	Config Config

	connConfig *pgx.ConnConfig
}

func Connect(c Config) (*Provider, error) {
	cc, err := pgx.ParseConfig(c.URL)
	if err != nil {
		return nil, userstream.ErrConnection.Wrap(err)
	}
	if c.Table == "" {
		c.Table = "user_data"
	}
	if !identifier.MatchString(c.Table) {
		return nil, userstream.ErrInvalidArgument.F("postgresql: invalid table name: %q", c.Table)
	}
	if c.MaintenanceDatabase == "" {
		c.MaintenanceDatabase = "postgres"
	}
	return &Provider{Config: c, connConfig: cc}, nil
}

func (p *Provider) table() string {
	return pgx.Identifier{p.Config.Table}.Sanitize()
}

func (p *Provider) Connect(ctx context.Context) (userstream.Conn, error) {
	c, err := pgx.ConnectConfig(ctx, p.connConfig.Copy())
	if err != nil {
		return nil, err
	}
	logger.Debug(ctx, "postgresql connection opened", logging.Field("database", p.connConfig.Database))
	return &conn{Conn: c, table: p.table()}, nil
}

func (p *Provider) connect(ctx context.Context) (*pgx.Conn, error) {
	return pgx.ConnectConfig(ctx, p.connConfig.Copy())
}

// EnsureSchema creates the database and the user table if they don't exist yet.
func (p *Provider) EnsureSchema(ctx context.Context) (rErr error) {
	if err := p.ensureDatabase(ctx); err != nil {
		return err
	}
	c, err := p.connect(ctx)
	if err != nil {
		return err
	}
	defer errorkit.Finish(&rErr, func() error { return c.Close(context.Background()) })
	if _, err := c.Exec(ctx, fmt.Sprintf(queries.CreateTableUsersTmpl, p.table())); err != nil {
		return err
	}
	logger.Info(ctx, "postgresql user table is ready",
		logging.Field("database", p.connConfig.Database),
		logging.Field("table", p.Config.Table))
	return nil
}

func (p *Provider) ensureDatabase(ctx context.Context) (rErr error) {
	database := p.connConfig.Database
	if database == "" || database == p.Config.MaintenanceDatabase {
		return nil
	}
	mc := p.connConfig.Copy()
	mc.Database = p.Config.MaintenanceDatabase
	c, err := pgx.ConnectConfig(ctx, mc)
	if err != nil {
		return err
	}
	defer errorkit.Finish(&rErr, func() error { return c.Close(context.Background()) })
	var exists bool
	if err := c.QueryRow(ctx, queries.DatabaseExists, database).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = c.Exec(ctx, fmt.Sprintf(queries.CreateDatabaseTmpl, pgx.Identifier{database}.Sanitize()))
	return err
}

// DropTable removes the user table. It is meant for test cleanup.
func (p *Provider) DropTable(ctx context.Context) (rErr error) {
	c, err := p.connect(ctx)
	if err != nil {
		return err
	}
	defer errorkit.Finish(&rErr, func() error { return c.Close(context.Background()) })
	_, err = c.Exec(ctx, fmt.Sprintf(queries.DropTableTmpl, p.table()))
	return err
}

func (p *Provider) Count(ctx context.Context) (_ int, rErr error) {
	c, err := p.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer errorkit.Finish(&rErr, func() error { return c.Close(context.Background()) })
	var n int
	err = c.QueryRow(ctx, fmt.Sprintf(queries.CountTmpl, p.table())).Scan(&n)
	return n, err
}

// Insert stores the users in a single transaction,
// skipping rows that conflict on user_id or email.
func (p *Provider) Insert(ctx context.Context, users iter.Seq2[userstream.User, error]) (_ int, rErr error) {
	c, err := p.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer errorkit.Finish(&rErr, func() error { return c.Close(context.Background()) })

	tx, err := c.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if rErr != nil {
			rErr = errorkit.Merge(rErr, tx.Rollback(context.Background()))
			return
		}
		rErr = tx.Commit(ctx)
	}()

	query := fmt.Sprintf(queries.InsertUserOnConflictDoNothingTmpl, p.table())
	var inserted int
	for u, err := range users {
		if err != nil {
			return inserted, err
		}
		tag, err := tx.Exec(ctx, query, u.ID, u.Name, u.Email, u.Age)
		if err != nil {
			return inserted, err
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

type conn struct {
	Conn  *pgx.Conn
	table string
}

func (c *conn) Select(ctx context.Context, q userstream.Query) (userstream.Rows, error) {
	query, args, err := selectQuery(c.table, q)
	if err != nil {
		return nil, err
	}
	logger.Debug(ctx, "executing postgresql select", logging.Field("query", query))
	rows, err := c.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rowsAdapter{Rows: rows}, nil
}

// Close closes the connection regardless of the stream's context,
// so a cancelled stream still releases it.
func (c *conn) Close() error {
	return c.Conn.Close(context.Background())
}

type rowsAdapter struct{ pgx.Rows }

func (a rowsAdapter) Close() error {
	a.Rows.Close()
	return nil
}

func selectQuery(table string, q userstream.Query) (string, []any, error) {
	cols := q.GetColumns()
	for _, col := range cols {
		if !identifier.MatchString(string(col)) {
			return "", nil, fmt.Errorf("postgresql: invalid column name: %q", col)
		}
	}
	if q.OrderBy != "" && !identifier.MatchString(string(q.OrderBy)) {
		return "", nil, fmt.Errorf("postgresql: invalid order by column: %q", q.OrderBy)
	}
	var (
		query strings.Builder
		args  []any
		param = 0
	)
	next := func() string {
		param++
		return fmt.Sprintf("$%d", param)
	}
	fmt.Fprintf(&query, "SELECT %s FROM %s", flsql.JoinColumnName(cols, `"%s"`, ", "), table)
	if q.OrderBy != "" {
		fmt.Fprintf(&query, ` ORDER BY "%s"`, q.OrderBy)
	}
	if 0 < q.Limit {
		fmt.Fprintf(&query, " LIMIT %s", next())
		args = append(args, q.Limit)
	}
	if 0 < q.Offset {
		fmt.Fprintf(&query, " OFFSET %s", next())
		args = append(args, q.Offset)
	}
	return query.String(), args, nil
}
