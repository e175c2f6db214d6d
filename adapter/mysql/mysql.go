// Package mysql implements the userstream store ports on top of MySQL and MariaDB.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"go.llib.dev/frameless/pkg/errorkit"
	"go.llib.dev/frameless/pkg/flsql"
	"go.llib.dev/frameless/pkg/logger"
	"go.llib.dev/frameless/pkg/logging"

	"go.llib.dev/userstream"
	"go.llib.dev/userstream/adapter/mysql/internal/queries"
)

// Config is the connection configuration of the Provider.
type Config struct {
	// DSN [optional] overrides the connection settings below when given.
	DSN string `env:"MYSQL_DATABASE_DSN"`

	Host     string `env:"MYSQL_HOST" default:"localhost"`
	Port     int    `env:"MYSQL_PORT" default:"3306"`
	User     string `env:"MYSQL_USER" default:"root"`
	Password string `env:"MYSQL_PASSWORD"`
	Database string `env:"MYSQL_DATABASE" default:"ALX_prodev"`
	Table    string `env:"MYSQL_TABLE" default:"user_data"`
}

func (c Config) driverConfig() (*mysql.Config, error) {
	if c.DSN != "" {
		return mysql.ParseDSN(c.DSN)
	}
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	cfg.DBName = c.Database
	return cfg, nil
}

func (c Config) table() string {
	if c.Table == "" {
		return "user_data"
	}
	return c.Table
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

func (c Config) validate(cfg *mysql.Config) error {
	if cfg.DBName == "" {
		return fmt.Errorf("mysql: missing database name")
	}
	if !identifier.MatchString(cfg.DBName) {
		return fmt.Errorf("mysql: invalid database name: %q", cfg.DBName)
	}
	if !identifier.MatchString(c.table()) {
		return fmt.Errorf("mysql: invalid table name: %q", c.table())
	}
	return nil
}

// Provider hands out dedicated connections from a connection pool.
// Every userstream.Conn is a single *sql.Conn, returned to the pool on Close.
type Provider struct {
	DB     *sql.DB
	Config Config

	database string
	server   *mysql.Config
}

// Connect prepares a Provider. No connection is opened until it is needed.
func Connect(c Config) (*Provider, error) {
	cfg, err := c.driverConfig()
	if err != nil {
		return nil, userstream.ErrConnection.Wrap(err)
	}
	if err := c.validate(cfg); err != nil {
		return nil, userstream.ErrInvalidArgument.Wrap(err)
	}
	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, userstream.ErrConnection.Wrap(err)
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)

	server := cfg.Clone()
	server.DBName = ""
	return &Provider{
		DB:       db,
		Config:   c,
		database: cfg.DBName,
		server:   server,
	}, nil
}

func (p *Provider) Connect(ctx context.Context) (userstream.Conn, error) {
	c, err := p.DB.Conn(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug(ctx, "mysql connection acquired", logging.Field("database", p.database))
	return &conn{Conn: c, table: p.Config.table()}, nil
}

// Close closes the underlying connection pool.
func (p *Provider) Close() error {
	return p.DB.Close()
}

// EnsureSchema creates the database and the user table if they don't exist yet.
func (p *Provider) EnsureSchema(ctx context.Context) (rErr error) {
	server, err := sql.Open("mysql", p.server.FormatDSN())
	if err != nil {
		return err
	}
	defer errorkit.Finish(&rErr, server.Close)
	if _, err := server.ExecContext(ctx, fmt.Sprintf(queries.CreateDatabaseTmpl, p.database)); err != nil {
		return err
	}
	if _, err := p.DB.ExecContext(ctx, fmt.Sprintf(queries.CreateTableUsersTmpl, p.Config.table())); err != nil {
		return err
	}
	logger.Info(ctx, "mysql user table is ready",
		logging.Field("database", p.database),
		logging.Field("table", p.Config.table()))
	return nil
}

// DropTable removes the user table. It is meant for test cleanup.
func (p *Provider) DropTable(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, fmt.Sprintf(queries.DropTableTmpl, p.Config.table()))
	return err
}

func (p *Provider) Count(ctx context.Context) (int, error) {
	var n int
	err := p.DB.QueryRowContext(ctx, fmt.Sprintf(queries.CountTmpl, p.Config.table())).Scan(&n)
	return n, err
}

// Insert stores the users in a single transaction with INSERT IGNORE,
// so rows with an existing user_id or email are skipped.
func (p *Provider) Insert(ctx context.Context, users iter.Seq2[userstream.User, error]) (_ int, rErr error) {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if rErr != nil {
			rErr = errorkit.Merge(rErr, tx.Rollback())
			return
		}
		rErr = tx.Commit()
	}()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(queries.InsertIgnoreUserTmpl, p.Config.table()))
	if err != nil {
		return 0, err
	}
	defer errorkit.Finish(&rErr, stmt.Close)

	var inserted int
	for u, err := range users {
		if err != nil {
			return inserted, err
		}
		res, err := stmt.ExecContext(ctx, u.ID, u.Name, u.Email, u.Age)
		if err != nil {
			return inserted, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, err
		}
		inserted += int(n)
	}
	return inserted, nil
}

type conn struct {
	Conn  *sql.Conn
	table string
}

func (c *conn) Select(ctx context.Context, q userstream.Query) (userstream.Rows, error) {
	query, args, err := selectQuery(c.table, q)
	if err != nil {
		return nil, err
	}
	logger.Debug(ctx, "executing mysql select", logging.Field("query", query))
	rows, err := c.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *conn) Close() error {
	return c.Conn.Close()
}

func selectQuery(table string, q userstream.Query) (string, []any, error) {
	cols := q.GetColumns()
	for _, col := range cols {
		if !identifier.MatchString(string(col)) {
			return "", nil, fmt.Errorf("mysql: invalid column name: %q", col)
		}
	}
	if q.OrderBy != "" && !identifier.MatchString(string(q.OrderBy)) {
		return "", nil, fmt.Errorf("mysql: invalid order by column: %q", q.OrderBy)
	}
	var (
		query strings.Builder
		args  []any
	)
	fmt.Fprintf(&query, "SELECT %s FROM `%s`", flsql.JoinColumnName(cols, "`%s`", ", "), table)
	if q.OrderBy != "" {
		fmt.Fprintf(&query, " ORDER BY `%s`", q.OrderBy)
	}
	switch {
	case 0 < q.Limit:
		query.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, q.Limit, q.Offset)
	case 0 < q.Offset:
		query.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, queries.MaxLimit, q.Offset)
	}
	return query.String(), args, nil
}
