// Command userstream seeds the user table and streams it from the command line.
//
//	userstream seed [-csv user_data.csv] [-random 100]
//	userstream rows [-limit 6]
//	userstream batches [-size 50]
//	userstream filter [-size 50] [-age 25]
//	userstream pages [-size 100] [-resume name]
//	userstream average
package main

import (
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"os/signal"
	"syscall"

	"go.llib.dev/frameless/pkg/cli"
	"go.llib.dev/frameless/pkg/env"
	"go.llib.dev/frameless/pkg/errorkit"
	"go.llib.dev/frameless/pkg/logger"
	"go.llib.dev/frameless/pkg/logging"

	"go.llib.dev/userstream"
	"go.llib.dev/userstream/adapter/boltdb"
	"go.llib.dev/userstream/adapter/mysql"
	"go.llib.dev/userstream/adapter/postgresql"
	"go.llib.dev/userstream/csvimport"
	"go.llib.dev/userstream/fixtures"
)

type Config struct {
	Driver         string `env:"USERSTREAM_DRIVER" default:"mysql" enum:"mysql;postgres;"`
	CheckpointPath string `env:"USERSTREAM_CHECKPOINT_PATH" default:"userstream.db"`

	MySQL    mysql.Config
	Postgres postgresql.Config
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := setup()
	if err != nil {
		logger.Error(ctx, "userstream setup failed", logging.ErrField(err))
		os.Exit(cli.ExitCodeError)
	}
	mux := app.Mux()
	// cli.Main exits the process, so the store is released inside the handler.
	cli.Main(ctx, cli.HandlerFunc(func(w cli.Response, r *cli.Request) {
		defer func() {
			if err := app.Close(); err != nil {
				logger.Warn(r.Context(), "failed to close the user store", logging.ErrField(err))
			}
		}()
		mux.ServeCLI(w, r)
	}))
}

func setup() (*App, error) {
	var c Config
	if err := env.Load(&c); err != nil {
		return nil, err
	}
	return open(c)
}

// App wires the store of the configured driver to the subcommands.
type App struct {
	Streamer userstream.Streamer
	Schema   userstream.Schema
	// OpenOffsetStore opens the checkpoint store of resumable page streams.
	OpenOffsetStore func() (OffsetStore, error)

	closers []func() error
}

type OffsetStore interface {
	userstream.OffsetStore
	Close() error
}

func open(c Config) (*App, error) {
	a := &App{
		OpenOffsetStore: func() (OffsetStore, error) {
			s, err := boltdb.Open(c.CheckpointPath)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
	}
	switch c.Driver {
	case "postgres":
		p, err := postgresql.Connect(c.Postgres)
		if err != nil {
			return nil, err
		}
		a.Streamer = userstream.Streamer{Provider: p}
		a.Schema = p
	default:
		p, err := mysql.Connect(c.MySQL)
		if err != nil {
			return nil, err
		}
		a.Streamer = userstream.Streamer{Provider: p}
		a.Schema = p
		a.closers = append(a.closers, p.Close)
	}
	return a, nil
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errorkit.Merge(errs...)
}

// Mux registers the subcommands with the App's dependencies injected.
func (a *App) Mux() *cli.Mux {
	var m cli.Mux
	m.Handle("seed", SeedCommand{Schema: a.Schema})
	m.Handle("rows", RowsCommand{Streamer: a.Streamer})
	m.Handle("batches", BatchesCommand{Streamer: a.Streamer})
	m.Handle("filter", FilterCommand{Streamer: a.Streamer})
	m.Handle("pages", PagesCommand{Streamer: a.Streamer, OpenOffsetStore: a.OpenOffsetStore})
	m.Handle("average", AverageCommand{Streamer: a.Streamer})
	return &m
}

type SeedCommand struct {
	CSV    string `flag:"csv" desc:"seed the empty table from a CSV file"`
	Random int    `flag:"random" default:"0" desc:"seed the empty table with n random users"`

	Schema userstream.Schema
}

func (cmd SeedCommand) Summary() string { return "create the user table and seed it when empty" }

func (cmd SeedCommand) ServeCLI(w cli.Response, r *cli.Request) {
	ctx := r.Context()
	var source iter.Seq2[userstream.User, error]
	switch {
	case cmd.CSV != "" && 0 < cmd.Random:
		w.ExitCode(cli.ExitCodeBadRequest)
		fmt.Fprintln(stderr(w), "-csv and -random are mutually exclusive")
		return
	case cmd.CSV != "":
		source = csvimport.ReadFile(ctx, cmd.CSV)
	case 0 < cmd.Random:
		source = fixtures.Seq(fixtures.Users(cmd.Random))
	}
	if err := userstream.Bootstrap(ctx, cmd.Schema, source); err != nil {
		handleError(w, r, err)
		return
	}
	n, err := cmd.Schema.Count(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	fmt.Fprintf(w, "users in table: %d\n", n)
}

type RowsCommand struct {
	Limit int `flag:"limit" default:"0" desc:"stop after n users, 0 streams the whole table"`

	Streamer userstream.Streamer
}

func (cmd RowsCommand) Summary() string { return "stream the users one row at a time" }

func (cmd RowsCommand) ServeCLI(w cli.Response, r *cli.Request) {
	var n int
	for u, err := range cmd.Streamer.Rows(r.Context()) {
		if err != nil {
			handleError(w, r, err)
			return
		}
		printUser(w, u)
		n++
		if 0 < cmd.Limit && cmd.Limit <= n {
			break
		}
	}
}

type BatchesCommand struct {
	Size int `flag:"size" default:"50" desc:"number of users per batch"`

	Streamer userstream.Streamer
}

func (cmd BatchesCommand) Summary() string { return "stream the users in fixed size batches" }

func (cmd BatchesCommand) ServeCLI(w cli.Response, r *cli.Request) {
	var n int
	for batch, err := range cmd.Streamer.Batches(r.Context(), cmd.Size) {
		if err != nil {
			handleError(w, r, err)
			return
		}
		n++
		fmt.Fprintf(w, "# batch %d: %d users\n", n, len(batch))
		for _, u := range batch {
			printUser(w, u)
		}
	}
}

type FilterCommand struct {
	Size int     `flag:"size" default:"50" desc:"number of users read per batch"`
	Age  float64 `flag:"age" default:"25" desc:"keep users strictly older than this age"`

	Streamer userstream.Streamer
}

func (cmd FilterCommand) Summary() string { return "stream the users older than the given age" }

func (cmd FilterCommand) ServeCLI(w cli.Response, r *cli.Request) {
	for u, err := range cmd.Streamer.Filter(r.Context(), cmd.Size, userstream.OlderThan(cmd.Age)) {
		if err != nil {
			handleError(w, r, err)
			return
		}
		printUser(w, u)
	}
}

type PagesCommand struct {
	Size   int    `flag:"size" default:"100" desc:"number of users per page"`
	Resume string `flag:"resume" desc:"checkpoint name, continues from the last completed page"`

	Streamer        userstream.Streamer
	OpenOffsetStore func() (OffsetStore, error)
}

func (cmd PagesCommand) Summary() string { return "stream the users page by page" }

func (cmd PagesCommand) ServeCLI(w cli.Response, r *cli.Request) {
	if err := cmd.serve(r.Context(), w); err != nil {
		handleError(w, r, err)
	}
}

func (cmd PagesCommand) serve(ctx context.Context, w io.Writer) (rErr error) {
	pages := cmd.Streamer.Pages(ctx, cmd.Size)
	if cmd.Resume != "" {
		store, err := cmd.OpenOffsetStore()
		if err != nil {
			return err
		}
		defer errorkit.Finish(&rErr, store.Close)
		pages = cmd.Streamer.ResumablePages(ctx, store, cmd.Resume, cmd.Size)
	}
	var n int
	for page, err := range pages {
		if err != nil {
			return err
		}
		n++
		fmt.Fprintf(w, "# page %d: %d users\n", n, len(page))
		for _, u := range page {
			printUser(w, u)
		}
	}
	return nil
}

type AverageCommand struct {
	Streamer userstream.Streamer
}

func (cmd AverageCommand) Summary() string { return "print the average age of the users" }

func (cmd AverageCommand) ServeCLI(w cli.Response, r *cli.Request) {
	mean, err := cmd.Streamer.AgeMean(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	if mean.Count == 0 {
		fmt.Fprintln(w, "No users found")
		return
	}
	fmt.Fprintf(w, "Average age of users: %.2f\n", mean.Value())
}

func handleError(w cli.Response, r *cli.Request, err error) {
	logger.Error(r.Context(), "userstream command failed", logging.ErrField(err))
	w.ExitCode(cli.ExitCodeError)
	fmt.Fprintln(stderr(w), err.Error())
}

func stderr(w cli.Response) io.Writer {
	if ew, ok := w.(cli.ErrorWriter); ok {
		if o := ew.Stderr(); o != nil {
			return o
		}
	}
	return w
}

func printUser(w io.Writer, u userstream.User) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%g\n", u.ID, u.Name, u.Email, u.Age)
}
