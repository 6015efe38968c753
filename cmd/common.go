package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ridoystarlord/dblayer/database"
	"github.com/ridoystarlord/dblayer/dialect"
	"github.com/ridoystarlord/dblayer/introspect"
	"github.com/ridoystarlord/dblayer/layer"
	"github.com/ridoystarlord/dblayer/loader"
	"github.com/ridoystarlord/dblayer/runner"
	"github.com/ridoystarlord/dblayer/schema"
)

func fail(what string, err error) {
	fmt.Printf("❌ %s: %v\n", what, err)
	os.Exit(1)
}

// loadSchema reads the schema from the YAML file or, with --tags, from
// the models directory.
func loadSchema() (*schema.Database, error) {
	if useTags {
		return loader.LoadTags(modelsDir, "models")
	}
	return loader.LoadYAML(opts.Schema)
}

func loadTables() ([]*schema.Table, error) {
	if useTags {
		return loader.NewTagLoader(modelsDir).Load()
	}
	return loader.LoadYAMLTables(opts.Schema)
}

// offlineDialect is the configured dialect, PostgreSQL when nothing is
// configured. Commands that only print SQL use it.
func offlineDialect(name string) (dialect.Dialect, error) {
	if name != "" {
		return dialect.Get(name)
	}
	if opts.Dialect == "" && opts.DatabaseURL == "" {
		return dialect.MustGet(dialect.Postgres), nil
	}
	return opts.ResolveDialect()
}

// withSession runs fn in a transaction committed when fn succeeds.
func withSession(ctx context.Context, fn func(*layer.Session) error) error {
	return withLayer(ctx, func(_ *layer.Layer, s *layer.Session) error {
		return fn(s)
	})
}

func withLayer(ctx context.Context, fn func(*layer.Layer, *layer.Session) error) error {
	db, err := loadSchema()
	if err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}
	conn, err := database.Open(ctx, opts)
	if err != nil {
		return err
	}
	defer conn.Close()
	l, err := layer.New(db, conn.Dialect, layer.Options{
		Runner:         opts.Runner(),
		MaxInsertRetry: opts.MaxInsertRetry,
	})
	if err != nil {
		return err
	}
	return conn.InTx(ctx, func(c runner.Cursor) error {
		return fn(l, l.Session(c))
	})
}

// postgresPool returns the pgx pool introspection runs on.
func postgresPool(ctx context.Context) (*pgxpool.Pool, error) {
	d, err := opts.ResolveDialect()
	if err != nil {
		return nil, err
	}
	if d.Name() != dialect.Postgres {
		return nil, errors.New("database inspection requires PostgreSQL")
	}
	return database.GetPool(ctx, opts.DatabaseURL)
}

func introspectPublic(ctx context.Context) ([]introspect.ExistingTable, error) {
	pool, err := postgresPool(ctx)
	if err != nil {
		return nil, err
	}
	return introspect.IntrospectDatabase(ctx, pool, "public")
}
