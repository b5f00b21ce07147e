package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

// DefaultDir is the on-disk location of the migrations, relative to the repo
// root. It is only needed when authoring new files.
const DefaultDir = "pkg/migrate/migrations"

const (
	embeddedRoot = "migrations"
	dialect      = "postgres"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded exposes the migrations compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, embeddedRoot)
	if err != nil {
		panic(err)
	}
	return sub
}

// Source picks where goose reads migrations from. The zero value uses the
// embedded set so binaries do not depend on their working directory.
type Source struct {
	Dir string
}

func (s Source) String() string {
	if s.Dir == "" {
		return "embedded"
	}
	return s.Dir
}

func (s Source) apply() string {
	if s.Dir == "" {
		goose.SetBaseFS(embedded)
		return embeddedRoot
	}
	goose.SetBaseFS(nil)
	return s.Dir
}

// Command is a goose operation that works against an existing schema.
type Command string

const (
	CommandUp     Command = "up"
	CommandDown   Command = "down"
	CommandRedo   Command = "redo"
	CommandStatus Command = "status"
)

func (c Command) valid() bool {
	switch c {
	case CommandUp, CommandDown, CommandRedo, CommandStatus:
		return true
	}
	return false
}

// Run executes cmd against db using migrations from src.
func Run(ctx context.Context, db *sql.DB, src Source, cmd Command) error {
	if !cmd.valid() {
		return fmt.Errorf("unsupported migrate command %q", cmd)
	}
	dir, err := setup(db, src)
	if err != nil {
		return err
	}
	if err := goose.RunContext(ctx, string(cmd), db, dir); err != nil {
		return fmt.Errorf("goose %s (%s): %w", cmd, src, err)
	}
	return nil
}

// To moves the schema up or down until it sits at target.
func To(ctx context.Context, db *sql.DB, src Source, target int64) error {
	if target < 0 {
		return fmt.Errorf("target version must not be negative")
	}
	dir, err := setup(db, src)
	if err != nil {
		return err
	}

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	switch {
	case current < target:
		err = goose.UpToContext(ctx, db, dir, target)
	case current > target:
		err = goose.DownToContext(ctx, db, dir, target)
	}
	if err != nil {
		return fmt.Errorf("migrate %d -> %d: %w", current, target, err)
	}
	return nil
}

// Version reports the schema version recorded by goose.
func Version(ctx context.Context, db *sql.DB) (int64, error) {
	if db == nil {
		return 0, fmt.Errorf("db is required")
	}
	if err := goose.SetDialect(dialect); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, db)
}

func setup(db *sql.DB, src Source) (string, error) {
	if db == nil {
		return "", fmt.Errorf("db is required")
	}
	if err := goose.SetDialect(dialect); err != nil {
		return "", fmt.Errorf("goose dialect: %w", err)
	}
	return src.apply(), nil
}
