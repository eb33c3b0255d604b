package fetch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DriverPostgres selects the PostgreSQL backend.
const DriverPostgres = "postgres"

const (
	pgUndefinedFile   = "58P01"
	pgWrongObjectType = "42809" // raised for EISDIR
)

// Postgres reads files with pg_read_binary_file(). The role needs
// superuser or pg_read_server_files.
type Postgres struct{}

func (Postgres) Name() string { return DriverPostgres }

func (Postgres) Dial(ctx context.Context, target Target) (Conn, error) {
	conn, err := pgx.Connect(ctx, postgresURL(target))
	if err != nil {
		return nil, err
	}
	return &pgConn{conn: conn}, nil
}

func postgresURL(target Target) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   target.Addr(5432),
	}
	if target.User != "" {
		if target.Password != "" {
			u.User = url.UserPassword(target.User, target.Password)
		} else {
			u.User = url.User(target.User)
		}
	}
	if target.Database != "" {
		u.Path = "/" + target.Database
	}
	return u.String()
}

func (Postgres) ReadFileQuery(path string, escape bool) string {
	if escape {
		path = EscapePostgres(path)
	}
	return fmt.Sprintf("select pg_read_binary_file('%s')", path)
}

func (Postgres) TranslateError(path string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return ErrNoResult
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUndefinedFile:
			return &NotFoundError{Path: path, Cause: err}
		case pgWrongObjectType:
			return ErrDirectory
		}
	}
	return err
}

// EscapePostgres doubles single quotes for a standard-conforming string literal.
func EscapePostgres(s string) string {
	return strings.ReplaceAll(s, `'`, `''`)
}

type pgConn struct {
	conn *pgx.Conn
}

func (c *pgConn) QueryBytes(ctx context.Context, query string) ([]byte, bool, error) {
	var v sql.Null[[]byte]
	if err := c.conn.QueryRow(ctx, query).Scan(&v); err != nil {
		return nil, false, err
	}
	return v.V, v.Valid, nil
}

func (c *pgConn) Close() error {
	return c.conn.Close(context.Background())
}
