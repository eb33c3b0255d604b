package fetch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// DriverMySQL selects the MySQL/MariaDB backend.
const DriverMySQL = "mysql"

// mysqlNotFoundMarker prefixes the server message for a path that cannot be stat'ed.
const mysqlNotFoundMarker = "Can't get stat of"

// MySQL reads files with LOAD_FILE().
type MySQL struct{}

func (MySQL) Name() string { return DriverMySQL }

// Dial opens a single connection. The handle is not pooled: the returned
// Conn owns both the *sql.DB and its one *sql.Conn.
func (MySQL) Dial(ctx context.Context, target Target) (Conn, error) {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = target.Addr(3306)
	cfg.User = target.User
	cfg.Passwd = target.Password
	cfg.DBName = target.Database

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql config: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(0)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &sqlConn{db: db, conn: conn}, nil
}

func (MySQL) ReadFileQuery(path string, escape bool) string {
	if escape {
		path = EscapeMySQL(path)
	}
	return fmt.Sprintf("select load_file('%s')", path)
}

// TranslateError recognises the "cannot stat" message. MySQL has no
// dedicated error number for it, so the message text is all there is.
func (MySQL) TranslateError(path string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoResult
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && strings.HasPrefix(myErr.Message, mysqlNotFoundMarker) {
		return &NotFoundError{Path: path, Cause: err}
	}
	return err
}

// EscapeMySQL escapes backslashes and single quotes for a MySQL string literal.
func EscapeMySQL(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return r.Replace(s)
}

type sqlConn struct {
	db   *sql.DB
	conn *sql.Conn
}

func (c *sqlConn) QueryBytes(ctx context.Context, query string) ([]byte, bool, error) {
	var v sql.Null[[]byte]
	if err := c.conn.QueryRowContext(ctx, query).Scan(&v); err != nil {
		return nil, false, err
	}
	return v.V, v.Valid, nil
}

func (c *sqlConn) Close() error {
	return errors.Join(c.conn.Close(), c.db.Close())
}
