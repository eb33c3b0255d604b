package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/rs/zerolog"
)

// ErrNoResult is returned when the server answers the read query without a row.
var ErrNoResult = errors.New("no result")

// ErrDirectory is returned by a backend's error translation when the server
// rejected the read because the target is a directory.
var ErrDirectory = errors.New("target is a directory")

// NotFoundError reports that the remote path does not exist.
type NotFoundError struct {
	Path  string
	Cause error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no such file: %s", e.Path)
}

func (e *NotFoundError) Unwrap() error { return e.Cause }

// Result is the outcome of a single read.
type Result struct {
	Content []byte
	IsDir   bool // server returned NULL, or refused the path as a directory
}

// Target identifies the database server and the credentials to use.
type Target struct {
	Host     string // host or host:port
	Port     int    // used when Host has no port; 0 means driver default
	User     string
	Password string
	Database string
}

// Addr returns host:port, filling in the port when Host has none.
func (t Target) Addr(defaultPort int) string {
	if _, _, err := net.SplitHostPort(t.Host); err == nil {
		return t.Host
	}
	port := t.Port
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(port))
}

// Conn is a single database connection able to run one statement.
type Conn interface {
	// QueryBytes runs query and scans the first column of the first row.
	// valid is false when the column is NULL.
	QueryBytes(ctx context.Context, query string) (value []byte, valid bool, err error)
	Close() error
}

// Backend knows how one database engine exposes its file-read function.
type Backend interface {
	Name() string
	Dial(ctx context.Context, target Target) (Conn, error)
	// ReadFileQuery builds the statement reading path. With escape off the
	// path is interpolated as-is.
	ReadFileQuery(path string, escape bool) string
	// TranslateError maps an execution error to NotFoundError, ErrDirectory,
	// ErrNoResult or returns it unchanged.
	TranslateError(path string, err error) error
}

// Fetcher reads remote files through a database server.
type Fetcher struct {
	backend Backend
	target  Target
	escape  bool
	log     zerolog.Logger
}

// NewFetcher creates a Fetcher for the given backend and target.
func NewFetcher(backend Backend, target Target, escape bool, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		backend: backend,
		target:  target,
		escape:  escape,
		log:     log.With().Str("driver", backend.Name()).Str("host", target.Host).Logger(),
	}
}

// Fetch opens a connection, reads path and closes the connection again.
func (f *Fetcher) Fetch(ctx context.Context, path string) (*Result, error) {
	f.log.Debug().Msg("connecting")
	conn, err := f.backend.Dial(ctx, f.target)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", f.target.Host, err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			f.log.Warn().Err(cerr).Msg("failed to close connection")
		}
	}()

	query := f.backend.ReadFileQuery(path, f.escape)
	f.log.Debug().Str("query", query).Msg("executing read")

	value, valid, err := conn.QueryBytes(ctx, query)
	if err != nil {
		err = f.backend.TranslateError(path, err)
		if errors.Is(err, ErrDirectory) {
			return &Result{IsDir: true}, nil
		}
		return nil, err
	}
	if !valid {
		return &Result{IsDir: true}, nil
	}
	return &Result{Content: value}, nil
}

// NewBackend returns the backend registered for driver.
func NewBackend(driver string) (Backend, error) {
	switch driver {
	case "", DriverMySQL:
		return MySQL{}, nil
	case DriverPostgres:
		return Postgres{}, nil
	default:
		return nil, fmt.Errorf("unknown driver %q", driver)
	}
}
