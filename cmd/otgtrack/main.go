// Command otgtrack serves the production tooling tracker API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atlasherbaltea-design/otg-track-99/internal/api"
	"github.com/atlasherbaltea-design/otg-track-99/internal/auth"
	"github.com/atlasherbaltea-design/otg-track-99/internal/config"
	"github.com/atlasherbaltea-design/otg-track-99/internal/db"
	"github.com/atlasherbaltea-design/otg-track-99/internal/insights"
	"github.com/atlasherbaltea-design/otg-track-99/internal/model"
	"github.com/atlasherbaltea-design/otg-track-99/internal/store"
)

const usage = `Usage: otgtrack [flags]

Flags:
  -c, -config <path>      configuration file (default: searched, see below)
  -d, -db <path>          SQLite database path (default: otgtrack.db)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin username on first run (default: admin)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -init-config <path>     write the effective configuration to path and exit
  -h, -help               show this help and exit

The configuration is read from -config, else $XDG_CONFIG_HOME/otgtrack/otgtrack.toml,
else ./otgtrack.toml. Flags override file values.
`

// options are the parsed command line flags. Empty strings mean unset.
type options struct {
	configPath string
	dbPath     string
	addr       string
	adminUser  string
	logPath    string
	initConfig string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("otgtrack", flag.ContinueOnError)
	fs.SetOutput(stderr)

	for _, name := range []string{"config", "c"} {
		fs.StringVar(&o.configPath, name, "", "")
	}
	for _, name := range []string{"db", "d"} {
		fs.StringVar(&o.dbPath, name, "", "")
	}
	for _, name := range []string{"addr", "a"} {
		fs.StringVar(&o.addr, name, "", "")
	}
	for _, name := range []string{"user", "u"} {
		fs.StringVar(&o.adminUser, name, "", "")
	}
	for _, name := range []string{"log", "l"} {
		fs.StringVar(&o.logPath, name, "", "")
	}
	fs.StringVar(&o.initConfig, "init-config", "", "")

	fs.Usage = func() { fmt.Fprint(stderr, usage) }

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return o, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return o, nil
}

// apply overrides configuration values with the flags that were given.
func (o options) apply(cfg *config.Config) {
	if o.dbPath != "" {
		cfg.Server.DB = o.dbPath
	}
	if o.addr != "" {
		cfg.Server.Addr = o.addr
	}
	if o.adminUser != "" {
		cfg.Server.Admin = o.adminUser
	}
	if o.logPath != "" {
		cfg.Server.Log = o.logPath
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	cfg, cfgPath, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: invalid configuration: %v\n", err)
		return 1
	}

	if opts.initConfig != "" {
		if err := config.Save(cfg, opts.initConfig); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "Configuration written to %s\n", opts.initConfig)
		return 0
	}

	logger, closeLog, err := newLogger(stdout, stderr, cfg.Server.Log)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer closeLog()
	slog.SetDefault(logger)

	if cfgPath != "" {
		slog.Info("configuration loaded", "path", cfgPath)
	} else {
		slog.Info("no configuration file found, using defaults")
	}

	templates := cfg.Workshop.CodeTemplates()
	for _, c := range templates.Collisions() {
		slog.Warn("code template shared by several machine slots; their sequences interleave", "collision", c.String())
	}

	database, err := db.Open(cfg.Server.DB)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		return 1
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		slog.Error("failed to ensure database schema", "error", err)
		return 1
	}
	slog.Info("database ready", "path", cfg.Server.DB)

	ctx := context.Background()
	password, err := ensureAdmin(ctx, database, cfg.Server.Admin)
	if err != nil {
		slog.Error("failed to create admin account", "error", err)
		return 1
	}
	if password != "" {
		printAdmin(stdout, cfg.Server.Admin, password)
	}

	if n, err := store.PurgeRevokedTokens(ctx, database, time.Now()); err != nil {
		slog.Warn("failed to purge revoked tokens", "error", err)
	} else if n > 0 {
		slog.Info("purged expired token revocations", "count", n)
	}

	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		slog.Error("failed to get JWT secret", "error", err)
		return 1
	}

	var client *insights.Client
	if cfg.Insights.Enabled() {
		client = insights.New(cfg.Insights.Endpoint, cfg.Insights.Model, cfg.Insights.APIKey, cfg.Insights.Timeout.Duration)
		slog.Info("insights enabled", "model", cfg.Insights.Model)
	}

	router := api.NewRouter(api.Deps{
		DB:        database,
		JWTSecret: jwtSecret,
		Config:    cfg,
		Insights:  client,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.LoggingMiddleware(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		return 1
	}

	slog.Info("server stopped, closing database")
	return 0
}

// ensureAdmin creates the admin account when the database has none and
// returns its generated password. It returns "" when an admin exists.
func ensureAdmin(ctx context.Context, database *sql.DB, username string) (string, error) {
	n, err := store.CountAdmins(ctx, database)
	if err != nil {
		return "", err
	}
	if n > 0 {
		return "", nil
	}

	existing, err := store.GetUserByUsername(ctx, database, username)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", fmt.Errorf("user %q exists but no admin does; pick another -user", username)
	}

	password, err := auth.RandomPassword()
	if err != nil {
		return "", err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}
	if _, err := store.CreateUser(ctx, database, username, "Administrator", hash, model.RoleAdmin, model.AllPermissions); err != nil {
		return "", fmt.Errorf("creating admin user: %w", err)
	}
	return password, nil
}

func printAdmin(w io.Writer, username, password string) {
	fmt.Fprintln(w, "Admin account created:")
	fmt.Fprintf(w, "  Username: %s\n", username)
	fmt.Fprintf(w, "  Password: %s\n", password)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Save this password, it cannot be recovered.")
	fmt.Fprintln(w, "The admin can change it after logging in.")
}
