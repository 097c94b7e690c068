// tqp imports, exports and inspects test case and connection records from the
// command line, against the same store the server uses.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tqp/internal/config"
	"github.com/JonMunkholm/tqp/internal/interchange"
	"github.com/JonMunkholm/tqp/internal/logging"
	"github.com/JonMunkholm/tqp/internal/store"
)

var version = "dev"

// Global flags
var (
	verbose  bool
	envFile  string
	driver   string
	jsonLogs bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if interchange.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, errorStyle.Render("✗ ")+interchange.FormatUserError(err))
			fmt.Fprintln(os.Stderr, mutedStyle.Render("  "+err.Error()))
		} else {
			fmt.Fprintln(os.Stderr, errorStyle.Render("✗ ")+err.Error())
		}
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tqp",
	Short: "Manage test query pair records",
	Long: `tqp moves test case and connection records between CSV, JSON and XLSX
files and the record store.

Configuration comes from the environment (and .env), exactly as for the
server: STORE_DRIVER, STORE_PATH, DATABASE_URL, REDIS_ADDR and friends.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load if present")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "Override STORE_DRIVER (memory, sqlite, postgres, redis)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Write logs as JSON")

	rootCmd.AddCommand(importCmd, previewCmd, exportCmd, listCmd, headersCmd,
		templateCmd, watchCmd, backupCmd, resetCmd)
}

// app is the opened store and service a command works against.
type app struct {
	cfg *config.Config
	st  *store.Store
	svc *interchange.Service
}

// openApp loads configuration and opens the store. Logs go to stderr so
// stdout carries only command output.
func openApp(ctx context.Context) (*app, error) {
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}
	if driver != "" {
		os.Setenv("STORE_DRIVER", driver)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level, format := cfg.Logging.Level, cfg.Logging.Format
	if verbose {
		level = "debug"
	}
	if jsonLogs {
		format = "json"
	}
	slog.SetDefault(logging.New(os.Stderr, level, format))

	backend, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	st := store.New(backend,
		store.WithKeyPrefix(cfg.Store.KeyPrefix),
		store.WithTimeout(cfg.Store.Timeout),
	)
	return &app{
		cfg: cfg,
		st:  st,
		svc: interchange.NewService(st, interchange.WithMaxFileSize(cfg.Import.MaxFileSize)),
	}, nil
}

func (a *app) Close() error { return a.st.Close() }

// withApp adapts a command body that needs the store.
func withApp(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}
