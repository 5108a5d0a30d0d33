// Package cmd implements the CLI application to reconcile a ledger and report its taxable income.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/capgains/sqlite"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"
)

// Environment variables providing the global flags defaults. They are also
// passed to extensions.
const (
	EnvDB             = "CGT_DB"
	EnvCurrency       = "CGT_CURRENCY"
	EnvReportCurrency = "CGT_REPORT_CURRENCY"
	EnvLogLevel       = "CGT_LOG_LEVEL"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&importCmd{}, "ledger")
	c.Register(&importFxCmd{}, "ledger")
	c.Register(&fetchFxCmd{}, "ledger")
	c.Register(&reconcileCmd{}, "ledger")
	c.Register(&linksCmd{}, "ledger")

	c.Register(&summaryCmd{}, "reports")

	c.Register(&topicCmd{}, "help")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	dbFile         = flag.String("db", "ledger.db", "Path to the ledger database (SQLite). Env "+EnvDB)
	currency       = flag.String("currency", "GBP", "Currency of the ledger amounts. Env "+EnvCurrency)
	reportCurrency = flag.String("report-currency", "EUR", "Currency the report is converted to. Env "+EnvReportCurrency)
	logLevel       = flag.String("v", "warn", "Log level (debug, info, warn, error). Env "+EnvLogLevel)
)

// envFlags maps environment variables to the global flag they set.
var envFlags = []struct{ env, flag string }{
	{EnvDB, "db"},
	{EnvCurrency, "currency"},
	{EnvReportCurrency, "report-currency"},
	{EnvLogLevel, "v"},
}

// LoadEnv loads the .env file of the working directory if any, then uses the
// environment as the global flags defaults. It must be called before flag.Parse.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cannot load .env: %w", err)
	}
	for _, e := range envFlags {
		v := os.Getenv(e.env)
		if v == "" {
			continue
		}
		if err := flag.Set(e.flag, v); err != nil {
			return fmt.Errorf("invalid %s: %w", e.env, err)
		}
	}
	return nil
}

// InitLogger installs the default logger according to the -v flag.
func InitLogger() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", *logLevel, err)
	}
	slog.SetDefault(newLogger(level))
	return nil
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openStore opens the ledger database of the -db flag.
func openStore(ctx context.Context) (*sqlite.Store, error) {
	s, err := sqlite.Open(ctx, *dbFile, slog.Default())
	if err != nil {
		return nil, err
	}
	slog.Debug("ledger opened", "db", *dbFile)
	return s, nil
}

// currencies returns the ledger and report currencies in upper case.
func currencies() (ledger, report string) {
	return strings.ToUpper(*currency), strings.ToUpper(*reportCurrency)
}

// printMarkdown renders markdown for the terminal, or prints it raw if the
// terminal renderer is not available.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

// fail prints an error and returns the failure status.
func fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return subcommands.ExitFailure
}
