package cmd

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/subcommands"
)

// setFlag sets a global flag for the duration of the test.
func setFlag(t *testing.T, p *string, value string) {
	t.Helper()
	old := *p
	*p = value
	t.Cleanup(func() { *p = old })
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("CGT_REPORT_CURRENCY=USD\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Setenv(EnvDB, "from-env.db")
	setFlag(t, dbFile, *dbFile)
	setFlag(t, reportCurrency, *reportCurrency)

	// godotenv does not override variables already set.
	t.Cleanup(func() { os.Unsetenv(EnvReportCurrency) })

	if err := LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() unexpected error: %v", err)
	}
	if *dbFile != "from-env.db" {
		t.Errorf("-db = %q, want from-env.db", *dbFile)
	}
	if *reportCurrency != "USD" {
		t.Errorf("-report-currency = %q, want USD", *reportCurrency)
	}
}

func TestInitLoggerRejectsUnknownLevel(t *testing.T) {
	setFlag(t, logLevel, "chatty")
	if err := InitLogger(); err == nil {
		t.Error("InitLogger() accepted an unknown level")
	}
}

func TestCompletion(t *testing.T) {
	commander := subcommands.NewCommander(flag.NewFlagSet("cgt", flag.ContinueOnError), "cgt")
	Register(commander)

	c := Completion(commander)
	for _, name := range []string{"import", "import-fx", "fetch-fx", "reconcile", "links", "summary", "topic"} {
		if _, ok := c.Sub[name]; !ok {
			t.Errorf("Completion() has no %q subcommand", name)
		}
		if !IsCommand(commander, name) {
			t.Errorf("IsCommand(%q) = false", name)
		}
	}
	if _, ok := c.Sub["summary"].Flags["format"]; !ok {
		t.Error("Completion() does not complete summary -format")
	}
	if _, ok := c.Sub["reconcile"].Flags["n"]; !ok {
		t.Error("Completion() does not complete reconcile -n")
	}
	if IsCommand(commander, "hello") {
		t.Error("IsCommand(hello) = true")
	}
}

// run executes a subcommand with its arguments.
func run(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("%s: cannot parse %v: %v", cmd.Name(), args, err)
	}
	return cmd.Execute(context.Background(), fs)
}

func TestWorkflow(t *testing.T) {
	dir := t.TempDir()
	setFlag(t, dbFile, filepath.Join(dir, "ledger.db"))
	setFlag(t, currency, "GBP")
	setFlag(t, reportCurrency, "EUR")

	activities := filepath.Join(dir, "activities.csv")
	if err := os.WriteFile(activities, []byte(`Date,Description,Investment,AssetCode,Pot,Account,Quantity,Price,Total
01-Jan-23,Purchase,ABC Fund,ABC,Main,ISA,10,10.00,100.00
02-Jan-23,Purchase,ABC Fund,ABC,Main,ISA,10,12.00,120.00
01-Mar-23,Sale,ABC Fund,ABC,Main,ISA,15,20.00,300.00
01-Jun-23,Dividend,ABC Fund,ABC,Main,ISA,,,12.50
`), 0o644); err != nil {
		t.Fatal(err)
	}
	rates := filepath.Join(dir, "fx.csv")
	if err := os.WriteFile(rates, []byte("Date,Currency,Rate\n2022-12-30,EUR,0.8\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		cmd  subcommands.Command
		args []string
		want subcommands.ExitStatus
	}{
		{&importCmd{}, []string{activities}, subcommands.ExitSuccess},
		// no fx rate yet for the dividend.
		{&summaryCmd{}, []string{"-year", "2023", "-format", "markdown"}, subcommands.ExitFailure},
		{&importFxCmd{}, []string{rates}, subcommands.ExitSuccess},
		{&reconcileCmd{}, []string{"-n"}, subcommands.ExitSuccess},
		{&reconcileCmd{}, nil, subcommands.ExitSuccess},
		{&summaryCmd{}, []string{"-year", "2023", "-format", "html"}, subcommands.ExitSuccess},
		{&summaryCmd{}, []string{"-format", "pdf"}, subcommands.ExitUsageError},
		{&linksCmd{}, nil, subcommands.ExitSuccess},
		{&importCmd{}, nil, subcommands.ExitUsageError},
	}
	for i, s := range steps {
		if got := run(t, s.cmd, s.args...); got != s.want {
			t.Errorf("step %d: %s %v = %v, want %v", i, s.cmd.Name(), s.args, got, s.want)
		}
	}
}

func TestReconcileShortSaleFails(t *testing.T) {
	dir := t.TempDir()
	setFlag(t, dbFile, filepath.Join(dir, "ledger.db"))

	activities := filepath.Join(dir, "activities.csv")
	if err := os.WriteFile(activities, []byte(`Date,Description,Investment,AssetCode,Pot,Account,Quantity,Price,Total
01-Mar-23,Sale,ABC Fund,ABC,Main,ISA,15,20.00,300.00
`), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := run(t, &importCmd{}, activities); got != subcommands.ExitSuccess {
		t.Fatalf("import = %v", got)
	}
	if got := run(t, &reconcileCmd{}); got != subcommands.ExitFailure {
		t.Errorf("reconcile = %v, want %v", got, subcommands.ExitFailure)
	}
}
