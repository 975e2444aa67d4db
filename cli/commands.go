package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/beancount-scc/output"
	"github.com/robinvdvleuten/beancount-scc/telemetry"
)

var (
	// Version contains the application version number. It's set via ldflags
	// when building.
	Version = ""

	// CommitSHA contains the SHA of the commit that this application was built
	// against. It's set via ldflags when building.
	CommitSHA = ""
)

// Globals defines global flags available to all commands.
type Globals struct {
	Telemetry bool            `help:"Show timing telemetry for operations." env:"BEAN_SCC_TELEMETRY"`
	Debug     bool            `help:"Log debug output to stderr." env:"BEAN_SCC_DEBUG"`
	Profile   kong.ConfigFlag `help:"YAML profile with default flag values." placeholder:"FILE" env:"BEAN_SCC_PROFILE"`
}

// Logger returns the logger for a command writing diagnostics to w.
func (g *Globals) Logger(w io.Writer) *slog.Logger {
	return newLogger(w, g.Debug)
}

// telemetry returns ctx with a timing collector when telemetry is enabled,
// and a function that ends the root timer and prints the report to w.
func (g *Globals) telemetry(ctx context.Context, w io.Writer, name string) (context.Context, func()) {
	if !g.Telemetry {
		return ctx, func() {}
	}

	collector := telemetry.NewTimingCollector()
	timer := collector.Start(name)
	return telemetry.WithCollector(ctx, collector), func() {
		timer.End()
		_, _ = fmt.Fprintln(w)
		collector.Report(w, output.NewStyles(w))
	}
}

// Commands is the command tree of bean-scc.
type Commands struct {
	Globals

	Convert ConvertCmd `cmd:"" help:"Convert a ledger to a single currency."`
	Check   CheckCmd   `cmd:"" help:"Parse, check and realize a beancount input file."`
	Format  FormatCmd  `cmd:"" help:"Format a beancount file to align numbers and currencies."`
	Query   QueryCmd   `cmd:"" help:"Open a query shell over a ledger."`
	Transit TransitCmd `cmd:"" help:"Check that funds sent through a transit account arrive."`
	Doctor  DoctorCmd  `cmd:"" help:"Doctor utilities for debugging beancount files."`
}

// CLI is the root of the command line.
type CLI struct {
	Version kong.VersionFlag `help:"Show version information."`
	Commands
}

// New creates the command line parser for cli. Options are applied after
// the defaults.
func New(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	defaults := []kong.Option{
		kong.Name("bean-scc"),
		kong.Description("Convert a multi-currency beancount ledger to a single currency, booking unrealized gains."),
		kong.UsageOnError(),
		kong.Vars{"version": BuildVersion()},
		kong.Configuration(ProfileLoader),
		kong.Bind(&cli.Globals),
	}
	return kong.New(cli, append(defaults, options...)...)
}

// BuildVersion returns the version with the commit it was built from.
func BuildVersion() string {
	version := Version
	if version == "" {
		version = "dev"
	}
	if CommitSHA == "" {
		return version
	}
	return fmt.Sprintf("%s (%s)", version, CommitSHA)
}
