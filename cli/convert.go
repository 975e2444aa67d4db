package cli

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/natefinch/atomic"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/convert"
	"github.com/robinvdvleuten/beancount-scc/loader"
	"github.com/robinvdvleuten/beancount-scc/output"
	"github.com/robinvdvleuten/beancount-scc/query"
	"github.com/robinvdvleuten/beancount-scc/selftest"
)

// ShellOutput is the output name that opens a query shell over the
// converted ledger instead of writing it.
const ShellOutput = "_bq_"

const debounceDelay = 100 * time.Millisecond

type ConvertCmd struct {
	Input  FileOrStdin `help:"Beancount input filename (use '-' for stdin)." arg:""`
	Output string      `help:"Output filename, '-' for stdout, or '_bq_' to open a query shell over the converted ledger." arg:""`

	Currency  string `short:"c" help:"Target currency. Defaults to the first operating currency of the ledger." env:"BEAN_SCC_CURRENCY"`
	StartDate string `short:"s" help:"First day of the conversion (YYYY-MM-DD). Defaults to the date of the first entry." placeholder:"DATE" env:"BEAN_SCC_START_DATE"`
	EndDate   string `short:"e" help:"Last day of the conversion (YYYY-MM-DD). Defaults to the date of the last entry." placeholder:"DATE" env:"BEAN_SCC_END_DATE"`
	Account   string `short:"a" help:"Account to book unrealized gains." default:"Income:Unrealized-Gains" env:"BEAN_SCC_ACCOUNT"`
	SelfTest  bool   `short:"t" help:"Verify the converted ledger against the original one." env:"BEAN_SCC_SELF_TEST"`
	Tolerance string `short:"T" help:"Tolerance of the self-test." default:"0.001" env:"BEAN_SCC_TOLERANCE"`
	GroupPL   bool   `name:"group-p-l" short:"g" help:"Book the gains of a price change in a single posting to the gains account." env:"BEAN_SCC_GROUP_P_L"`

	Yes   bool `short:"y" help:"Overwrite the output file without asking."`
	Watch bool `short:"w" help:"Convert again whenever the input or an included file changes."`
}

func (cmd *ConvertCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.Input.EnsureContents(); err != nil {
		return err
	}

	logger := globals.Logger(ctx.Stderr)
	converter, err := cmd.converter(logger)
	if err != nil {
		printError(ctx.Stderr, err.Error())
		return NewCommandError(ExitUsage)
	}

	if !cmd.Watch {
		_, err := cmd.convert(context.Background(), ctx.Stdout, ctx.Stderr, globals, converter)
		return err
	}

	if cmd.Input.IsStdin() || cmd.Output == ShellOutput || cmd.Output == "-" {
		printError(ctx.Stderr, "--watch needs an input file and an output file")
		return NewCommandError(ExitUsage)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return cmd.watch(runCtx, ctx.Stdout, ctx.Stderr, globals, converter, logger)
}

func (cmd *ConvertCmd) converter(logger *slog.Logger) (*convert.Converter, error) {
	start, err := convert.ParseDate(cmd.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := convert.ParseDate(cmd.EndDate)
	if err != nil {
		return nil, err
	}
	tolerance, err := decimal.NewFromString(cmd.Tolerance)
	if err != nil {
		return nil, &convert.ParameterError{Msg: fmt.Sprintf("invalid tolerance %q", cmd.Tolerance)}
	}
	account, err := ast.NewAccount(cmd.Account)
	if err != nil {
		return nil, &convert.ParameterError{Msg: fmt.Sprintf("invalid gains account: %v", err)}
	}

	return convert.New(
		convert.WithCurrency(cmd.Currency),
		convert.WithStartDate(start),
		convert.WithEndDate(end),
		convert.WithGainsAccount(account),
		convert.WithTolerance(tolerance),
		convert.WithGrouping(cmd.GroupPL),
		convert.WithSelfTest(cmd.SelfTest),
		convert.WithLogger(logger),
	), nil
}

// convert loads the input, converts it and writes the output. It returns the
// loaded input so that watch mode knows which files to follow.
func (cmd *ConvertCmd) convert(ctx context.Context, stdout, stderr io.Writer, globals *Globals, converter *convert.Converter) (*loader.Result, error) {
	runCtx, report := globals.telemetry(ctx, stderr, fmt.Sprintf("convert %s", filepath.Base(cmd.Input.Filename)))
	defer report()

	source, err := cmd.Input.GetSourceContent()
	if err != nil {
		return nil, fmt.Errorf("failed to read file for error context: %w", err)
	}
	renderer := NewErrorRenderer(source)

	ldr := loader.New(loader.WithFollowIncludes(), loader.WithProcessing())
	loaded, err := cmd.Input.Load(runCtx, ldr)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, renderer.Render(err))
		_, _ = fmt.Fprintln(stderr)
		printError(stderr, "parse error")
		return nil, NewCommandError(ExitFailed)
	}
	if n := len(loaded.Errors); n > 0 {
		_, _ = fmt.Fprintln(stderr, renderer.RenderAll(loaded.Errors))
		_, _ = fmt.Fprintln(stderr)
		printWarning(stderr, fmt.Sprintf("%s error(s) in the input ledger", humanize.Comma(int64(n))))
	}

	result, err := converter.Convert(runCtx, loaded.Directives, loaded.Options)
	if err != nil {
		var paramErr *convert.ParameterError
		switch {
		case result != nil && result.Report != nil && !result.Report.OK():
			printReport(stderr, result.Report)
			printError(stderr, "self-test failed, the converted ledger was not written")
		case stdErrors.As(err, &paramErr):
			printError(stderr, err.Error())
			return loaded, NewCommandError(ExitUsage)
		default:
			_, _ = fmt.Fprintln(stderr, renderer.Render(err))
			_, _ = fmt.Fprintln(stderr)
			printError(stderr, "conversion failed")
		}
		return loaded, NewCommandError(ExitFailed)
	}

	// Status goes to stderr when stdout carries the ledger or the shell.
	status := stdout
	if cmd.Output == "-" || cmd.Output == ShellOutput {
		status = stderr
	}

	if result.Report != nil {
		printReport(status, result.Report)
	}
	if len(result.Unconvertible) > 0 {
		styles := output.NewStyles(status)
		kept := make([]string, len(result.Unconvertible))
		for i, currency := range result.Unconvertible {
			kept[i] = styles.Currency(currency)
		}
		printInfof(status, "Kept in their own currency: %s", strings.Join(kept, ", "))
	}

	switch cmd.Output {
	case ShellOutput:
		return loaded, cmd.shell(runCtx, stdout, result)
	case "-":
		_, err := io.WriteString(stdout, result.Text)
		return loaded, err
	}

	written, err := cmd.write(result.Text)
	if err != nil {
		return loaded, err
	}
	if !written {
		printInfof(status, "Skipped writing %s", pathStyle.Render(cmd.Output))
		return loaded, nil
	}

	if n := len(result.Errors); n > 0 {
		printWarning(status, fmt.Sprintf("File %s has been created. Beancount has detected the following errors in the converted file", pathStyle.Render(cmd.Output)))
		_, _ = fmt.Fprintln(status, renderer.RenderAll(result.Errors))
		return loaded, nil
	}

	printSuccess(status, fmt.Sprintf("File %s has been successfully created (%s entries in %s, %s to %s)",
		pathStyle.Render(cmd.Output), humanize.Comma(int64(len(result.Directives))), result.Currency, result.Start, result.End))
	return loaded, nil
}

// write writes text to the output file atomically. An existing file is only
// replaced after confirmation, unless --yes is set or stdin is no terminal.
func (cmd *ConvertCmd) write(text string) (bool, error) {
	if _, err := os.Stat(cmd.Output); err == nil && !cmd.Yes && isTerminal() {
		ok, err := promptYesNo(fmt.Sprintf("Overwrite %s?", cmd.Output))
		if err != nil || !ok {
			return false, err
		}
	}
	if err := atomic.WriteFile(cmd.Output, strings.NewReader(text)); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", cmd.Output, err)
	}
	return true, nil
}

func (cmd *ConvertCmd) shell(ctx context.Context, w io.Writer, result *convert.Result) error {
	shell := &query.Shell{
		Directives: result.Directives,
		Options:    result.Options,
		Errors:     result.Errors,
		Currency:   result.Currency,
		Date:       result.End,
	}
	return runShell(ctx, shell, w)
}

// runShell runs shell on the terminal when stdin and stdout are one, and
// line by line otherwise.
func runShell(ctx context.Context, shell *query.Shell, w io.Writer) error {
	if isTerminal() && isTerminalWriter(w) {
		rw := struct {
			io.Reader
			io.Writer
		}{os.Stdin, w}
		shell.Styles = output.NewStyles(w)
		return shell.RunTerminal(ctx, int(os.Stdin.Fd()), rw)
	}
	return shell.Run(ctx, os.Stdin, w)
}

// printReport writes the self-test report, rendered as markdown on
// terminals.
func printReport(w io.Writer, report *selftest.Report) {
	md := report.Markdown()
	if isTerminalWriter(w) {
		renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err == nil {
			if out, err := renderer.Render(md); err == nil {
				md = out
			}
		}
	}
	_, _ = fmt.Fprintln(w, md)
}

// watch converts once and again after every change of the input or one of
// its includes, until ctx is done.
func (cmd *ConvertCmd) watch(ctx context.Context, stdout, stderr io.Writer, globals *Globals, converter *convert.Converter, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	watched := map[string]bool{}
	follow := func(loaded *loader.Result) {
		files := []string{cmd.Input.GetAbsoluteFilename()}
		if loaded != nil {
			files = loaded.Files()
		}
		current := map[string]bool{}
		for _, file := range files {
			current[file] = true
			// Re-add to catch files re-created by atomic saves.
			if err := watcher.Add(file); err != nil {
				logger.Warn("failed to watch file", "file", file, "error", err)
			}
		}
		for file := range watched {
			if !current[file] {
				_ = watcher.Remove(file)
			}
		}
		watched = current
	}

	loaded, _ := cmd.convert(ctx, stdout, stderr, globals, converter)
	cmd.Yes = true
	follow(loaded)
	printInfof(stderr, "Watching %s file(s) for changes", humanize.Comma(int64(len(watched))))

	changed := make(chan struct{}, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("file changed", "file", event.Name, "op", event.Op.String())
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				select {
				case changed <- struct{}{}:
				default:
				}
			})

		case <-changed:
			loaded, _ := cmd.convert(ctx, stdout, stderr, globals, converter)
			follow(loaded)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", "error", err)
		}
	}
}
