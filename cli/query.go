package cli

import (
	"context"
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/beancount-scc/loader"
	"github.com/robinvdvleuten/beancount-scc/query"
)

type QueryCmd struct {
	File     FileOrStdin `help:"Beancount input filename." arg:""`
	Currency string      `short:"c" help:"Currency of the reports. Defaults to the first operating currency of the ledger." env:"BEAN_SCC_CURRENCY"`
	Execute  []string    `short:"x" help:"Run the command and exit instead of opening the shell. May be repeated." placeholder:"COMMAND"`
}

func (cmd *QueryCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return err
	}

	runCtx := context.Background()

	sourceContent, err := cmd.File.GetSourceContent()
	if err != nil {
		return fmt.Errorf("failed to read file for error context: %w", err)
	}

	ldr := loader.New(loader.WithFollowIncludes(), loader.WithProcessing())
	result, err := cmd.File.Load(runCtx, ldr)
	if err != nil {
		_, _ = fmt.Fprintln(ctx.Stderr, NewErrorRenderer(sourceContent).Render(err))
		_, _ = fmt.Fprintln(ctx.Stderr)
		printError(ctx.Stderr, "parse error")
		return NewCommandError(ExitFailed)
	}

	currency := cmd.Currency
	if currency == "" && len(result.Options.OperatingCurrency) > 0 {
		currency = result.Options.OperatingCurrency[0]
	}
	if currency == "" {
		printError(ctx.Stderr, "the report currency is not specified and there is no operating_currency option")
		return NewCommandError(ExitUsage)
	}

	shell := &query.Shell{
		Directives: result.Directives,
		Options:    result.Options,
		Errors:     result.Errors,
		Currency:   currency,
	}
	if n := len(result.Directives); n > 0 {
		shell.Date = result.Directives[n-1].GetDate()
	}

	if len(cmd.Execute) == 0 {
		return runShell(runCtx, shell, ctx.Stdout)
	}
	for _, line := range cmd.Execute {
		quit, err := shell.Execute(ctx.Stdout, line)
		if err != nil {
			printError(ctx.Stderr, err.Error())
			return NewCommandError(ExitFailed)
		}
		if quit {
			break
		}
	}
	return nil
}
