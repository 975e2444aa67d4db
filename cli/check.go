package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"

	"github.com/robinvdvleuten/beancount-scc/errors"
	"github.com/robinvdvleuten/beancount-scc/loader"
)

type CheckCmd struct {
	File FileOrStdin `help:"Beancount input filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
	JSON bool        `help:"Print the errors as JSON."`
}

func (cmd *CheckCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return err
	}

	runCtx, report := globals.telemetry(context.Background(), ctx.Stderr, fmt.Sprintf("check %s", filepath.Base(cmd.File.Filename)))
	defer report()

	sourceContent, err := cmd.File.GetSourceContent()
	if err != nil {
		return fmt.Errorf("failed to read file for error context: %w", err)
	}

	ldr := loader.New(loader.WithFollowIncludes(), loader.WithProcessing())
	result, err := cmd.File.Load(runCtx, ldr)
	if err != nil {
		if cmd.JSON {
			_, _ = fmt.Fprintln(ctx.Stdout, errors.NewJSONFormatter().FormatAll([]error{err}))
			return NewCommandError(ExitFailed)
		}
		_, _ = fmt.Fprintln(ctx.Stderr, NewErrorRenderer(sourceContent).Render(err))
		_, _ = fmt.Fprintln(ctx.Stderr)
		printError(ctx.Stderr, "parse error")
		return NewCommandError(ExitFailed)
	}

	globals.Logger(ctx.Stderr).Debug("ledger loaded", "files", len(result.Files()), "directives", len(result.Directives))

	if cmd.JSON {
		_, _ = fmt.Fprintln(ctx.Stdout, errors.NewJSONFormatter().FormatAll(result.Errors))
		if len(result.Errors) > 0 {
			return NewCommandError(ExitFailed)
		}
		return nil
	}

	if n := len(result.Errors); n > 0 {
		_, _ = fmt.Fprintln(ctx.Stderr, NewErrorRenderer(sourceContent).RenderAll(result.Errors))
		_, _ = fmt.Fprintln(ctx.Stderr)
		printError(ctx.Stderr, fmt.Sprintf("%s validation error(s) found", humanize.Comma(int64(n))))
		return NewCommandError(ExitFailed)
	}

	printSuccess(ctx.Stdout, "Check passed")

	return nil
}
