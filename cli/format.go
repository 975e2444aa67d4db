package cli

import (
	"bytes"
	"context"
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/natefinch/atomic"

	"github.com/robinvdvleuten/beancount-scc/formatter"
	"github.com/robinvdvleuten/beancount-scc/loader"
)

type FormatCmd struct {
	File           FileOrStdin `help:"Beancount input filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
	CurrencyColumn int         `help:"Column for currency alignment (auto-calculated from content if 0, overrides prefix-width and num-width if set)." default:"0"`
	PrefixWidth    int         `help:"Width in characters for account names (auto if 0)." default:"0"`
	NumWidth       int         `help:"Width for numbers (auto if 0)." default:"0"`
	Write          bool        `short:"w" help:"Write the result back to the file instead of stdout." xor:"output"`
	Diff           bool        `short:"d" help:"Print a unified diff of the changes instead of the result." xor:"output"`
}

func (cmd *FormatCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return err
	}
	if cmd.Write && cmd.File.IsStdin() {
		printError(ctx.Stderr, "--write needs an input file")
		return NewCommandError(ExitUsage)
	}

	runCtx, report := globals.telemetry(context.Background(), ctx.Stderr, "format")
	defer report()

	sourceContent, err := cmd.File.GetSourceContent()
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	ldr := loader.New()
	result, err := cmd.File.Load(runCtx, ldr)
	if err != nil {
		renderer := NewErrorRenderer(sourceContent)
		formatted := renderer.Render(err)
		_, _ = fmt.Fprint(ctx.Stderr, formatted)
		_, _ = fmt.Fprintln(ctx.Stderr)
		printError(ctx.Stderr, "parse error")
		return NewCommandError(ExitFailed)
	}

	var opts []formatter.Option
	if cmd.CurrencyColumn > 0 {
		opts = append(opts, formatter.WithCurrencyColumn(cmd.CurrencyColumn))
	}
	if cmd.PrefixWidth > 0 {
		opts = append(opts, formatter.WithPrefixWidth(cmd.PrefixWidth))
	}
	if cmd.NumWidth > 0 {
		opts = append(opts, formatter.WithNumWidth(cmd.NumWidth))
	}
	f := formatter.New(opts...)

	var buf bytes.Buffer
	if err := f.Format(runCtx, result.AST, sourceContent, &buf); err != nil {
		return err
	}

	switch {
	case cmd.Diff:
		_, err := fmt.Fprint(ctx.Stdout, unifiedDiff(cmd.File.Filename, string(sourceContent), buf.String()))
		return err

	case cmd.Write:
		if bytes.Equal(buf.Bytes(), sourceContent) {
			printInfof(ctx.Stderr, "%s is already formatted", pathStyle.Render(cmd.File.Filename))
			return nil
		}
		if err := atomic.WriteFile(cmd.File.Filename, &buf); err != nil {
			return fmt.Errorf("failed to write %s: %w", cmd.File.Filename, err)
		}
		printSuccess(ctx.Stderr, fmt.Sprintf("Formatted %s", pathStyle.Render(cmd.File.Filename)))
		return nil
	}

	_, err = buf.WriteTo(ctx.Stdout)
	return err
}

// unifiedDiff returns the changes from before to after, or the empty string.
func unifiedDiff(filename, before, after string) string {
	edits := myers.ComputeEdits(span.URIFromPath(filename), before, after)
	if len(edits) == 0 {
		return ""
	}
	return fmt.Sprint(gotextdiff.ToUnified(filename, filename, before, edits))
}
