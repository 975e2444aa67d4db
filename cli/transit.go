package cli

import (
	"context"
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"go.uber.org/multierr"

	"github.com/robinvdvleuten/beancount-scc/convert"
	"github.com/robinvdvleuten/beancount-scc/loader"
	"github.com/robinvdvleuten/beancount-scc/transit"
)

type TransitCmd struct {
	File      FileOrStdin `help:"Beancount input filename (use '-' for stdin)." arg:""`
	Route     []string    `short:"r" help:"Route to check as FROM,TRANSIT,TO,DAYS. May be repeated." required:"" placeholder:"ROUTE" sep:"none"`
	StartDate string      `short:"s" help:"Ignore transactions before this date (YYYY-MM-DD)." placeholder:"DATE"`
	EndDate   string      `short:"e" help:"Ignore transactions after this date (YYYY-MM-DD)." placeholder:"DATE"`
}

func (cmd *TransitCmd) routes() ([]transit.Route, error) {
	start, err := convert.ParseDate(cmd.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := convert.ParseDate(cmd.EndDate)
	if err != nil {
		return nil, err
	}

	routes := make([]transit.Route, 0, len(cmd.Route))
	for _, s := range cmd.Route {
		route, err := transit.ParseRoute(s)
		if err != nil {
			return nil, err
		}
		route.Start, route.End = start, end
		routes = append(routes, route)
	}
	return routes, nil
}

func (cmd *TransitCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return err
	}

	routes, err := cmd.routes()
	if err != nil {
		printError(ctx.Stderr, err.Error())
		return NewCommandError(ExitUsage)
	}

	runCtx, report := globals.telemetry(context.Background(), ctx.Stderr, "transit")
	defer report()

	sourceContent, err := cmd.File.GetSourceContent()
	if err != nil {
		return fmt.Errorf("failed to read file for error context: %w", err)
	}
	renderer := NewErrorRenderer(sourceContent)

	ldr := loader.New(loader.WithFollowIncludes(), loader.WithProcessing())
	result, err := cmd.File.Load(runCtx, ldr)
	if err != nil {
		_, _ = fmt.Fprintln(ctx.Stderr, renderer.Render(err))
		_, _ = fmt.Fprintln(ctx.Stderr)
		printError(ctx.Stderr, "parse error")
		return NewCommandError(ExitFailed)
	}

	errs := multierr.Errors(transit.CheckAll(result.Directives, routes))
	if n := len(errs); n > 0 {
		_, _ = fmt.Fprintln(ctx.Stderr, renderer.RenderAll(errs))
		_, _ = fmt.Fprintln(ctx.Stderr)
		printError(ctx.Stderr, fmt.Sprintf("%s transfer(s) lost in transit", humanize.Comma(int64(n))))
		return NewCommandError(ExitFailed)
	}

	printSuccess(ctx.Stdout, fmt.Sprintf("All transfers of %s route(s) arrived", humanize.Comma(int64(len(routes)))))
	return nil
}
