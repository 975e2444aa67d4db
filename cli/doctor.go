package cli

import (
	"context"
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/alecthomas/repr"

	"github.com/robinvdvleuten/beancount-scc/loader"
	"github.com/robinvdvleuten/beancount-scc/parser"
)

// DoctorCmd provides doctor utilities for debugging beancount files.
type DoctorCmd struct {
	Lex LexCmd `cmd:"" help:"Show lexical tokens from a beancount file."`
	Ast AstCmd `cmd:"" help:"Dump the parsed directives of a beancount file."`
}

// LexCmd shows lexical tokens from a beancount file.
type LexCmd struct {
	File FileOrStdin `help:"Beancount input filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
}

// Run executes the lex command.
func (cmd *LexCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return err
	}

	content, err := cmd.File.GetSourceContent()
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	lexer := parser.NewLexer(content, cmd.File.Filename)
	tokens, err := lexer.ScanAll()
	if err != nil {
		if _, ok := err.(*parser.InvalidUTF8Error); ok {
			return fmt.Errorf("lexer error: %w", err)
		}
		return fmt.Errorf("failed to lex file: %w", err)
	}

	// TYPE line:col "content"
	for _, token := range tokens {
		if token.Type == parser.EOF {
			continue
		}
		_, _ = fmt.Fprintf(ctx.Stdout, "%-10s %d:%d    %q\n",
			token.Type.String(),
			token.Line,
			token.Column,
			token.String(content))
	}

	return nil
}

// AstCmd dumps the syntax tree, or the booked directives with --process.
type AstCmd struct {
	File    FileOrStdin `help:"Beancount input filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
	Process bool        `short:"p" help:"Dump the booked directives instead of the syntax tree."`
}

// Run executes the ast command.
func (cmd *AstCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return err
	}

	opts := []loader.Option{loader.WithFollowIncludes()}
	if cmd.Process {
		opts = append(opts, loader.WithProcessing())
	}
	result, err := cmd.File.Load(context.Background(), loader.New(opts...))
	if err != nil {
		return err
	}

	printer := repr.New(ctx.Stdout, repr.Indent("  "), repr.OmitEmpty(true))
	if cmd.Process {
		printer.Println(result.Directives)
		return nil
	}
	printer.Println(result.AST)
	return nil
}
