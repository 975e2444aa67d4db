// Package loader provides functionality for loading Beancount files with support for
// include directives, booking and plugins. It can recursively resolve and merge
// multiple files into a single AST, handling relative paths and deduplication.
//
// The loader supports two levels of work:
//   - Parsing: the file is parsed, optionally following include directives
//   - Processing: the merged directives are booked by the ledger and passed
//     through the plugins named by plugin directives
//
// When following includes, the loader resolves relative paths from the directory of
// the file containing the include directive, and deduplicates files that are included
// multiple times.
//
// Example usage:
//
//	// Parse a single file without following includes
//	ldr := loader.New()
//	result, err := ldr.Load(ctx, "main.beancount")
//
//	// Load the way bean-check does: includes, booking and plugins
//	result, err := loader.LoadFile(ctx, "main.beancount")
//	if err := result.Err(); err != nil {
//	    // validation errors
//	}
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/ledger"
	"github.com/robinvdvleuten/beancount-scc/parser"
	"github.com/robinvdvleuten/beancount-scc/plugin"
	"github.com/robinvdvleuten/beancount-scc/telemetry"
)

// Loader handles loading and parsing of Beancount files with optional include resolution.
//
// Configure the loader using functional options passed to New:
//
//	loader := New(WithFollowIncludes(), WithProcessing())
type Loader struct {
	// FollowIncludes determines whether to recursively load included files.
	// When false, only the specified file is parsed and ast.Includes is preserved.
	// When true, all included files are recursively loaded and merged into a single AST.
	FollowIncludes bool

	// Process books the merged directives and runs the plugins.
	Process bool

	// Plugins resolves plugin directives. Defaults to plugin.Default.
	Plugins *plugin.Registry
}

// Result is the outcome of loading a file.
type Result struct {
	// Root is the absolute path of the loaded file.
	Root string
	// Includes lists the absolute paths of all included files, in load order.
	Includes []string
	// AST is the merged syntax tree as parsed.
	AST *ast.AST

	// The fields below are only set when processing.

	// Directives are the booked directives after plugins, in date order.
	Directives ast.Directives
	Options    *ledger.Options
	Prices     *ledger.PriceMap
	// Errors are the validation and plugin errors.
	Errors []error
}

// Files returns the root file followed by every included file.
func (r *Result) Files() []string {
	return append([]string{r.Root}, r.Includes...)
}

// Err combines all errors of the result, or returns nil.
func (r *Result) Err() error {
	return multierr.Combine(r.Errors...)
}

// Option configures how files are loaded.
type Option func(*Loader)

// WithFollowIncludes configures the loader to recursively load and merge all included files.
// When enabled:
//   - All include directives are recursively resolved and loaded
//   - Relative paths are resolved from the directory of the including file
//   - All directives and plugins are merged into a single AST; options
//     are taken from the root file only
//   - The returned AST has ast.Includes set to nil (all includes resolved)
func WithFollowIncludes() Option {
	return func(l *Loader) {
		l.FollowIncludes = true
	}
}

// WithProcessing configures the loader to book the directives and run plugins.
func WithProcessing() Option {
	return func(l *Loader) {
		l.Process = true
	}
}

// WithRegistry sets the plugin registry used while processing.
func WithRegistry(r *plugin.Registry) Option {
	return func(l *Loader) {
		l.Plugins = r
	}
}

// New creates a new Loader with the given options.
func New(opts ...Option) *Loader {
	l := &Loader{Plugins: plugin.Default}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile loads filename the way bean-check does: following includes,
// booking and running plugins.
func LoadFile(ctx context.Context, filename string) (*Result, error) {
	return New(WithFollowIncludes(), WithProcessing()).Load(ctx, filename)
}

// LoadString processes a ledger held in memory. Include directives are
// not allowed.
func LoadString(ctx context.Context, source string) (*Result, error) {
	return New(WithFollowIncludes(), WithProcessing()).LoadBytes(ctx, "<string>", []byte(source))
}

// Load parses a beancount file with optional recursive include resolution.
// Read and syntax errors are returned as error; validation errors found while
// processing are collected in Result.Errors.
func (l *Loader) Load(ctx context.Context, filename string) (*Result, error) {
	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for %s: %w", filename, err)
	}

	timer := telemetry.FromContext(ctx).Start("loader.Load")
	defer timer.End()

	result := &Result{Root: absPath}

	if !l.FollowIncludes {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filename, err)
		}
		if result.AST, err = parser.ParseBytesWithFilename(ctx, filename, data); err != nil {
			return nil, err
		}
	} else {
		state := &loaderState{visited: make(map[string]bool), root: absPath}
		if result.AST, err = state.loadRecursive(ctx, filename); err != nil {
			return nil, err
		}
		result.Includes = state.includes
	}

	if l.Process {
		if err := l.process(ctx, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// LoadBytes parses data as if it was read from filename. Include directives
// cannot be followed from memory and are an error in follow mode.
func (l *Loader) LoadBytes(ctx context.Context, filename string, data []byte) (*Result, error) {
	tree, err := parser.ParseBytesWithFilename(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	if l.FollowIncludes && len(tree.Includes) > 0 {
		if filename == "<stdin>" {
			return nil, fmt.Errorf("include directives are not supported when reading from stdin")
		}
		return nil, fmt.Errorf("include directives found; use Load() instead of LoadBytes() to resolve includes")
	}

	result := &Result{Root: filename, AST: tree}
	if l.Process {
		if err := l.process(ctx, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// MustLoad is like Load but panics on error.
func (l *Loader) MustLoad(ctx context.Context, filename string) *Result {
	result, err := l.Load(ctx, filename)
	if err != nil {
		panic(err)
	}
	return result
}

// MustLoadBytes is like LoadBytes but panics on error.
func (l *Loader) MustLoadBytes(ctx context.Context, filename string, data []byte) *Result {
	result, err := l.LoadBytes(ctx, filename, data)
	if err != nil {
		panic(err)
	}
	return result
}

// process books the merged tree and runs the plugins around it. Only
// context cancellation is returned as error.
func (l *Loader) process(ctx context.Context, result *Result) error {
	timer := telemetry.FromContext(ctx).Start("loader.process")
	defer timer.End()

	tree := result.AST
	registry := l.Plugins
	if registry == nil {
		registry = plugin.Default
	}

	// The ledger reports option errors itself.
	options, err := ledger.ParseOptions(tree.Options)
	if err != nil {
		options = ledger.NewOptions()
	}

	raw, errs := registry.Run(ctx, plugin.Raw, tree.Plugins, tree.Directives, options)
	result.Errors = append(result.Errors, errs...)

	led := ledger.New()
	if err := led.Process(ctx, &ast.AST{Directives: raw, Options: tree.Options}); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		result.Errors = append(result.Errors, led.Errors()...)
	}

	directives, errs := registry.Run(ctx, plugin.Booked, tree.Plugins, led.Directives(), led.Options())
	result.Errors = append(result.Errors, errs...)
	ast.SortDirectives(directives)

	result.Directives = directives
	result.Options = led.Options()
	result.Prices = ledger.BuildPriceMap(directives)
	return nil
}

// loaderState tracks state during recursive loading.
type loaderState struct {
	root     string
	visited  map[string]bool // Absolute paths of files already loaded
	includes []string
}

// loadRecursive recursively loads a file and all its includes.
func (l *loaderState) loadRecursive(ctx context.Context, filename string) (*ast.AST, error) {
	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for %s: %w", filename, err)
	}

	// Files included more than once, or in a cycle, are loaded once.
	if l.visited[absPath] {
		return &ast.AST{}, nil
	}
	l.visited[absPath] = true
	if absPath != l.root {
		l.includes = append(l.includes, absPath)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}

	tree, err := parser.ParseBytesWithFilename(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	if len(tree.Includes) == 0 {
		tree.Includes = nil
		return tree, nil
	}

	baseDir := filepath.Dir(absPath)
	var included []*ast.AST

	for _, inc := range tree.Includes {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		includePath := inc.Filename
		if !filepath.IsAbs(includePath) {
			includePath = filepath.Join(baseDir, includePath)
		}

		sub, err := l.loadRecursive(ctx, includePath)
		if err != nil {
			return nil, fmt.Errorf("in file %s: %w", filename, err)
		}
		included = append(included, sub)
	}

	return mergeASTs(tree, included...), nil
}

// mergeASTs combines a main AST with multiple included ASTs.
// The main AST's options take precedence over included files' options.
func mergeASTs(main *ast.AST, included ...*ast.AST) *ast.AST {
	result := &ast.AST{
		Directives: append(ast.Directives(nil), main.Directives...),
		Options:    main.Options,
		Plugins:    main.Plugins,
	}

	for _, inc := range included {
		result.Directives = append(result.Directives, inc.Directives...)
		result.Plugins = append(result.Plugins, inc.Plugins...)
	}

	ast.SortDirectives(result.Directives)
	return result
}
