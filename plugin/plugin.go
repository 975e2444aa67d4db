// Package plugin keeps the registry of ledger plugins. A ledger enables a
// plugin with a plugin directive, optionally passing a configuration string:
//
//	plugin "beancount.plugins.auto_accounts"
//	plugin "beancount_scc" "currency='EUR'"
//
// Plugins register themselves under their name, usually from an init
// function, and the loader runs them in the order the directives appear.
package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/ledger"
)

// Stage selects when a plugin runs.
type Stage int

const (
	// Booked plugins receive the booked directives after processing.
	Booked Stage = iota
	// Raw plugins receive the parsed directives before processing.
	Raw
)

// Func transforms directives. The returned errors are reported with the
// load result; a plugin that cannot produce output returns its input.
type Func func(ctx context.Context, directives ast.Directives, options *ledger.Options, config string) (ast.Directives, []error)

// Plugin is a registered plugin.
type Plugin struct {
	Name  string
	Stage Stage
	Run   Func
}

// Error wraps a failure of a plugin with the directive that enabled it.
type Error struct {
	Plugin *ast.Plugin
	Err    error
}

func (e *Error) Error() string {
	pos := e.Plugin.Pos
	if pos.Filename != "" {
		return fmt.Sprintf("%s:%d: plugin %q: %v", pos.Filename, pos.Line, e.Plugin.Name, e.Err)
	}
	return fmt.Sprintf("plugin %q: %v", e.Plugin.Name, e.Err)
}

func (e *Error) Unwrap() error              { return e.Err }
func (e *Error) GetPosition() ast.Position { return e.Plugin.Pos }

// Registry maps plugin names to plugins.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]*Plugin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]*Plugin)}
}

// Register adds p, replacing any plugin of the same name.
func (r *Registry) Register(p *Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[p.Name] = p
}

// Lookup returns the plugin registered under name.
func (r *Registry) Lookup(name string) (*Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run applies the plugins of the given stage named by directives, in order.
// Plugin directives of the other stage are skipped. Unknown plugins are
// reported once, at the Booked stage.
func (r *Registry) Run(ctx context.Context, stage Stage, plugins []*ast.Plugin, directives ast.Directives, options *ledger.Options) (ast.Directives, []error) {
	var errs []error
	for _, directive := range plugins {
		p, ok := r.Lookup(directive.Name)
		if !ok {
			if stage == Booked {
				errs = append(errs, &Error{Plugin: directive, Err: fmt.Errorf("plugin not found")})
			}
			continue
		}
		if p.Stage != stage {
			continue
		}

		out, perrs := p.Run(ctx, directives, options, directive.Config)
		for _, err := range perrs {
			errs = append(errs, &Error{Plugin: directive, Err: err})
		}
		if out != nil {
			directives = out
		}
	}
	return directives, errs
}

// Default is the registry used by the loader.
var Default = NewRegistry()

// Register adds p to the default registry.
func Register(p *Plugin) {
	Default.Register(p)
}
