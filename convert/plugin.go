package convert

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/ledger"
	"github.com/robinvdvleuten/beancount-scc/plugin"
)

// PluginName is the name under which the converter is registered as a ledger
// plugin:
//
//	plugin "beancount_scc" "currency='EUR', start_date='2020-01-01'"
const PluginName = "beancount_scc"

func init() {
	plugin.Register(&plugin.Plugin{
		Name:  PluginName,
		Stage: plugin.Booked,
		Run:   runPlugin,
	})
}

func runPlugin(ctx context.Context, directives ast.Directives, options *ledger.Options, config string) (ast.Directives, []error) {
	cfg, err := ParseConfig(config)
	if err != nil {
		return directives, []error{err}
	}
	result, err := New(cfg.Options()...).Convert(ctx, directives, options)
	if result == nil {
		return directives, []error{err}
	}
	errs := result.Errors
	if err != nil {
		errs = append(errs, err)
	}
	return result.Directives, errs
}

// Config is the configuration string of the plugin, a comma separated list
// of keyword arguments:
//
//	currency='EUR', start_date='2020-01-01', group_p_l_acc_tr=True
type Config struct {
	Currency     string
	Start        *ast.Date
	End          *ast.Date
	GainsAccount ast.Account
	Tolerance    *decimal.Decimal
	Group        bool
	SelfTest     bool
}

// ParseConfig parses a plugin configuration string. Positional arguments and
// unknown keywords are errors.
func ParseConfig(s string) (*Config, error) {
	cfg := &Config{}
	args, err := splitArgs(s)
	if err != nil {
		return nil, &ParameterError{Msg: fmt.Sprintf("error while parsing configuration string %q: %v", s, err)}
	}

	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, &ParameterError{Msg: fmt.Sprintf("positional arguments are not supported, got %s; use keyword arguments such as currency='EUR'", arg)}
		}
		key = strings.TrimSpace(key)
		value, err := unquote(strings.TrimSpace(raw))
		if err != nil {
			return nil, &ParameterError{Msg: fmt.Sprintf("invalid value of %s: %v", key, err)}
		}

		switch key {
		case "currency", "target_currency":
			cfg.Currency = value
		case "start_date":
			if cfg.Start, err = ParseDate(value); err != nil {
				return nil, err
			}
		case "end_date":
			if cfg.End, err = ParseDate(value); err != nil {
				return nil, err
			}
		case "unreal_gains_p_l_acc":
			account, err := ast.NewAccount(value)
			if err != nil {
				return nil, &ParameterError{Msg: fmt.Sprintf("invalid gains account %q: %v", value, err)}
			}
			cfg.GainsAccount = account
		case "tolerance":
			tolerance, err := decimal.NewFromString(strings.ReplaceAll(value, ",", ""))
			if err != nil {
				return nil, &ParameterError{Msg: fmt.Sprintf("invalid tolerance %q", value)}
			}
			cfg.Tolerance = &tolerance
		case "group_p_l_acc_tr":
			if cfg.Group, err = parseBool(value); err != nil {
				return nil, err
			}
		case "self_testing_mode":
			if cfg.SelfTest, err = parseBool(value); err != nil {
				return nil, err
			}
		default:
			return nil, &ParameterError{Msg: fmt.Sprintf("unknown keyword argument %q", key)}
		}
	}
	return cfg, nil
}

// Options returns the converter options of the configuration.
func (c *Config) Options() []Option {
	opts := []Option{
		WithCurrency(c.Currency),
		WithStartDate(c.Start),
		WithEndDate(c.End),
		WithGrouping(c.Group),
		WithSelfTest(c.SelfTest),
	}
	if c.GainsAccount != "" {
		opts = append(opts, WithGainsAccount(c.GainsAccount))
	}
	if c.Tolerance != nil {
		opts = append(opts, WithTolerance(*c.Tolerance))
	}
	return opts
}

// splitArgs splits s on commas outside of quotes.
func splitArgs(s string) ([]string, error) {
	var args []string
	var current strings.Builder
	var quote rune
	for _, r := range s {
		switch {
		case quote != 0:
			current.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
			current.WriteRune(r)
		case r == ',':
			args = append(args, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated string")
	}
	args = append(args, current.String())

	out := args[:0]
	for _, arg := range args {
		if arg = strings.TrimSpace(arg); arg != "" {
			out = append(out, arg)
		}
	}
	return out, nil
}

func unquote(s string) (string, error) {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') {
		if s[len(s)-1] != s[0] {
			return "", fmt.Errorf("unterminated string %s", s)
		}
		return s[1 : len(s)-1], nil
	}
	if s == "None" {
		return "", nil
	}
	return s, nil
}

func parseBool(s string) (bool, error) {
	switch s {
	case "True", "true", "1":
		return true, nil
	case "False", "false", "0", "":
		return false, nil
	}
	return false, &ParameterError{Msg: fmt.Sprintf("invalid boolean %q, expected True or False", s)}
}
