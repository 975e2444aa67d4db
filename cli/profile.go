package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"
)

// ProfileLoader reads a YAML profile with default flag values. Keys are flag
// names with dashes or underscores:
//
//	currency: EUR
//	start_date: 2020-01-01
//	account: Income:Unrealized-Gains
//	self_test: true
//
// A value given on the command line or through the environment wins over
// the profile.
func ProfileLoader(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && err != io.EOF {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	var resolver kong.ResolverFunc = func(context *kong.Context, parent *kong.Path, flag *kong.Flag) (any, error) {
		for _, key := range []string{flag.Name, strings.ReplaceAll(flag.Name, "-", "_")} {
			value, ok := values[key]
			if !ok {
				continue
			}
			switch v := value.(type) {
			case bool, []any:
				return v, nil
			case nil:
				return nil, nil
			case time.Time:
				// Unquoted dates decode as timestamps.
				return v.Format("2006-01-02"), nil
			default:
				return fmt.Sprint(v), nil
			}
		}
		return nil, nil
	}
	return resolver, nil
}
