package transit

import (
	"context"
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
	"go.uber.org/multierr"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/loader"
)

const source = `
2020-01-01 open Assets:Bank
2020-01-01 open Assets:Broker
2020-01-01 open Assets:Transit
2020-01-01 open Equity:Opening-Balances

2020-01-01 * "Opening"
  Assets:Bank              1000 EUR
  Equity:Opening-Balances

2020-01-02 * "Send"
  Assets:Bank              -100 EUR
  Assets:Transit            100 EUR

2020-01-04 * "Receive"
  Assets:Transit           -100 EUR
  Assets:Broker             100 EUR

2020-01-10 * "Send late"
  Assets:Bank               -50 EUR
  Assets:Transit             50 EUR

2020-01-20 * "Receive late"
  Assets:Transit            -50 EUR
  Assets:Broker              50 EUR

2020-01-21 * "Receive unknown"
  Assets:Transit            -20 EUR
  Assets:Broker              20 EUR
`

func route(days int) Route {
	return Route{From: "Assets:Bank", Transit: "Assets:Transit", To: "Assets:Broker", MaxDays: days}
}

func TestCheck(t *testing.T) {
	result, err := loader.LoadString(context.Background(), source)
	assert.NoError(t, err)
	assert.NoError(t, result.Err())

	tests := []struct {
		name     string
		route    Route
		expected []string
	}{
		{"Strict", route(5), []string{"Send late", "Receive late", "Receive unknown"}},
		{"Lenient", route(10), []string{"Receive unknown"}},
		{"Window", Route{From: "Assets:Bank", Transit: "Assets:Transit", To: "Assets:Broker", MaxDays: 5, End: ast.MustDate("2020-01-15")}, []string{"Send late"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Check(result.Directives, tt.route)
			var got []string
			for _, err := range errs {
				var lost *FundsLostInTransitError
				assert.True(t, errors.As(err, &lost))
				got = append(got, lost.Transaction.Narration)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCheckMessages(t *testing.T) {
	result, err := loader.LoadString(context.Background(), source)
	assert.NoError(t, err)

	errs := Check(result.Directives, route(5))
	assert.Equal(t, 3, len(errs))
	assert.Equal(t, "2020-01-10: -50 EUR were sent via the path 'Assets:Bank' ==> 'Assets:Transit' ==> 'Assets:Broker' but were not received within 5 days", errs[0].Error())
	assert.Contains(t, errs[2].Error(), "were received via the path")
}

func TestCheckAll(t *testing.T) {
	result, err := loader.LoadString(context.Background(), source)
	assert.NoError(t, err)

	err = CheckAll(result.Directives, []Route{route(10), route(5)})
	assert.Equal(t, 4, len(multierr.Errors(err)))

	assert.NoError(t, CheckAll(result.Directives, nil))
}

func TestParseRoute(t *testing.T) {
	r, err := ParseRoute("Assets:Bank, Assets:Transit, Assets:Broker, 3")
	assert.NoError(t, err)
	assert.Equal(t, route(3), r)

	for _, s := range []string{"Assets:Bank,Assets:Transit,3", "Assets:Bank,Assets:Transit,Assets:Broker,x", "bank,Assets:Transit,Assets:Broker,3", "Assets:Bank,Assets:Transit,Assets:Broker,-1"} {
		_, err := ParseRoute(s)
		assert.Error(t, err, s)
	}
}
