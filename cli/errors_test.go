package cli

import (
	stdErrors "errors"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/parser"
	"github.com/robinvdvleuten/beancount-scc/transit"
)

func TestErrorRendererParseError(t *testing.T) {
	source := `2024-01-15 * "Cafe purchase" "Lunch at cafe"
  Expenses:Food:Cafe                     -25.00 USD
  Assets:Checking

2024-01-16 * "Another transaction" "Test transaction"
  Expenses:Food:Restaurant                -30.00
  Assets:Checking`

	parseErr := &parser.ParseError{
		Pos:     ast.Position{Filename: "test.beancount", Line: 6, Column: 49},
		Message: "expected currency",
	}

	t.Run("WithSource", func(t *testing.T) {
		output := NewErrorRenderer([]byte(source)).Render(parseErr)
		assert.Contains(t, output, "test.beancount:6: expected currency")
		assert.Contains(t, output, "^")

		var indented bool
		for _, line := range strings.Split(output, "\n") {
			if strings.HasPrefix(line, "   ") && strings.Contains(line, "Expenses:Food:Restaurant") {
				indented = true
			}
		}
		assert.True(t, indented, "expected indented source lines")
	})

	t.Run("WithoutSource", func(t *testing.T) {
		output := NewErrorRenderer(nil).Render(parseErr)
		assert.Equal(t, "test.beancount:6: expected currency", output)
	})

	t.Run("LastLine", func(t *testing.T) {
		err := &parser.ParseError{Pos: ast.Position{Line: 7, Column: 3}, Message: "unexpected end"}
		output := NewErrorRenderer([]byte(source)).Render(err)
		assert.Contains(t, output, "Assets:Checking")
		assert.Contains(t, output, "^")
	})
}

func TestErrorRendererDirective(t *testing.T) {
	txn := &ast.Transaction{
		Date:      ast.MustDate("2020-01-10"),
		Flag:      "*",
		Narration: "Send",
		Postings: []*ast.Posting{
			{Account: "Assets:Bank", Amount: ast.NewAmount("-50", "EUR")},
			{Account: "Assets:Transit", Amount: ast.NewAmount("50", "EUR")},
		},
	}
	err := &transit.FundsLostInTransitError{
		Route:       transit.Route{From: "Assets:Bank", Transit: "Assets:Transit", To: "Assets:Broker", MaxDays: 3},
		Transaction: txn,
	}

	output := NewErrorRenderer(nil).Render(err)
	assert.Contains(t, output, "were sent via the path")
	assert.Contains(t, output, "   2020-01-10 * \"Send\"")
	assert.Contains(t, output, "Assets:Transit")
}

func TestErrorRendererRenderAll(t *testing.T) {
	output := NewErrorRenderer(nil).RenderAll([]error{stdErrors.New("first"), stdErrors.New("second")})
	assert.Equal(t, "first\n\nsecond", output)
	assert.Equal(t, "", NewErrorRenderer(nil).RenderAll(nil))
}
