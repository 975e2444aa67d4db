package ast

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Amount represents a numerical value with its associated currency or commodity symbol.
// The value is stored as a string to preserve the exact decimal representation from
// the input, avoiding floating-point precision issues.
type Amount struct {
	Value    string
	Currency string
}

// String renders the amount as "VALUE CURRENCY".
func (a *Amount) String() string {
	if a == nil {
		return ""
	}
	if a.Currency == "" {
		return a.Value
	}
	return a.Value + " " + a.Currency
}

func (a *Amount) clone() *Amount {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// Cost represents the cost basis specification for a posting, used primarily for tracking
// the acquisition cost of investments and other commodities. An empty cost {} selects any
// lot automatically. A merge cost {*} averages all lots together. Otherwise, you can specify
// the per-unit cost amount, acquisition date, and/or a label to identify specific lots for
// capital gains calculations. IsTotal marks a {{...}} total cost; booking turns it into a
// per-unit cost.
//
// Example cost specifications:
//
//	10 HOOL {518.73 USD}              ; Per-unit cost
//	10 HOOL {{5187.30 USD}}           ; Total cost
//	10 HOOL {518.73 USD, 2014-05-01}  ; Cost with acquisition date
//	-5 HOOL {502.12 USD, "first-lot"} ; Cost with label for lot selection
//	10 HOOL {}                        ; Any lot (automatic selection)
//	10 HOOL {*}                       ; Merge/average all lots
type Cost struct {
	IsMerge bool
	IsTotal bool
	Amount  *Amount
	Date    *Date
	Label   string
}

// IsEmpty returns true if this is an empty cost specification {}.
// Distinguishes between nil (no cost) and empty cost (any lot selection).
func (c *Cost) IsEmpty() bool {
	return c != nil && !c.IsMerge && c.Amount == nil && c.Date == nil && c.Label == ""
}

// IsMergeCost returns true if this is a merge cost specification {*}.
func (c *Cost) IsMergeCost() bool {
	return c != nil && c.IsMerge
}

func (c *Cost) clone() *Cost {
	if c == nil {
		return nil
	}
	out := *c
	out.Amount = c.Amount.clone()
	out.Date = c.Date.clone()
	return &out
}

// Account represents a Beancount account name consisting of at least two colon-separated
// segments. The first segment is one of the five root names configured through the
// name_* options. Subsequent segments must start with an uppercase letter or digit and
// can contain letters, numbers, and hyphens.
//
// Example accounts:
//
//	Assets:US:BofA:Checking
//	Liabilities:CreditCard:CapitalOne
//	Income:Unrealized-Gains:EUR-USD
type Account string

// Root returns the first n components of the account, like beanquery's root(n, account).
func (a Account) Root(n int) Account {
	parts := strings.Split(string(a), ":")
	if n >= len(parts) {
		return a
	}
	return Account(strings.Join(parts[:n], ":"))
}

// Type returns the first component of the account name.
func (a Account) Type() string {
	s := string(a)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i]
	}
	return s
}

// Sub returns the child account a:name.
func (a Account) Sub(name string) Account {
	return Account(string(a) + ":" + name)
}

// accountSegmentRegex validates account segments (after first).
// Must start with uppercase letter or digit, can contain alphanumerics and hyphens.
var accountSegmentRegex = regexp.MustCompile(`^[\p{Lu}\p{Lo}0-9][\p{L}\p{N}-]*$`)

// accountRootRegex validates the root segment.
var accountRootRegex = regexp.MustCompile(`^[\p{Lu}\p{Lo}][\p{L}\p{N}-]*$`)

// Validate checks the account's syntax without looking at the root name.
func (a Account) Validate() error {
	parts := strings.Split(string(a), ":")
	if len(parts) < 2 {
		return fmt.Errorf("account must have at least two segments: %s", a)
	}
	if !accountRootRegex.MatchString(parts[0]) {
		return fmt.Errorf("invalid account root: %s", parts[0])
	}
	for i := 1; i < len(parts); i++ {
		if !accountSegmentRegex.MatchString(parts[i]) {
			return fmt.Errorf("invalid account segment at position %d: %s", i, parts[i])
		}
	}
	return nil
}

// Date represents a calendar date in ISO 8601 format (YYYY-MM-DD). All Beancount
// directives and transactions must have a date.
type Date struct {
	time.Time
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// IsZero returns true if the Date is nil or represents the zero time.
// This method is nil-safe to prevent panics when repr or other libraries
// check if fields are zero-valued.
func (d *Date) IsZero() bool {
	if d == nil {
		return true
	}
	return d.Time.IsZero()
}

// AddDays returns a new date n days after d.
func (d *Date) AddDays(n int) *Date {
	return &Date{Time: d.Time.AddDate(0, 0, n)}
}

// Before reports whether d is strictly before other.
func (d *Date) Before(other *Date) bool { return d.Time.Before(other.Time) }

// After reports whether d is strictly after other.
func (d *Date) After(other *Date) bool { return d.Time.After(other.Time) }

// Equal reports whether both dates are the same day.
func (d *Date) Equal(other *Date) bool { return d.Time.Equal(other.Time) }

func (d *Date) clone() *Date {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

// Link represents a reference link starting with ^, used to connect related transactions
// together. The stored value excludes the ^ prefix.
//
// Example: 2014-05-05 * "Payment" ^trip-to-europe
type Link string

// Tag represents a hashtag starting with #, used to categorize and filter transactions.
// The stored value excludes the # prefix.
//
// Example: 2014-05-05 * "Dinner" #dining #entertainment
type Tag string

// MetadataValue represents a typed value that can be stored in metadata. This is a
// discriminated union where exactly one of the pointer fields should be non-nil.
//
// Example metadata with different value types:
//
//	invoice: "INV-2024-001"           ; String (quoted)
//	trip-start: 2024-01-15            ; Date (ISO format)
//	linked-account: Assets:Checking   ; Account (colon-separated)
//	target-currency: USD              ; Currency (uppercase identifier)
//	category: #vacation               ; Tag (with # prefix)
//	ref: ^invoice123                  ; Link (with ^ prefix)
//	quantity: 42                      ; Number (decimal)
//	budget: 1000.00 USD               ; Amount (number + currency)
//	active: TRUE                      ; Boolean (uppercase TRUE/FALSE)
type MetadataValue struct {
	StringValue *string
	Date        *Date
	Account     *Account
	Currency    *string
	Tag         *Tag
	Link        *Link
	Number      *string
	Amount      *Amount
	Boolean     *bool
}

// Type returns a string representation of the metadata value's type.
func (m *MetadataValue) Type() string {
	if m == nil {
		return "nil"
	}
	switch {
	case m.StringValue != nil:
		return "string"
	case m.Date != nil:
		return "date"
	case m.Account != nil:
		return "account"
	case m.Currency != nil:
		return "currency"
	case m.Tag != nil:
		return "tag"
	case m.Link != nil:
		return "link"
	case m.Number != nil:
		return "number"
	case m.Amount != nil:
		return "amount"
	case m.Boolean != nil:
		return "boolean"
	default:
		return "unknown"
	}
}

// String returns the bare value, without quoting.
func (m *MetadataValue) String() string {
	if m == nil {
		return ""
	}
	switch {
	case m.StringValue != nil:
		return *m.StringValue
	case m.Date != nil:
		return m.Date.String()
	case m.Account != nil:
		return string(*m.Account)
	case m.Currency != nil:
		return *m.Currency
	case m.Tag != nil:
		return "#" + string(*m.Tag)
	case m.Link != nil:
		return "^" + string(*m.Link)
	case m.Number != nil:
		return *m.Number
	case m.Amount != nil:
		return m.Amount.String()
	case m.Boolean != nil:
		if *m.Boolean {
			return "TRUE"
		}
		return "FALSE"
	default:
		return ""
	}
}

func (m *MetadataValue) clone() *MetadataValue {
	if m == nil {
		return nil
	}
	out := &MetadataValue{
		Date:   m.Date.clone(),
		Amount: m.Amount.clone(),
	}
	if m.StringValue != nil {
		v := *m.StringValue
		out.StringValue = &v
	}
	if m.Account != nil {
		v := *m.Account
		out.Account = &v
	}
	if m.Currency != nil {
		v := *m.Currency
		out.Currency = &v
	}
	if m.Tag != nil {
		v := *m.Tag
		out.Tag = &v
	}
	if m.Link != nil {
		v := *m.Link
		out.Link = &v
	}
	if m.Number != nil {
		v := *m.Number
		out.Number = &v
	}
	if m.Boolean != nil {
		v := *m.Boolean
		out.Boolean = &v
	}
	return out
}

// Metadata represents a key-value pair that can be attached to any directive or posting.
// Metadata entries are indented on lines immediately following the directive or posting
// they annotate.
//
// Example:
//
//	2014-05-05 * "Payment"
//	  invoice: "INV-2014-05-001"
//	  Assets:Checking  -100.00 USD
//	    confirmation: "CONF123456"
//	  Expenses:Services
type Metadata struct {
	Key   string
	Value *MetadataValue
}

// MetaString looks up key in metadata and returns its bare string value.
func MetaString(metadata []*Metadata, key string) (string, bool) {
	for _, m := range metadata {
		if m.Key == key {
			return m.Value.String(), true
		}
	}
	return "", false
}

func cloneMetadata(metadata []*Metadata) []*Metadata {
	if metadata == nil {
		return nil
	}
	out := make([]*Metadata, len(metadata))
	for i, m := range metadata {
		out[i] = &Metadata{Key: m.Key, Value: m.Value.clone()}
	}
	return out
}
