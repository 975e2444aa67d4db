package ast

import (
	"fmt"
	"time"
)

// NewAmount creates a new Amount with the given value and currency.
// The value should be a decimal string (e.g., "100.50", "-42.00").
//
// Example:
//
//	amount := ast.NewAmount("45.60", "USD")
func NewAmount(value, currency string) *Amount {
	return &Amount{
		Value:    value,
		Currency: currency,
	}
}

// NewDate parses a date string in YYYY-MM-DD format and returns a Date.
//
// Example:
//
//	date, err := ast.NewDate("2024-01-15")
func NewDate(s string) (*Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %s", s)
	}
	return &Date{Time: t}, nil
}

// MustDate is NewDate that panics on malformed input. Intended for tests and constants.
func MustDate(s string) *Date {
	d, err := NewDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewDateFromTime creates a Date from a time.Time value, truncated to the day in UTC.
func NewDateFromTime(t time.Time) *Date {
	return &Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// NewAccount creates an Account from the given name string and validates its syntax.
//
// Example:
//
//	account, err := ast.NewAccount("Assets:US:BofA:Checking")
func NewAccount(name string) (Account, error) {
	a := Account(name)
	if err := a.Validate(); err != nil {
		return "", err
	}
	return a, nil
}

// NewMetadata creates a metadata entry holding a string value.
//
// Example:
//
//	meta := ast.NewMetadata("invoice", "INV-2024-001")
func NewMetadata(key, value string) *Metadata {
	return &Metadata{
		Key:   key,
		Value: &MetadataValue{StringValue: &value},
	}
}

// TransactionOption is a functional option for configuring a Transaction.
type TransactionOption func(*Transaction)

// NewTransaction creates a new Transaction with the given date and narration. The flag
// defaults to "*".
//
// Example:
//
//	txn := ast.NewTransaction(date, "Opening balance",
//	    ast.WithTransactionMetadata(ast.NewMetadata("source", "import")),
//	    ast.WithPostings(posting1, posting2),
//	)
func NewTransaction(date *Date, narration string, opts ...TransactionOption) *Transaction {
	txn := &Transaction{
		Date:      date,
		Flag:      "*",
		Narration: narration,
	}
	for _, opt := range opts {
		opt(txn)
	}
	return txn
}

// WithFlag sets the transaction flag ("*", "!" or "P").
func WithFlag(flag string) TransactionOption {
	return func(t *Transaction) {
		t.Flag = flag
	}
}

// WithPayee sets the payee.
func WithPayee(payee string) TransactionOption {
	return func(t *Transaction) {
		t.Payee = payee
	}
}

// WithTags adds tags to the transaction.
func WithTags(tags ...Tag) TransactionOption {
	return func(t *Transaction) {
		t.Tags = append(t.Tags, tags...)
	}
}

// WithLinks adds links to the transaction.
func WithLinks(links ...Link) TransactionOption {
	return func(t *Transaction) {
		t.Links = append(t.Links, links...)
	}
}

// WithTransactionMetadata adds metadata to the transaction.
func WithTransactionMetadata(metadata ...*Metadata) TransactionOption {
	return func(t *Transaction) {
		t.Metadata = append(t.Metadata, metadata...)
	}
}

// WithPostings adds postings to the transaction.
func WithPostings(postings ...*Posting) TransactionOption {
	return func(t *Transaction) {
		t.Postings = append(t.Postings, postings...)
	}
}

// PostingOption is a functional option for configuring a Posting.
type PostingOption func(*Posting)

// NewPosting creates a new Posting for the given account.
//
// Example:
//
//	posting := ast.NewPosting(account,
//	    ast.WithAmount("100.00", "USD"),
//	    ast.WithPrice(ast.NewAmount("1.08", "EUR")),
//	)
func NewPosting(account Account, opts ...PostingOption) *Posting {
	p := &Posting{Account: account}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithAmount sets the posting units.
func WithAmount(value, currency string) PostingOption {
	return func(p *Posting) {
		p.Amount = NewAmount(value, currency)
	}
}

// WithCost sets the cost specification.
func WithCost(cost *Cost) PostingOption {
	return func(p *Posting) {
		p.Cost = cost
	}
}

// WithPrice sets a per-unit price (@).
func WithPrice(price *Amount) PostingOption {
	return func(p *Posting) {
		p.Price = price
		p.PriceTotal = false
	}
}

// WithTotalPrice sets a total price (@@).
func WithTotalPrice(price *Amount) PostingOption {
	return func(p *Posting) {
		p.Price = price
		p.PriceTotal = true
	}
}

// WithPostingFlag sets the posting flag.
func WithPostingFlag(flag string) PostingOption {
	return func(p *Posting) {
		p.Flag = flag
	}
}

// WithPostingMetadata adds metadata to the posting.
func WithPostingMetadata(metadata ...*Metadata) PostingOption {
	return func(p *Posting) {
		p.Metadata = append(p.Metadata, metadata...)
	}
}

// NewCost creates a per-unit cost specification.
func NewCost(amount *Amount) *Cost {
	return &Cost{Amount: amount}
}

// NewCostWithDate creates a per-unit cost with an acquisition date.
func NewCostWithDate(amount *Amount, date *Date) *Cost {
	return &Cost{Amount: amount, Date: date}
}

// NewOpen creates an Open directive.
func NewOpen(date *Date, account Account, constraintCurrencies []string, bookingMethod string) *Open {
	return &Open{
		Date:                 date,
		Account:              account,
		ConstraintCurrencies: constraintCurrencies,
		BookingMethod:        bookingMethod,
	}
}

// NewClose creates a Close directive.
func NewClose(date *Date, account Account) *Close {
	return &Close{Date: date, Account: account}
}

// NewBalance creates a Balance directive.
func NewBalance(date *Date, account Account, amount *Amount) *Balance {
	return &Balance{Date: date, Account: account, Amount: amount}
}

// NewPad creates a Pad directive.
func NewPad(date *Date, account, padAccount Account) *Pad {
	return &Pad{Date: date, Account: account, AccountPad: padAccount}
}

// NewPrice creates a Price directive.
//
// Example:
//
//	price := ast.NewPrice(date, "USD", ast.NewAmount("0.92", "EUR"))
func NewPrice(date *Date, commodity string, amount *Amount) *Price {
	return &Price{Date: date, Commodity: commodity, Amount: amount}
}

// NewCommodity creates a Commodity directive.
func NewCommodity(date *Date, currency string) *Commodity {
	return &Commodity{Date: date, Currency: currency}
}

// NewNote creates a Note directive.
func NewNote(date *Date, account Account, description string) *Note {
	return &Note{Date: date, Account: account, Description: description}
}
