package ast

// Transaction records a financial transaction with a date, flag, optional payee,
// narration, and a list of postings. The flag indicates transaction status: '*' for
// cleared/complete transactions, '!' for pending/uncleared transactions, or 'P' for
// automatically generated padding transactions. The sum of all posting weights must
// balance to zero within the inferred tolerance.
//
// Example:
//
//	2014-05-05 * "Cafe Mogador" "Lamb tagine with wine"
//	  Liabilities:CreditCard:CapitalOne         -37.45 USD
//	  Expenses:Food:Restaurant
type Transaction struct {
	Pos       Position
	Date      *Date
	Flag      string
	Payee     string
	Narration string
	Tags      []Tag
	Links     []Link
	Metadata  []*Metadata
	Postings  []*Posting
}

var _ Directive = &Transaction{}

func (t *Transaction) Position() Position         { return t.Pos }
func (t *Transaction) GetDate() *Date             { return t.Date }
func (t *Transaction) Kind() DirectiveKind        { return KindTransaction }
func (t *Transaction) GetMetadata() []*Metadata   { return t.Metadata }
func (t *Transaction) AddMetadata(m ...*Metadata) { t.Metadata = append(t.Metadata, m...) }

// Clone returns a deep copy of the transaction and all of its postings.
func (t *Transaction) Clone() Directive {
	return t.CloneTransaction()
}

// CloneTransaction is Clone without the interface conversion.
func (t *Transaction) CloneTransaction() *Transaction {
	out := *t
	out.Date = t.Date.clone()
	if t.Tags != nil {
		out.Tags = append([]Tag(nil), t.Tags...)
	}
	if t.Links != nil {
		out.Links = append([]Link(nil), t.Links...)
	}
	out.Metadata = cloneMetadata(t.Metadata)
	if t.Postings != nil {
		out.Postings = make([]*Posting, len(t.Postings))
		for i, p := range t.Postings {
			out.Postings[i] = p.Clone()
		}
	}
	return &out
}

// Accounts returns the distinct posting accounts in first-use order.
func (t *Transaction) Accounts() []Account {
	seen := make(map[Account]bool, len(t.Postings))
	accounts := make([]Account, 0, len(t.Postings))
	for _, p := range t.Postings {
		if !seen[p.Account] {
			seen[p.Account] = true
			accounts = append(accounts, p.Account)
		}
	}
	return accounts
}

// Posting represents a single leg of a transaction, specifying an account and optional
// amount, cost, and price. One posting may omit its amount, which the ledger infers.
//
// Example postings within transactions:
//
//	Assets:Investments:Brokerage    10 HOOL {518.73 USD}  ; Purchase with cost
//	Assets:Investments:Cash        200 EUR @ 1.35 USD     ; Currency conversion with price
//	Expenses:Groceries              45.60 USD              ; Simple posting
//	Assets:Checking                                        ; Inferred amount
type Posting struct {
	Pos        Position
	Flag       string
	Account    Account
	Amount     *Amount
	Cost       *Cost
	PriceTotal bool
	Price      *Amount
	Inferred   bool
	Metadata   []*Metadata
}

func (p *Posting) GetMetadata() []*Metadata   { return p.Metadata }
func (p *Posting) AddMetadata(m ...*Metadata) { p.Metadata = append(p.Metadata, m...) }

// Clone returns a deep copy of the posting.
func (p *Posting) Clone() *Posting {
	out := *p
	out.Amount = p.Amount.clone()
	out.Cost = p.Cost.clone()
	out.Price = p.Price.clone()
	out.Metadata = cloneMetadata(p.Metadata)
	return &out
}
