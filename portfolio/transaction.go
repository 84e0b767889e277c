package portfolio

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used by ledgers and exports.
const DateLayout = "2006-01-02"

type Action int

const (
	Buy Action = iota + 1
	Sell
)

func (a Action) String() string {
	switch a {
	case Buy:
		return "Bought"
	case Sell:
		return "Sold"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// ParseAction accepts the ledger spellings "Bought" and "Sold" in any case.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bought":
		return Buy, nil
	case "sold":
		return Sell, nil
	default:
		return 0, fmt.Errorf("unknown action %q", s)
	}
}

// Transaction is one buy or sell event of a symbol's ledger.
type Transaction struct {
	Action Action          `json:"action"`
	Date   time.Time       `json:"date"`
	Shares decimal.Decimal `json:"shares"`
	Price  decimal.Decimal `json:"price"`
}

// Value is the notional of the transaction, shares times price.
func (t Transaction) Value() decimal.Decimal {
	return t.Shares.Mul(t.Price)
}

func (t Transaction) Validate() error {
	if t.Action != Buy && t.Action != Sell {
		return fmt.Errorf("unknown action %s", t.Action)
	}
	if t.Date.IsZero() {
		return errors.New("missing date")
	}
	if !t.Shares.IsPositive() {
		return fmt.Errorf("shares must be positive, got %s", t.Shares)
	}
	if !t.Price.IsPositive() {
		return fmt.Errorf("price must be positive, got %s", t.Price)
	}
	return nil
}

// ParseDate parses a ledger calendar date into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Ledger maps a symbol to its transactions in the order they must be
// replayed. The order is taken as given and never re-sorted by date.
type Ledger map[string][]Transaction

// Symbols returns the ledger symbols in lexical order.
func (l Ledger) Symbols() []string {
	out := make([]string, 0, len(l))
	for symbol := range l {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// Len is the total number of transactions across all symbols.
func (l Ledger) Len() int {
	n := 0
	for _, txs := range l {
		n += len(txs)
	}
	return n
}

func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for symbol, txs := range l {
		out[symbol] = append([]Transaction(nil), txs...)
	}
	return out
}

// Validate checks every symbol and transaction, returning an *ImportError for
// the first problem found.
func (l Ledger) Validate() error {
	for _, symbol := range l.Symbols() {
		if symbol == "" || symbol != NormalizeSymbol(symbol) {
			return &ImportError{Symbol: symbol, Index: -1, Err: errors.New("symbol must be a trimmed upper-case ticker")}
		}
		for i, tx := range l[symbol] {
			if err := tx.Validate(); err != nil {
				return &ImportError{Symbol: symbol, Index: i, Err: err}
			}
		}
	}
	return nil
}
