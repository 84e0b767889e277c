package portfolio

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidInput rejects a manual mutation before any state changes.
	ErrInvalidInput = errors.New("invalid input")
	// ErrImportFormat marks a ledger that could not be decoded or validated.
	ErrImportFormat = errors.New("malformed ledger")
	// ErrNotHeld is returned when removing a symbol the portfolio does not hold.
	ErrNotHeld = errors.New("symbol not held")
)

// ImportError locates the ledger entry that aborted an import. Index is the
// position of the entry within the symbol's list, or -1 when the problem is
// not tied to a single entry.
type ImportError struct {
	Symbol string
	Index  int
	Err    error
}

func (e *ImportError) Error() string {
	switch {
	case e.Symbol == "":
		return fmt.Sprintf("import ledger: %v", e.Err)
	case e.Index < 0:
		return fmt.Sprintf("import ledger: %s: %v", e.Symbol, e.Err)
	default:
		return fmt.Sprintf("import ledger: %s entry %d: %v", e.Symbol, e.Index, e.Err)
	}
}

func (e *ImportError) Unwrap() []error {
	return []error{ErrImportFormat, e.Err}
}

// OverSellError records a sell that exceeded the shares owned at that point of
// the replay. The sell is skipped; it is reported as a warning, not a failure.
type OverSellError struct {
	Symbol    string          `json:"symbol"`
	Index     int             `json:"index"`
	Date      time.Time       `json:"date"`
	Requested decimal.Decimal `json:"requested"`
	Owned     decimal.Decimal `json:"owned"`
}

func (e *OverSellError) Error() string {
	return fmt.Sprintf("%s: sell of %s shares on %s exceeds %s owned",
		e.Symbol, e.Requested, e.Date.Format(DateLayout), e.Owned)
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
