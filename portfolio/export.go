package portfolio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var exportHeader = []string{"Date", "Symbol", "Action", "Shares", "Price", "Total Value", "Profit/Loss"}

// ExportRow is one transaction as written to the CSV export.
type ExportRow struct {
	Date       time.Time
	Symbol     string
	Action     Action
	Shares     decimal.Decimal
	Price      decimal.Decimal
	TotalValue decimal.Decimal
	ProfitLoss decimal.NullDecimal

	seq int
}

// ExportRows flattens ledger newest first. Rows on the same date keep the
// later ledger entry first, so reversing the rows restores ledger order for
// ledgers whose entries are in date order. A symbol entered out of date order
// comes back sorted by date and may replay differently.
// Sold rows of a symbol with realized profit carry that profit spread evenly
// over all shares sold.
func ExportRows(ledger Ledger, realized map[string]decimal.Decimal) []ExportRow {
	rows := make([]ExportRow, 0, ledger.Len())
	seq := 0
	for _, symbol := range ledger.Symbols() {
		txs := ledger[symbol]
		var sold decimal.Decimal
		for _, tx := range txs {
			if tx.Action == Sell {
				sold = sold.Add(tx.Shares)
			}
		}
		profit, hasProfit := realized[symbol]
		hasProfit = hasProfit && !profit.IsZero() && sold.IsPositive()

		for _, tx := range txs {
			row := ExportRow{
				Date:       tx.Date,
				Symbol:     symbol,
				Action:     tx.Action,
				Shares:     tx.Shares,
				Price:      tx.Price,
				TotalValue: tx.Value(),
				seq:        seq,
			}
			if tx.Action == Sell && hasProfit {
				row.ProfitLoss = decimal.NewNullDecimal(profit.Div(sold).Mul(tx.Shares))
			}
			rows = append(rows, row)
			seq++
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.After(rows[j].Date)
		}
		return rows[i].seq > rows[j].seq
	})
	return rows
}

// WriteCSV writes rows with the export header. Money columns are rounded to
// cents; shares are written exactly.
func WriteCSV(w io.Writer, rows []ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		pl := ""
		if r.ProfitLoss.Valid {
			pl = r.ProfitLoss.Decimal.StringFixed(2)
		}
		rec := []string{
			r.Date.Format(DateLayout),
			r.Symbol,
			r.Action.String(),
			r.Shares.String(),
			r.Price.String(),
			r.TotalValue.StringFixed(2),
			pl,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportTransactions writes the ledger of p as CSV.
func (p *Portfolio) ExportTransactions(w io.Writer) error {
	st := p.state()
	return WriteCSV(w, ExportRows(st.ledger, st.realized))
}

// LedgerFromCSV rebuilds a ledger from a transaction export. Derived columns
// are ignored. Errors are *ImportError with Index set to the data row.
func LedgerFromCSV(r io.Reader) (Ledger, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(exportHeader)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, &ImportError{Index: -1, Err: err}
	}
	if len(records) == 0 {
		return nil, &ImportError{Index: -1, Err: errors.New("missing header")}
	}
	for i, col := range exportHeader {
		if strings.TrimSpace(records[0][i]) != col {
			return nil, &ImportError{Index: -1, Err: fmt.Errorf("column %d: want %q, got %q", i, col, records[0][i])}
		}
	}

	data := records[1:]
	ledger := make(Ledger)
	// Rows are newest first; walk backwards to restore replay order.
	for i := len(data) - 1; i >= 0; i-- {
		rec := data[i]
		symbol := NormalizeSymbol(rec[1])
		tx, err := parseExportRecord(rec)
		if err == nil && symbol == "" {
			err = errors.New("empty symbol")
		}
		if err == nil {
			err = tx.Validate()
		}
		if err != nil {
			return nil, &ImportError{Symbol: symbol, Index: i, Err: err}
		}
		ledger[symbol] = append(ledger[symbol], tx)
	}
	return ledger, nil
}

func parseExportRecord(rec []string) (Transaction, error) {
	var tx Transaction
	var err error
	if tx.Date, err = ParseDate(rec[0]); err != nil {
		return tx, fmt.Errorf("date: %w", err)
	}
	if tx.Action, err = ParseAction(rec[2]); err != nil {
		return tx, err
	}
	if tx.Shares, err = decimal.NewFromString(strings.TrimSpace(rec[3])); err != nil {
		return tx, fmt.Errorf("shares: %w", err)
	}
	if tx.Price, err = decimal.NewFromString(strings.TrimSpace(rec[4])); err != nil {
		return tx, fmt.Errorf("price: %w", err)
	}
	return tx, nil
}
