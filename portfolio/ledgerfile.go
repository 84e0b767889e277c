package portfolio

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DecodeLedger parses the JSON ledger format:
//
//	{"AAPL": [["Bought", "2023-01-05", 10, 125.5], ["Sold", "2023-06-01", "4", "180"]]}
//
// Shares and prices may be numbers or numeric strings. Symbols are trimmed
// and upper-cased. The first malformed entry aborts decoding.
func DecodeLedger(data []byte) (Ledger, error) {
	var raw map[string][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ImportError{Index: -1, Err: err}
	}
	if raw == nil {
		return nil, &ImportError{Index: -1, Err: errors.New("ledger must be a JSON object")}
	}

	ledger := make(Ledger, len(raw))
	for key, entries := range raw {
		symbol := NormalizeSymbol(key)
		if symbol == "" {
			return nil, &ImportError{Symbol: key, Index: -1, Err: errors.New("empty symbol")}
		}
		if _, dup := ledger[symbol]; dup {
			return nil, &ImportError{Symbol: symbol, Index: -1, Err: errors.New("symbol listed more than once")}
		}
		txs := make([]Transaction, 0, len(entries))
		for i, entry := range entries {
			tx, err := decodeEntry(entry)
			if err == nil {
				err = tx.Validate()
			}
			if err != nil {
				return nil, &ImportError{Symbol: symbol, Index: i, Err: err}
			}
			txs = append(txs, tx)
		}
		ledger[symbol] = txs
	}
	return ledger, nil
}

func decodeEntry(raw json.RawMessage) (Transaction, error) {
	var fields []json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Transaction{}, fmt.Errorf("entry must be an array: %w", err)
	}
	if len(fields) != 4 {
		return Transaction{}, fmt.Errorf("entry must have 4 fields, got %d", len(fields))
	}

	var tx Transaction
	var action, date string
	if err := json.Unmarshal(fields[0], &action); err != nil {
		return Transaction{}, fmt.Errorf("action: %w", err)
	}
	a, err := ParseAction(action)
	if err != nil {
		return Transaction{}, err
	}
	tx.Action = a
	if err := json.Unmarshal(fields[1], &date); err != nil {
		return Transaction{}, fmt.Errorf("date: %w", err)
	}
	if tx.Date, err = ParseDate(date); err != nil {
		return Transaction{}, fmt.Errorf("date: %w", err)
	}
	if tx.Shares, err = decodeAmount(fields[2]); err != nil {
		return Transaction{}, fmt.Errorf("shares: %w", err)
	}
	if tx.Price, err = decodeAmount(fields[3]); err != nil {
		return Transaction{}, fmt.Errorf("price: %w", err)
	}
	return tx, nil
}

func decodeAmount(raw json.RawMessage) (decimal.Decimal, error) {
	if string(raw) == "null" {
		return decimal.Zero, errors.New("missing value")
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// EncodeLedger writes a ledger in the format DecodeLedger reads. Amounts are
// written as strings so no precision is lost.
func EncodeLedger(l Ledger) ([]byte, error) {
	out := make(map[string][][4]string, len(l))
	for symbol, txs := range l {
		rows := make([][4]string, 0, len(txs))
		for _, tx := range txs {
			rows = append(rows, [4]string{
				tx.Action.String(),
				tx.Date.Format(DateLayout),
				tx.Shares.String(),
				tx.Price.String(),
			})
		}
		out[symbol] = rows
	}
	return json.MarshalIndent(out, "", "  ")
}
