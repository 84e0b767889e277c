package portfolio

import "github.com/shopspring/decimal"

// Position is the state left after replaying one symbol's ledger.
type Position struct {
	Symbol         string
	Shares         decimal.Decimal
	AverageCost    decimal.Decimal
	RealizedProfit decimal.Decimal
	Warnings       []*OverSellError
}

func (p Position) RemainingCostBasis() decimal.Decimal {
	return p.Shares.Mul(p.AverageCost)
}

// Replay folds txs in the given order using weighted-average cost. A buy
// re-weights the running average; a sell books realized profit against the
// average current at the time of the sale and leaves the average unchanged.
// Sells larger than the shares owned are skipped and reported in Warnings.
func Replay(symbol string, txs []Transaction) Position {
	pos := Position{Symbol: symbol}
	for i, tx := range txs {
		switch tx.Action {
		case Buy:
			if pos.Shares.IsPositive() {
				total := pos.Shares.Add(tx.Shares)
				pos.AverageCost = pos.Shares.Mul(pos.AverageCost).Add(tx.Value()).Div(total)
			} else {
				pos.AverageCost = tx.Price
			}
			pos.Shares = pos.Shares.Add(tx.Shares)
		case Sell:
			if pos.Shares.LessThan(tx.Shares) {
				pos.Warnings = append(pos.Warnings, &OverSellError{
					Symbol:    symbol,
					Index:     i,
					Date:      tx.Date,
					Requested: tx.Shares,
					Owned:     pos.Shares,
				})
				continue
			}
			pos.RealizedProfit = pos.RealizedProfit.Add(tx.Value().Sub(pos.AverageCost.Mul(tx.Shares)))
			pos.Shares = pos.Shares.Sub(tx.Shares)
		}
	}
	return pos
}
