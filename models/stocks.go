package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockPrice is an archived daily close, unique per symbol and session.
type StockPrice struct {
	gorm.Model
	Symbol    string          `gorm:"size:16;uniqueIndex:idx_stock_prices_symbol_ts"`
	Price     decimal.Decimal `gorm:"type:numeric(20,6)"`
	Volume    int64
	Timestamp time.Time `gorm:"uniqueIndex:idx_stock_prices_symbol_ts"`
}
