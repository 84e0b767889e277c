package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Holding is a saved position of a user, including manual adjustments made
// after the last ledger import. Amount columns are unconstrained numeric so
// averages from division are stored without rounding.
type Holding struct {
	gorm.Model
	UserID      uint                `gorm:"index"`
	Symbol      string              `gorm:"size:16;index"`
	Shares      decimal.Decimal     `gorm:"type:numeric"`
	AverageCost decimal.NullDecimal `gorm:"type:numeric"`
}

// Transaction is one imported ledger entry. Seq is the position of the entry
// within its symbol's ledger and defines replay order.
type Transaction struct {
	gorm.Model
	UserID   uint            `gorm:"index"`
	Symbol   string          `gorm:"size:16;index"`
	Seq      int             `gorm:"not null"`
	Type     string          `gorm:"size:8"` // Bought/Sold
	Quantity decimal.Decimal `gorm:"type:numeric"`
	Price    decimal.Decimal `gorm:"type:numeric"`
	Date     time.Time       `gorm:"type:date"`
}
