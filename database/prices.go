package database

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"portfolio-tracker/market"
	"portfolio-tracker/models"
)

// PriceStore archives daily closes fetched from the market data provider.
type PriceStore struct {
	db *gorm.DB
}

func NewPriceStore(db *gorm.DB) *PriceStore {
	return &PriceStore{db: db}
}

var _ market.Archive = (*PriceStore)(nil)

// SaveBars upserts one row per symbol and session.
func (s *PriceStore) SaveBars(ctx context.Context, symbol string, bars []market.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	rows := make([]models.StockPrice, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, models.StockPrice{
			Symbol:    symbol,
			Price:     b.Close,
			Volume:    b.Volume,
			Timestamp: b.Date,
		})
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "timestamp"}},
			DoUpdates: clause.AssignmentColumns([]string{"price", "volume", "updated_at"}),
		}).
		CreateInBatches(&rows, batchSize).Error
}
