package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"portfolio-tracker/models"
	"portfolio-tracker/portfolio"
)

const batchSize = 100

// LedgerStore persists each user's imported ledger and current holdings.
type LedgerStore struct {
	db *gorm.DB
}

func NewLedgerStore(db *gorm.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) LoadLedger(ctx context.Context, userID uint) (portfolio.Ledger, error) {
	var rows []models.Transaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("symbol, seq").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return LedgerFromRows(rows)
}

func (s *LedgerStore) LoadHoldings(ctx context.Context, userID uint) ([]portfolio.Holding, error) {
	var rows []models.Holding
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("symbol").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load holdings: %w", err)
	}
	out := make([]portfolio.Holding, 0, len(rows))
	for _, r := range rows {
		out = append(out, portfolio.Holding{Symbol: r.Symbol, Shares: r.Shares, AverageCost: r.AverageCost})
	}
	return out, nil
}

// SaveLedger replaces the user's ledger and holdings in one transaction.
func (s *LedgerStore) SaveLedger(ctx context.Context, userID uint, ledger portfolio.Ledger, holdings []portfolio.Holding) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("user_id = ?", userID).Delete(&models.Transaction{}).Error; err != nil {
			return fmt.Errorf("clear ledger: %w", err)
		}
		if rows := LedgerRows(userID, ledger); len(rows) > 0 {
			if err := CreateInBatches(tx, rows, batchSize); err != nil {
				return err
			}
		}
		return replaceHoldings(tx, userID, holdings)
	})
}

// SaveHoldings replaces the user's holdings.
func (s *LedgerStore) SaveHoldings(ctx context.Context, userID uint, holdings []portfolio.Holding) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceHoldings(tx, userID, holdings)
	})
}

func replaceHoldings(tx *gorm.DB, userID uint, holdings []portfolio.Holding) error {
	if err := tx.Unscoped().Where("user_id = ?", userID).Delete(&models.Holding{}).Error; err != nil {
		return fmt.Errorf("clear holdings: %w", err)
	}
	if len(holdings) == 0 {
		return nil
	}
	rows := make([]models.Holding, 0, len(holdings))
	for _, h := range holdings {
		rows = append(rows, models.Holding{UserID: userID, Symbol: h.Symbol, Shares: h.Shares, AverageCost: h.AverageCost})
	}
	return CreateInBatches(tx, rows, batchSize)
}

// LedgerRows flattens a ledger into table rows, numbering entries per symbol.
func LedgerRows(userID uint, ledger portfolio.Ledger) []models.Transaction {
	rows := make([]models.Transaction, 0, ledger.Len())
	for _, symbol := range ledger.Symbols() {
		for i, tx := range ledger[symbol] {
			rows = append(rows, models.Transaction{
				UserID:   userID,
				Symbol:   symbol,
				Seq:      i,
				Type:     tx.Action.String(),
				Quantity: tx.Shares,
				Price:    tx.Price,
				Date:     tx.Date,
			})
		}
	}
	return rows
}

// LedgerFromRows rebuilds a ledger from rows ordered by symbol and seq.
func LedgerFromRows(rows []models.Transaction) (portfolio.Ledger, error) {
	ledger := make(portfolio.Ledger)
	for _, r := range rows {
		action, err := portfolio.ParseAction(r.Type)
		if err != nil {
			return nil, fmt.Errorf("ledger row %d: %w", r.ID, err)
		}
		ledger[r.Symbol] = append(ledger[r.Symbol], portfolio.Transaction{
			Action: action,
			Date:   r.Date.UTC(),
			Shares: r.Quantity,
			Price:  r.Price,
		})
	}
	return ledger, nil
}
