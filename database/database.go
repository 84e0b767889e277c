package database

import (
	"fmt"
	"reflect"

	"gorm.io/gorm"

	"portfolio-tracker/models"
)

var (
	ErrInvalidTransaction = fmt.Errorf("invalid transaction")
	ErrInvalidData        = fmt.Errorf("invalid data, expected slice")
)

// AutoMigrate creates or updates every table the service uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Holding{},
		&models.Transaction{},
		&models.StockPrice{},
	)
}

// CreateInBatches inserts a slice of models in chunks of batchSize. It is
// meant to run on an open transaction; the caller commits or rolls back.
func CreateInBatches(tx *gorm.DB, data interface{}, batchSize int) error {
	if batchSize <= 0 {
		return ErrInvalidTransaction
	}
	slice := reflect.ValueOf(data)
	if slice.Kind() != reflect.Slice {
		return ErrInvalidData
	}

	total := slice.Len()
	for i := 0; i < total; i += batchSize {
		end := i + batchSize
		if end > total {
			end = total
		}
		chunk := slice.Slice(i, end).Interface()
		if err := tx.Create(chunk).Error; err != nil {
			return fmt.Errorf("batch insert failed: %w", err)
		}
	}
	return nil
}
