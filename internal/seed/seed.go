package seed

import (
	"github.com/dominousfamous/stock-sim-website/internal/logger"
	"github.com/dominousfamous/stock-sim-website/internal/models"
	"github.com/dominousfamous/stock-sim-website/internal/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var catalog = []models.Symbol{
	{Category: "Technology", Symbol: "AAPL", Name: "Apple Inc."},
	{Category: "Technology", Symbol: "MSFT", Name: "Microsoft Corporation"},
	{Category: "Technology", Symbol: "GOOGL", Name: "Alphabet Inc."},
	{Category: "Technology", Symbol: "NVDA", Name: "NVIDIA Corporation"},
	{Category: "Consumer", Symbol: "AMZN", Name: "Amazon.com, Inc."},
	{Category: "Consumer", Symbol: "KO", Name: "The Coca-Cola Company"},
	{Category: "Consumer", Symbol: "MCD", Name: "McDonald's Corporation"},
	{Category: "Finance", Symbol: "JPM", Name: "JPMorgan Chase & Co."},
	{Category: "Finance", Symbol: "BAC", Name: "Bank of America Corporation"},
	{Category: "Finance", Symbol: "V", Name: "Visa Inc."},
	{Category: "Healthcare", Symbol: "JNJ", Name: "Johnson & Johnson"},
	{Category: "Healthcare", Symbol: "PFE", Name: "Pfizer Inc."},
	{Category: "Energy", Symbol: "XOM", Name: "Exxon Mobil Corporation"},
	{Category: "Energy", Symbol: "CVX", Name: "Chevron Corporation"},
}

// Run loads the browseable symbol catalog. Skips when already present.
func Run() {
	db := store.DB
	var count int64
	if err := db.Model(&models.Symbol{}).Count(&count).Error; err != nil {
		logger.Log.Fatal("seed check failed", zap.Error(err))
	}
	if count > 0 {
		logger.Log.Info("symbol catalog already seeded, skipping")
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, s := range catalog {
			entry := s
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Log.Fatal("seed failed", zap.Error(err))
	}
	logger.Log.Info("seeded symbol catalog", zap.Int("symbols", len(catalog)))
}
