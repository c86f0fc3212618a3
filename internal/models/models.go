package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Username string          `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Hash     string          `gorm:"size:255;not null" json:"-"`
	Cash     decimal.Decimal `gorm:"not null" json:"cash"`
}

// Holding is a user's current position in one symbol. At most one row per
// (user, symbol); a zero-share row is logically absent and pruned on read.
type Holding struct {
	gorm.Model
	UserID uint   `gorm:"index:idx_holding_user_symbol,unique;not null" json:"-"`
	Symbol string `gorm:"index:idx_holding_user_symbol,unique;size:10;not null" json:"symbol"`
	Name   string `gorm:"size:100" json:"name"`
	Shares int64  `gorm:"not null" json:"shares"`
}

// Transaction is an append-only ledger entry. Shares is signed: positive for
// a buy, negative for a sell. Rows are never updated or deleted.
type Transaction struct {
	gorm.Model
	UserID uint            `gorm:"index;not null" json:"-"`
	Symbol string          `gorm:"size:10;not null" json:"symbol"`
	Name   string          `gorm:"size:100" json:"name"`
	Shares int64           `gorm:"not null" json:"shares"`
	Price  decimal.Decimal `gorm:"not null" json:"price"`
}

// Symbol is reference catalog data for browsing, grouped by category.
type Symbol struct {
	gorm.Model
	Category string `gorm:"index;size:50;not null" json:"category"`
	Symbol   string `gorm:"uniqueIndex;size:10;not null" json:"symbol"`
	Name     string `gorm:"size:100;not null" json:"name"`
}
