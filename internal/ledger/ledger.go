package ledger

import (
	"errors"

	"github.com/dominousfamous/stock-sim-website/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrOverSell           = errors.New("not enough shares to sell")
)

// Store wraps all reads and writes of users, holdings and transactions.
// Every exported method runs in a single database transaction so the
// cash >= 0 and shares >= 0 invariants hold across concurrent requests.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// lockRow adds SELECT ... FOR UPDATE on engines that support it. SQLite
// (used in tests) serializes write transactions already.
func lockRow(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func (s *Store) CreateUser(username, hash string, initialCash decimal.Decimal) (uint, error) {
	user := models.User{Username: username, Hash: hash, Cash: initialCash}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateUsername
		}
		return tx.Create(&user).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return 0, ErrDuplicateUsername
	}
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

// Authenticate resolves a username/password pair to a user ID. Anything
// other than exactly one matching row with a verifying hash is treated as
// bad credentials.
func (s *Store) Authenticate(username, password string) (uint, error) {
	var users []models.User
	if err := s.db.Where("username = ?", username).Find(&users).Error; err != nil {
		return 0, err
	}
	if len(users) != 1 {
		return 0, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(users[0].Hash), []byte(password)); err != nil {
		return 0, ErrInvalidCredentials
	}
	return users[0].ID, nil
}

func (s *Store) GetCash(userID uint) (decimal.Decimal, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return decimal.Zero, err
	}
	return user.Cash, nil
}

func (s *Store) GetHash(userID uint) (string, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return "", err
	}
	return user.Hash, nil
}

// AdjustCash applies a signed delta to the user's cash and returns the new
// balance. A delta that would push the balance below zero is rejected and
// nothing is written.
func (s *Store) AdjustCash(userID uint, delta decimal.Decimal) (decimal.Decimal, error) {
	var newBalance decimal.Decimal
	err := s.db.Transaction(func(tx *gorm.DB) error {
		balance, err := adjustCash(tx, userID, delta)
		if err != nil {
			return err
		}
		newBalance = balance
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

func adjustCash(tx *gorm.DB, userID uint, delta decimal.Decimal) (decimal.Decimal, error) {
	var user models.User
	if err := lockRow(tx).First(&user, userID).Error; err != nil {
		return decimal.Zero, err
	}
	newBalance := user.Cash.Add(delta)
	if newBalance.IsNegative() {
		return decimal.Zero, ErrInsufficientFunds
	}
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Update("cash", newBalance).Error; err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

// GetHoldings returns the user's holdings ordered by symbol. Zero-share
// rows are pruned in the same transaction as the read so a concurrent buy
// cannot slip a row in between the delete and the select.
func (s *Store) GetHoldings(userID uint) ([]models.Holding, error) {
	var holdings []models.Holding
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("user_id = ? AND shares = 0", userID).Delete(&models.Holding{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Order("symbol").Find(&holdings).Error
	})
	if err != nil {
		return nil, err
	}
	return holdings, nil
}

// GetHolding returns the user's share count for one symbol, zero if the
// symbol is not held.
func (s *Store) GetHolding(userID uint, symbol string) (int64, error) {
	var holdings []models.Holding
	if err := s.db.Where("user_id = ? AND symbol = ?", userID, symbol).Limit(1).Find(&holdings).Error; err != nil {
		return 0, err
	}
	if len(holdings) == 0 {
		return 0, nil
	}
	return holdings[0].Shares, nil
}

// ApplyTrade upserts the holding and appends the transaction row as one
// transaction. A sell that would drive shares negative is rejected before
// any row is touched.
func (s *Store) ApplyTrade(userID uint, symbol, name string, shareDelta int64, unitPrice decimal.Decimal) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return applyTrade(tx, userID, symbol, name, shareDelta, unitPrice)
	})
}

func applyTrade(tx *gorm.DB, userID uint, symbol, name string, shareDelta int64, unitPrice decimal.Decimal) error {
	var holdings []models.Holding
	if err := lockRow(tx).Where("user_id = ? AND symbol = ?", userID, symbol).Limit(1).Find(&holdings).Error; err != nil {
		return err
	}

	if len(holdings) == 0 {
		if shareDelta < 0 {
			return ErrOverSell
		}
		holding := models.Holding{UserID: userID, Symbol: symbol, Name: name, Shares: shareDelta}
		if err := tx.Create(&holding).Error; err != nil {
			return err
		}
	} else {
		newShares := holdings[0].Shares + shareDelta
		if newShares < 0 {
			return ErrOverSell
		}
		if newShares == 0 {
			// Hard delete so a later buy can recreate the row without
			// tripping the (user, symbol) unique index.
			if err := tx.Unscoped().Delete(&holdings[0]).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Model(&holdings[0]).Update("shares", newShares).Error; err != nil {
				return err
			}
		}
	}

	entry := models.Transaction{UserID: userID, Symbol: symbol, Name: name, Shares: shareDelta, Price: unitPrice}
	return tx.Create(&entry).Error
}

// Trade settles a buy or sell as one atomic unit: the cash adjustment, the
// holding upsert and the ledger append either all commit or none do. A
// positive shareDelta debits cash, a negative one credits it. Returns the
// new cash balance.
func (s *Store) Trade(userID uint, symbol, name string, shareDelta int64, unitPrice decimal.Decimal) (decimal.Decimal, error) {
	var newBalance decimal.Decimal
	err := s.db.Transaction(func(tx *gorm.DB) error {
		cost := unitPrice.Mul(decimal.NewFromInt(shareDelta))
		balance, err := adjustCash(tx, userID, cost.Neg())
		if err != nil {
			return err
		}
		if err := applyTrade(tx, userID, symbol, name, shareDelta, unitPrice); err != nil {
			return err
		}
		newBalance = balance
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

// GetTransactionHistory returns the user's ledger entries in insertion order.
func (s *Store) GetTransactionHistory(userID uint) ([]models.Transaction, error) {
	var entries []models.Transaction
	if err := s.db.Where("user_id = ?", userID).Order("id").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) ChangePassword(userID uint, newHash string) error {
	return s.db.Model(&models.User{}).Where("id = ?", userID).Update("hash", newHash).Error
}

// Categories lists the distinct symbol catalog categories.
func (s *Store) Categories() ([]string, error) {
	var categories []string
	if err := s.db.Model(&models.Symbol{}).Distinct("category").Order("category").Pluck("category", &categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// SymbolsByCategory lists the catalog entries for one category.
func (s *Store) SymbolsByCategory(category string) ([]models.Symbol, error) {
	var symbols []models.Symbol
	if err := s.db.Where("category = ?", category).Order("symbol").Find(&symbols).Error; err != nil {
		return nil, err
	}
	return symbols, nil
}
