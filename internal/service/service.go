package service

import (
	"context"
	"errors"
	"strings"

	"github.com/dominousfamous/stock-sim-website/internal/ledger"
	"github.com/dominousfamous/stock-sim-website/internal/models"
	"github.com/dominousfamous/stock-sim-website/internal/quote"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// ValidationError marks user-correctable input problems. The handler layer
// surfaces the message and discards the request.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// Ledger is the slice of the ledger store the account service needs.
type Ledger interface {
	CreateUser(username, hash string, initialCash decimal.Decimal) (uint, error)
	Authenticate(username, password string) (uint, error)
	GetCash(userID uint) (decimal.Decimal, error)
	GetHash(userID uint) (string, error)
	AdjustCash(userID uint, delta decimal.Decimal) (decimal.Decimal, error)
	GetHoldings(userID uint) ([]models.Holding, error)
	GetHolding(userID uint, symbol string) (int64, error)
	Trade(userID uint, symbol, name string, shareDelta int64, unitPrice decimal.Decimal) (decimal.Decimal, error)
	GetTransactionHistory(userID uint) ([]models.Transaction, error)
	ChangePassword(userID uint, newHash string) error
	Categories() ([]string, error)
	SymbolsByCategory(category string) ([]models.Symbol, error)
}

// Quoter resolves a ticker symbol to a live quote.
type Quoter interface {
	Lookup(ctx context.Context, symbol string) (quote.Quote, error)
}

type Service struct {
	ledger      Ledger
	quotes      Quoter
	defaultCash decimal.Decimal
}

func New(l Ledger, q Quoter, defaultCash decimal.Decimal) *Service {
	return &Service{ledger: l, quotes: q, defaultCash: defaultCash}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Register validates the form fields, hashes the password and creates the
// user. An empty startMoney falls back to the configured default.
func (s *Service) Register(username, password, confirmation, startMoney string) (uint, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	confirmation = strings.TrimSpace(confirmation)
	startMoney = strings.TrimSpace(startMoney)

	if username == "" {
		return 0, ValidationError{Field: "username", Message: "please enter a username"}
	}
	if password == "" {
		return 0, ValidationError{Field: "password", Message: "please enter a password"}
	}
	if confirmation == "" {
		return 0, ValidationError{Field: "confirmation", Message: "please confirm your password"}
	}
	if password != confirmation {
		return 0, ValidationError{Field: "confirmation", Message: "passwords don't match"}
	}

	initialCash := s.defaultCash
	if startMoney != "" {
		parsed, err := parseAmount(startMoney)
		if err != nil {
			return 0, ValidationError{Field: "startMoney", Message: "please enter a non-negative amount"}
		}
		initialCash = parsed
	}

	hash, err := hashPassword(password)
	if err != nil {
		return 0, err
	}
	return s.ledger.CreateUser(username, hash, initialCash)
}

// Login resolves credentials to a user ID. Session establishment belongs
// to the caller.
func (s *Service) Login(username, password string) (uint, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	if username == "" {
		return 0, ValidationError{Field: "username", Message: "please enter your username"}
	}
	if password == "" {
		return 0, ValidationError{Field: "password", Message: "please enter your password"}
	}
	return s.ledger.Authenticate(username, password)
}

// Quote normalizes the symbol and resolves it through the gateway.
func (s *Service) Quote(ctx context.Context, symbol string) (quote.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return quote.Quote{}, ValidationError{Field: "symbol", Message: "please enter a stock symbol"}
	}
	return s.quotes.Lookup(ctx, symbol)
}

var errNegativeAmount = errors.New("negative amount")

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.IsNegative() {
		return decimal.Zero, errNegativeAmount
	}
	return amount, nil
}

func (s *Service) Deposit(userID uint, amount string) (decimal.Decimal, error) {
	parsed, err := parseAmount(strings.TrimSpace(amount))
	if err != nil {
		return decimal.Zero, ValidationError{Field: "deposit", Message: "please enter a non-negative amount"}
	}
	return s.ledger.AdjustCash(userID, parsed)
}

// Withdraw pre-checks the balance for a friendlier error, but AdjustCash is
// the final authority on the non-negative invariant.
func (s *Service) Withdraw(userID uint, amount string) (decimal.Decimal, error) {
	parsed, err := parseAmount(strings.TrimSpace(amount))
	if err != nil {
		return decimal.Zero, ValidationError{Field: "withdraw", Message: "please enter a non-negative amount"}
	}
	cash, err := s.ledger.GetCash(userID)
	if err != nil {
		return decimal.Zero, err
	}
	if parsed.GreaterThan(cash) {
		return decimal.Zero, ledger.ErrInsufficientFunds
	}
	return s.ledger.AdjustCash(userID, parsed.Neg())
}

// Buy resolves the symbol, checks affordability and settles the purchase as
// one atomic ledger trade.
func (s *Service) Buy(ctx context.Context, userID uint, symbol string, shares int64) (decimal.Decimal, error) {
	if shares <= 0 {
		return decimal.Zero, ValidationError{Field: "shares", Message: "please enter a positive number of shares"}
	}
	q, err := s.Quote(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}

	price := q.Price.Round(2)
	cost := price.Mul(decimal.NewFromInt(shares))
	cash, err := s.ledger.GetCash(userID)
	if err != nil {
		return decimal.Zero, err
	}
	if cost.GreaterThan(cash) {
		return decimal.Zero, ledger.ErrInsufficientFunds
	}
	return s.ledger.Trade(userID, q.Symbol, q.Name, shares, price)
}

// Sell checks the holding, resolves the current price and settles the sale
// atomically with the cash credit.
func (s *Service) Sell(ctx context.Context, userID uint, symbol string, shares int64) (decimal.Decimal, error) {
	if shares <= 0 {
		return decimal.Zero, ValidationError{Field: "shares", Message: "please enter a positive number of shares"}
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return decimal.Zero, ValidationError{Field: "symbol", Message: "please select a stock"}
	}

	held, err := s.ledger.GetHolding(userID, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if held < shares {
		return decimal.Zero, ledger.ErrOverSell
	}

	q, err := s.quotes.Lookup(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return s.ledger.Trade(userID, q.Symbol, q.Name, -shares, q.Price.Round(2))
}

func (s *Service) ChangePassword(userID uint, current, newPassword, confirmation string) error {
	current = strings.TrimSpace(current)
	newPassword = strings.TrimSpace(newPassword)
	confirmation = strings.TrimSpace(confirmation)

	if current == "" {
		return ValidationError{Field: "currentPassword", Message: "please enter your current password"}
	}
	if newPassword == "" {
		return ValidationError{Field: "newPassword", Message: "please enter your new password"}
	}
	if confirmation == "" {
		return ValidationError{Field: "confirmation", Message: "please confirm your new password"}
	}
	if newPassword != confirmation {
		return ValidationError{Field: "confirmation", Message: "passwords do not match"}
	}

	hash, err := s.ledger.GetHash(userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(current)); err != nil {
		return ledger.ErrInvalidCredentials
	}

	newHash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.ledger.ChangePassword(userID, newHash)
}

// Position is one holding decorated with its live price.
type Position struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Shares int64           `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	Value  decimal.Decimal `json:"value"`
}

// AccountSummary is the portfolio view: holdings priced live, cash and the
// combined total.
type AccountSummary struct {
	Positions []Position      `json:"positions"`
	Cash      decimal.Decimal `json:"cash"`
	Total     decimal.Decimal `json:"total"`
}

// Account builds the portfolio summary. Symbols whose quote lookup fails
// are reported with a zero price rather than failing the whole page.
func (s *Service) Account(ctx context.Context, userID uint) (AccountSummary, error) {
	holdings, err := s.ledger.GetHoldings(userID)
	if err != nil {
		return AccountSummary{}, err
	}
	cash, err := s.ledger.GetCash(userID)
	if err != nil {
		return AccountSummary{}, err
	}

	summary := AccountSummary{Positions: make([]Position, 0, len(holdings)), Cash: cash, Total: cash}
	for _, h := range holdings {
		price := decimal.Zero
		if q, err := s.quotes.Lookup(ctx, h.Symbol); err == nil {
			price = q.Price.Round(2)
		}
		value := price.Mul(decimal.NewFromInt(h.Shares))
		summary.Positions = append(summary.Positions, Position{
			Symbol: h.Symbol,
			Name:   h.Name,
			Shares: h.Shares,
			Price:  price,
			Value:  value,
		})
		summary.Total = summary.Total.Add(value)
	}
	return summary, nil
}

func (s *Service) History(userID uint) ([]models.Transaction, error) {
	return s.ledger.GetTransactionHistory(userID)
}

func (s *Service) Categories() ([]string, error) {
	return s.ledger.Categories()
}

func (s *Service) SymbolsByCategory(category string) ([]models.Symbol, error) {
	return s.ledger.SymbolsByCategory(category)
}
