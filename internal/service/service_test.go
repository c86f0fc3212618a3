package service

import (
	"context"
	"testing"

	"github.com/dominousfamous/stock-sim-website/internal/ledger"
	"github.com/dominousfamous/stock-sim-website/internal/models"
	"github.com/dominousfamous/stock-sim-website/internal/quote"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type stubQuoter struct {
	quotes map[string]quote.Quote
	calls  int
}

func (s *stubQuoter) Lookup(ctx context.Context, symbol string) (quote.Quote, error) {
	s.calls++
	q, ok := s.quotes[symbol]
	if !ok {
		return quote.Quote{}, quote.ErrSymbolNotFound
	}
	return q, nil
}

func aapl(price string) quote.Quote {
	return quote.Quote{Symbol: "AAPL", Name: "Apple Inc.", Price: decimal.RequireFromString(price)}
}

func newTestService(t *testing.T, quotes map[string]quote.Quote) (*Service, *ledger.Store, *stubQuoter) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Holding{}, &models.Transaction{}, &models.Symbol{}))

	store := ledger.New(db)
	quoter := &stubQuoter{quotes: quotes}
	return New(store, quoter, decimal.RequireFromString("10000.00")), store, quoter
}

func registerAndLogin(t *testing.T, s *Service, username, password, startMoney string) uint {
	t.Helper()
	_, err := s.Register(username, password, password, startMoney)
	require.NoError(t, err)
	id, err := s.Login(username, password)
	require.NoError(t, err)
	return id
}

func TestRegister_Validation(t *testing.T) {
	s, _, _ := newTestService(t, nil)

	cases := []struct {
		name         string
		username     string
		password     string
		confirmation string
		startMoney   string
	}{
		{"empty username", "", "pw", "pw", "100"},
		{"empty password", "alice", "", "pw", "100"},
		{"empty confirmation", "alice", "pw", "", "100"},
		{"mismatched confirmation", "alice", "pw", "other", "100"},
		{"negative start money", "alice", "pw", "pw", "-1"},
		{"malformed start money", "alice", "pw", "pw", "$100"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Register(tc.username, tc.password, tc.confirmation, tc.startMoney)
			var validation ValidationError
			assert.ErrorAs(t, err, &validation)
		})
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	s, _, _ := newTestService(t, nil)

	_, err := s.Register("alice", "pw", "pw", "100")
	require.NoError(t, err)

	_, err = s.Register("alice", "pw2", "pw2", "200")
	assert.ErrorIs(t, err, ledger.ErrDuplicateUsername)
}

func TestRegister_DefaultCash(t *testing.T) {
	s, store, _ := newTestService(t, nil)

	id, err := s.Register("alice", "pw", "pw", "")
	require.NoError(t, err)

	cash, err := store.GetCash(id)
	require.NoError(t, err)
	assert.True(t, cash.Equal(decimal.RequireFromString("10000.00")))
}

func TestLogin_WrongPassword(t *testing.T) {
	s, _, _ := newTestService(t, nil)
	_, err := s.Register("alice", "pw", "pw", "100")
	require.NoError(t, err)

	_, err = s.Login("alice", "wrong")
	assert.ErrorIs(t, err, ledger.ErrInvalidCredentials)
}

func TestQuote_NormalizesSymbol(t *testing.T) {
	s, _, quoter := newTestService(t, map[string]quote.Quote{"AAPL": aapl("150.00")})

	q, err := s.Quote(context.Background(), "  aapl ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, 1, quoter.calls)

	_, err = s.Quote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, quote.ErrSymbolNotFound)

	_, err = s.Quote(context.Background(), "   ")
	var validation ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestDepositThenOverdrawnWithdraw(t *testing.T) {
	s, store, _ := newTestService(t, nil)
	id := registerAndLogin(t, s, "alice", "pw", "1000.00")

	balance, err := s.Deposit(id, "500.00")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("1500.00")))

	_, err = s.Withdraw(id, "1500.01")
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	cash, err := store.GetCash(id)
	require.NoError(t, err)
	assert.True(t, cash.Equal(decimal.RequireFromString("1500.00")))
}

func TestDeposit_RejectsMalformedAmount(t *testing.T) {
	s, _, _ := newTestService(t, nil)
	id := registerAndLogin(t, s, "alice", "pw", "0")

	var validation ValidationError
	_, err := s.Deposit(id, "$50")
	assert.ErrorAs(t, err, &validation)

	_, err = s.Withdraw(id, "-5")
	assert.ErrorAs(t, err, &validation)
}

func TestBuySellScenario(t *testing.T) {
	s, store, quoter := newTestService(t, map[string]quote.Quote{"AAPL": aapl("150.00")})
	id := registerAndLogin(t, s, "alice", "pw", "10000.00")

	balance, err := s.Buy(context.Background(), id, "aapl", 10)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("8500.00")), "got %s", balance)

	quoter.quotes["AAPL"] = aapl("160.00")

	balance, err = s.Sell(context.Background(), id, "AAPL", 4)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("9140.00")), "got %s", balance)

	holdings, err := store.GetHoldings(id)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.EqualValues(t, 6, holdings[0].Shares)

	history, err := s.History(id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.EqualValues(t, 10, history[0].Shares)
	assert.True(t, history[0].Price.Equal(decimal.RequireFromString("150.00")))
	assert.EqualValues(t, -4, history[1].Shares)
	assert.True(t, history[1].Price.Equal(decimal.RequireFromString("160.00")))
}

func TestBuy_InsufficientFunds(t *testing.T) {
	s, store, _ := newTestService(t, map[string]quote.Quote{"AAPL": aapl("150.00")})
	id := registerAndLogin(t, s, "alice", "pw", "0")

	_, err := s.Buy(context.Background(), id, "AAPL", 1)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	history, err := s.History(id)
	require.NoError(t, err)
	assert.Empty(t, history)

	holdings, err := store.GetHoldings(id)
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestBuy_Validation(t *testing.T) {
	s, _, _ := newTestService(t, map[string]quote.Quote{"AAPL": aapl("150.00")})
	id := registerAndLogin(t, s, "alice", "pw", "1000.00")

	var validation ValidationError
	_, err := s.Buy(context.Background(), id, "AAPL", 0)
	assert.ErrorAs(t, err, &validation)

	_, err = s.Buy(context.Background(), id, "AAPL", -3)
	assert.ErrorAs(t, err, &validation)

	_, err = s.Buy(context.Background(), id, "NOPE", 1)
	assert.ErrorIs(t, err, quote.ErrSymbolNotFound)
}

func TestSell_MoreThanHeld(t *testing.T) {
	s, store, _ := newTestService(t, map[string]quote.Quote{"AAPL": aapl("100.00")})
	id := registerAndLogin(t, s, "alice", "pw", "1000.00")

	_, err := s.Buy(context.Background(), id, "AAPL", 5)
	require.NoError(t, err)

	_, err = s.Sell(context.Background(), id, "AAPL", 6)
	assert.ErrorIs(t, err, ledger.ErrOverSell)

	_, err = s.Sell(context.Background(), id, "MSFT", 1)
	assert.ErrorIs(t, err, ledger.ErrOverSell)

	cash, err := store.GetCash(id)
	require.NoError(t, err)
	assert.True(t, cash.Equal(decimal.RequireFromString("500.00")))

	shares, err := store.GetHolding(id, "AAPL")
	require.NoError(t, err)
	assert.EqualValues(t, 5, shares)
}

func TestSell_AllSharesRemovesHolding(t *testing.T) {
	s, store, _ := newTestService(t, map[string]quote.Quote{"AAPL": aapl("100.00")})
	id := registerAndLogin(t, s, "alice", "pw", "1000.00")

	_, err := s.Buy(context.Background(), id, "AAPL", 5)
	require.NoError(t, err)
	_, err = s.Sell(context.Background(), id, "AAPL", 5)
	require.NoError(t, err)

	holdings, err := store.GetHoldings(id)
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestChangePassword(t *testing.T) {
	s, _, _ := newTestService(t, nil)
	id := registerAndLogin(t, s, "alice", "old-pass", "0")

	err := s.ChangePassword(id, "wrong", "new-pass", "new-pass")
	assert.ErrorIs(t, err, ledger.ErrInvalidCredentials)

	var validation ValidationError
	err = s.ChangePassword(id, "old-pass", "new-pass", "different")
	assert.ErrorAs(t, err, &validation)

	require.NoError(t, s.ChangePassword(id, "old-pass", "new-pass", "new-pass"))

	_, err = s.Login("alice", "old-pass")
	assert.ErrorIs(t, err, ledger.ErrInvalidCredentials)
	_, err = s.Login("alice", "new-pass")
	assert.NoError(t, err)
}

func TestAccountSummary(t *testing.T) {
	s, _, _ := newTestService(t, map[string]quote.Quote{
		"AAPL": aapl("150.00"),
		"MSFT": {Symbol: "MSFT", Name: "Microsoft Corporation", Price: decimal.RequireFromString("300.00")},
	})
	id := registerAndLogin(t, s, "alice", "pw", "10000.00")

	_, err := s.Buy(context.Background(), id, "AAPL", 10)
	require.NoError(t, err)
	_, err = s.Buy(context.Background(), id, "MSFT", 5)
	require.NoError(t, err)

	summary, err := s.Account(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, summary.Positions, 2)

	// cash = 10000 - 1500 - 1500 = 7000; total = 7000 + 1500 + 1500
	assert.True(t, summary.Cash.Equal(decimal.RequireFromString("7000.00")), "got %s", summary.Cash)
	assert.True(t, summary.Total.Equal(decimal.RequireFromString("10000.00")), "got %s", summary.Total)

	assert.Equal(t, "AAPL", summary.Positions[0].Symbol)
	assert.True(t, summary.Positions[0].Value.Equal(decimal.RequireFromString("1500.00")))
}
