package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dominousfamous/stock-sim-website/configs"
	"github.com/dominousfamous/stock-sim-website/internal/httputil"
	"github.com/dominousfamous/stock-sim-website/internal/ledger"
	"github.com/dominousfamous/stock-sim-website/internal/logger"
	"github.com/dominousfamous/stock-sim-website/internal/middleware"
	"github.com/dominousfamous/stock-sim-website/internal/quote"
	"github.com/dominousfamous/stock-sim-website/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	svc      *service.Service
	validate = validator.New()
)

// Init wires the account service into the package-level handlers.
func Init(s *service.Service) {
	svc = s
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "missing or invalid fields")
		return false
	}
	return true
}

// writeServiceError maps the error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var validation service.ValidationError
	switch {
	case errors.As(err, &validation):
		httputil.WriteError(w, http.StatusBadRequest, validation.Message)
	case errors.Is(err, ledger.ErrInvalidCredentials):
		httputil.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ledger.ErrDuplicateUsername):
		httputil.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds), errors.Is(err, ledger.ErrOverSell):
		httputil.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, quote.ErrSymbolNotFound):
		httputil.WriteError(w, http.StatusNotFound, err.Error())
	default:
		logger.Log.Error("operation failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func userIDFrom(w http.ResponseWriter, r *http.Request) (uint, bool) {
	userID, ok := r.Context().Value(middleware.UserIDContextKey).(uint)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return 0, false
	}
	return userID, true
}

type RegisterRequest struct {
	Username     string `json:"username" validate:"required"`
	Password     string `json:"password" validate:"required"`
	Confirmation string `json:"confirmation" validate:"required"`
	StartMoney   string `json:"startMoney"`
}

func RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	id, err := svc.Register(req.Username, req.Password, req.Confirmation, req.StartMoney)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"id": id, "message": "successfully registered"})
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// LoginHandler authenticates and mints a fresh token. Any identity carried
// by a prior token is superseded by the new one.
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	userID, err := svc.Login(req.Username, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(configs.AppConfig.JWT.SECRET))
	if err != nil {
		logger.Log.Error("failed to sign jwt", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, LoginResponse{Token: signed})
}

// LogoutHandler ends the session. Tokens are stateless, so this is a
// client-side discard; the endpoint exists so the surface matches the
// session lifecycle.
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// BrowseHandler serves the home surface: GET lists categories, POST either
// lists one category's symbols or quotes a symbol, depending on which
// field is present.
func BrowseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		categories, err := svc.Categories()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"categories": categories})
		return
	}

	var req struct {
		Category string `json:"category"`
		Symbol   string `json:"symbol"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch {
	case req.Category != "":
		symbols, err := svc.SymbolsByCategory(req.Category)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"category": req.Category, "symbols": symbols})
	case req.Symbol != "":
		q, err := svc.Quote(r.Context(), req.Symbol)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, q)
	default:
		httputil.WriteError(w, http.StatusBadRequest, "please enter a category or a symbol")
	}
}

func AccountHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r)
	if !ok {
		return
	}
	summary, err := svc.Account(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

type ChangeMoneyRequest struct {
	Deposit  string `json:"deposit"`
	Withdraw string `json:"withdraw"`
}

func ChangeMoneyHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r)
	if !ok {
		return
	}

	var req ChangeMoneyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		balance decimal.Decimal
		err     error
	)
	switch {
	case req.Deposit != "":
		balance, err = svc.Deposit(userID, req.Deposit)
	case req.Withdraw != "":
		balance, err = svc.Withdraw(userID, req.Withdraw)
	default:
		httputil.WriteError(w, http.StatusBadRequest, "please enter a value")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"cash": balance, "message": "successfully updated"})
}

func HistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r)
	if !ok {
		return
	}
	entries, err := svc.History(userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

type TradeRequest struct {
	Symbol string `json:"symbol" validate:"required"`
	Shares int64  `json:"shares" validate:"required,gt=0"`
}

func BuyHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r)
	if !ok {
		return
	}

	var req TradeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	balance, err := svc.Buy(r.Context(), userID, req.Symbol, req.Shares)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"cash": balance, "message": "bought"})
}

func SellHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r)
	if !ok {
		return
	}

	var req TradeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	balance, err := svc.Sell(r.Context(), userID, req.Symbol, req.Shares)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"cash": balance, "message": "sold"})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
	Confirmation    string `json:"confirmation" validate:"required"`
}

func ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := svc.ChangePassword(userID, req.CurrentPassword, req.NewPassword, req.Confirmation); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "password successfully changed"})
}
