package routes

import (
	"net/http"

	"github.com/dominousfamous/stock-sim-website/internal/handlers"
	appmw "github.com/dominousfamous/stock-sim-website/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

func NewRoutes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Post("/register", handlers.RegisterHandler)
	r.Post("/login", handlers.LoginHandler)

	r.With(appmw.Authenticated).Get("/logout", handlers.LogoutHandler)

	r.With(appmw.Authenticated).Get("/", handlers.BrowseHandler)
	r.With(appmw.Authenticated).Post("/", handlers.BrowseHandler)

	r.With(appmw.Authenticated).Get("/account", handlers.AccountHandler)

	r.With(appmw.Authenticated).Post("/changeMoney", handlers.ChangeMoneyHandler)

	r.With(appmw.Authenticated).Get("/history", handlers.HistoryHandler)

	r.With(appmw.Authenticated).Post("/buy", handlers.BuyHandler)

	r.With(appmw.Authenticated).Post("/sell", handlers.SellHandler)

	r.With(appmw.Authenticated).Post("/changePassword", handlers.ChangePasswordHandler)

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return r
}
