package app

import (
	"net/http"

	"github.com/cradoe/walletguard/internal/handler"
	"github.com/cradoe/walletguard/internal/middleware"
)

func (app *Application) routes() http.Handler {
	mux := http.NewServeMux()

	middlewareRepo := middleware.New(app.errorHandler, app.Logger, app.Identities, app.Cache, &app.Config)

	healthHandler := handler.NewHealthCheckHandler(app.errorHandler)

	authHandler := handler.NewAuthHandler(&handler.AuthHandler{
		Identities: app.Identities,
		Registry:   app.Registry,
		Sessions:   app.Sessions,
		Otp:        app.Otp,
		Helper:     app.helper,
		Mailer:     app.Mailer,
		ErrHandler: app.errorHandler,
		Config:     &app.Config,
	})

	otpHandler := handler.NewOtpHandler(&handler.OtpHandler{
		Otp:        app.Otp,
		Helper:     app.helper,
		Mailer:     app.Mailer,
		ErrHandler: app.errorHandler,
	})

	cardHandler := handler.NewCardHandler(&handler.CardHandler{
		Registry:   app.Registry,
		ErrHandler: app.errorHandler,
	})

	transactionHandler := handler.NewTransactionHandler(&handler.TransactionHandler{
		Engine:     app.Engine,
		Ledger:     app.Ledger,
		ErrHandler: app.errorHandler,
	})

	gatewayHandler := handler.NewGatewayHandler(&handler.GatewayHandler{
		Gateway:    app.Gateway,
		Provider:   app.Provider,
		Engine:     app.Engine,
		ErrHandler: app.errorHandler,
		Config:     &app.Config,
	})

	snapshotHandler := handler.NewSnapshotHandler(&handler.SnapshotHandler{
		Identities: app.Identities,
		ErrHandler: app.errorHandler,
	})

	mux.HandleFunc("GET /status", healthHandler.HandleHealthCheck)

	mux.HandleFunc("POST /auth/register", authHandler.HandleAuthRegister)
	mux.HandleFunc("POST /auth/login", authHandler.HandleAuthLogin)

	protected := middlewareRepo.RequireAuthenticatedIdentity

	mux.Handle("POST /auth/logout", protected(http.HandlerFunc(authHandler.HandleAuthLogout)))
	mux.Handle("POST /auth/change-password", protected(http.HandlerFunc(authHandler.HandleChangePassword)))
	mux.Handle("POST /otp/request", protected(http.HandlerFunc(otpHandler.HandleRequestOtp)))

	mux.Handle("GET /cards", protected(http.HandlerFunc(cardHandler.HandleListCards)))
	mux.Handle("POST /cards", protected(http.HandlerFunc(cardHandler.HandleAddCard)))
	mux.Handle("DELETE /cards/{id}", protected(http.HandlerFunc(cardHandler.HandleRemoveCard)))
	mux.Handle("PATCH /cards/{id}/default", protected(http.HandlerFunc(cardHandler.HandleSetDefaultCard)))
	mux.Handle("PATCH /cards/{id}/daily-limit", protected(http.HandlerFunc(cardHandler.HandleSetDailyLimit)))
	mux.Handle("PATCH /cards/{id}/auth-policy", protected(http.HandlerFunc(cardHandler.HandleSetAuthPolicy)))

	mux.Handle("POST /transactions/pay", protected(http.HandlerFunc(transactionHandler.HandlePay)))
	mux.Handle("POST /transactions/top-up", protected(http.HandlerFunc(transactionHandler.HandleTopUp)))
	mux.Handle("GET /transactions", protected(http.HandlerFunc(transactionHandler.HandleTransactions)))
	mux.Handle("GET /balance", protected(http.HandlerFunc(transactionHandler.HandleBalance)))

	mux.Handle("POST /gateway/initiate", protected(http.HandlerFunc(gatewayHandler.HandleGatewayInitiate)))
	mux.Handle("POST /gateway/callback", protected(http.HandlerFunc(gatewayHandler.HandleGatewayCallback)))
	mux.Handle("GET /gateway/products", protected(http.HandlerFunc(gatewayHandler.HandleListProducts)))
	mux.Handle("POST /gateway/purchase", protected(http.HandlerFunc(gatewayHandler.HandlePurchase)))

	mux.Handle("GET /identity/export", protected(http.HandlerFunc(snapshotHandler.HandleExportIdentity)))
	mux.HandleFunc("POST /identity/import", snapshotHandler.HandleImportIdentity)

	return middlewareRepo.LogAccess(middlewareRepo.RecoverPanic(middlewareRepo.RateLimit(middlewareRepo.Authenticate(mux))))
}
