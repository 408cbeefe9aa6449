package app

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/cradoe/walletguard/internal/cache"
	"github.com/cradoe/walletguard/internal/cards"
	"github.com/cradoe/walletguard/internal/config"
	"github.com/cradoe/walletguard/internal/crypto"
	"github.com/cradoe/walletguard/internal/device"
	"github.com/cradoe/walletguard/internal/engine"
	"github.com/cradoe/walletguard/internal/env"
	"github.com/cradoe/walletguard/internal/errHandler"
	"github.com/cradoe/walletguard/internal/gateway"
	"github.com/cradoe/walletguard/internal/helper"
	"github.com/cradoe/walletguard/internal/otp"
	"github.com/cradoe/walletguard/internal/repository"
	"github.com/cradoe/walletguard/internal/risk"
	"github.com/cradoe/walletguard/internal/session"
	"github.com/cradoe/walletguard/internal/smtp"
	"github.com/cradoe/walletguard/internal/stream"
	"github.com/cradoe/walletguard/internal/token"
	"github.com/joho/godotenv"
)

// Essential services and resources are exposed to the application
// this makes it possible for methods to have access to these items when they need them
type Application struct {
	Config       config.Config
	Logger       *slog.Logger
	Mailer       *smtp.Mailer
	WG           sync.WaitGroup
	errorHandler *errHandler.ErrorHandler
	helper       *helper.HelperRepository
	Kafka        *stream.KafkaStream
	Cache        *cache.Cache

	Identities repository.IdentityRepository
	Ledger     repository.LedgerRepository
	Sessions   *session.Manager
	Otp        *otp.Service
	Risk       *risk.Engine
	Registry   *cards.Registry
	Engine     *engine.Engine
	Device     *device.Simulator
	Gateway    gateway.Gateway
	Provider   gateway.PurchaseProvider
}

// Helper exposes the background-task helper to the worker processes.
func (app *Application) Helper() *helper.HelperRepository {
	return app.helper
}

func NewApplication(logger *slog.Logger) (*Application, error) {
	if err := godotenv.Load(); err != nil {
		logger.Error("Error loading .env file", "error", err)
	}

	var cfg config.Config

	// config values are loaded from the .env file
	// Default values are provided for these items and these should strictly be values for development mode only
	// make sure no production-level value is exposed as default value here
	cfg.BaseURL = env.GetString("BASE_URL", "http://localhost:4444")
	cfg.HttpPort = env.GetInt("HTTP_PORT", 4444)

	cfg.Jwt.SecretKey = env.GetString("JWT_SECRET_KEY", "ajf5nx3qmp6zquevllxocxqvyz42ypuo")

	cfg.Secrets.CardCipherKey = env.GetString("CARD_CIPHER_KEY", "6368616e676520746869732070617373776f726420746f206120736563726574")
	cfg.Secrets.PaymentTokenKey = env.GetString("PAYMENT_TOKEN_KEY", "k9f2mx7qwp3zrtevluxocnqvyz81ypds")

	// server errors won't be sent via email if the NOTIFICATIONS_EMAIL wasn't set in the .env file
	cfg.Notifications.Email = env.GetString("NOTIFICATIONS_EMAIL", "")

	cfg.Smtp.Host = env.GetString("SMTP_HOST", "example.smtp.host")
	cfg.Smtp.Port = env.GetInt("SMTP_PORT", 25)
	cfg.Smtp.Username = env.GetString("SMTP_USERNAME", "example_username")
	cfg.Smtp.Password = env.GetString("SMTP_PASSWORD", "pa55word")
	cfg.Smtp.From = env.GetString("SMTP_FROM", "WalletGuard <no_reply@example.org>")

	cfg.RedisServer = env.GetString("REDIS_SERVER", "localhost:6379")
	cfg.KafkaServers = env.GetString("KAFKA_SERVERS", "localhost:9092")

	mailer, err := smtp.NewMailer(cfg.Smtp.Host, cfg.Smtp.Port, cfg.Smtp.Username, cfg.Smtp.Password, cfg.Smtp.From)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	cardCipher, err := crypto.NewAEADCipher(cfg.Secrets.CardCipherKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize card cipher: %w", err)
	}

	app := &Application{
		Config: cfg,
		Logger: logger,
		Mailer: mailer,
	}

	app.helper = helper.New(&cfg.BaseURL, &app.WG, nil)
	app.errorHandler = errHandler.New(cfg.Notifications.Email, mailer, logger, app.helper)
	app.helper.SetReporter(app.errorHandler)

	app.Kafka = stream.New(cfg.KafkaServers)
	app.Cache = cache.New(cfg.RedisServer, 0)

	app.Identities = repository.NewIdentityRepository()
	app.Ledger = repository.NewLedgerRepository()
	app.Sessions = session.NewManager()
	app.Otp = otp.NewService()
	app.Risk = risk.NewEngine()

	minter := token.NewMinter(cfg.Secrets.PaymentTokenKey)
	app.Device = device.NewSimulator(minter)

	app.Engine = engine.New(&engine.Engine{
		Identities: app.Identities,
		Ledger:     app.Ledger,
		Sessions:   app.Sessions,
		Risk:       app.Risk,
		Minter:     minter,
		Device:     app.Device,
		Events:     app.Kafka,
		Logger:     logger,
	})

	app.Registry = cards.NewRegistry(&cards.Registry{
		Identities: app.Identities,
		Cipher:     cardCipher,
		Sessions:   app.Sessions,
		Otp:        app.Otp,
	})

	app.Gateway = gateway.NewSimulated(cfg.BaseURL)
	app.Provider = gateway.NewSimulatedProvider([]gateway.Product{
		{ID: "topup-10", Name: "Wallet credit 10", Value: 10},
		{ID: "topup-50", Name: "Wallet credit 50", Value: 50},
		{ID: "topup-100", Name: "Wallet credit 100", Value: 100},
	})

	return app, nil
}
