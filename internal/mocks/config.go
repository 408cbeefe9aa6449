package mocks

import "github.com/cradoe/walletguard/internal/config"

func NewMockConfig() *config.Config {
	cfg := &config.Config{
		BaseURL:      "http://localhost",
		HttpPort:     8080,
		RedisServer:  "localhost:6379",
		KafkaServers: "localhost:9092",
	}

	cfg.Jwt.SecretKey = "test_secret"
	cfg.Secrets.CardCipherKey = "6368616e676520746869732070617373776f726420746f206120736563726574"
	cfg.Secrets.PaymentTokenKey = "test_payment_token_secret"
	cfg.Notifications.Email = "no-reply@example.com"
	cfg.Smtp.Host = "smtp.example.com"
	cfg.Smtp.Port = 587
	cfg.Smtp.Username = "user@example.com"
	cfg.Smtp.Password = "password"
	cfg.Smtp.From = "no-reply@example.com"

	return cfg
}
