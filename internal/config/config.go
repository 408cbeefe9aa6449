package config

type Config struct {
	BaseURL  string
	HttpPort int
	Jwt      struct {
		SecretKey string
	}
	Secrets struct {
		// CardCipherKey is the 32-byte key for the AEAD cipher that protects
		// card numbers and CVVs at rest. Hex encoded in the environment.
		CardCipherKey string
		// PaymentTokenKey signs the short-lived payment tokens handed to the device.
		PaymentTokenKey string
	}
	Notifications struct {
		Email string
	}
	Smtp struct {
		Host     string
		Port     int
		Username string
		Password string
		From     string
	}
	RedisServer  string
	KafkaServers string
}
