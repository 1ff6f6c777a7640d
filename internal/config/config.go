package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config reúne toda a configuração do processo, lida de variáveis de ambiente.
type Config struct {
	Porta string

	DB            DBConfig
	Clima         ClimaConfig
	ML            MLConfig
	Armazenamento ArmazenamentoConfig
	Ledger        LedgerConfig
	Assinatura    AssinaturaConfig
	Email         EmailConfig
}

type DBConfig struct {
	Host    string
	Porta   uint
	Nome    string
	Usuario string
	Senha   string
	SSLOff  bool
}

type ClimaConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type MLConfig struct {
	BaseURL         string
	Timeout         time.Duration
	LimiarConfianca float64
}

type ArmazenamentoConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Timeout   time.Duration
}

type LedgerConfig struct {
	URL             string
	ChainID         int64
	EnderecoContrato string
	ChavePrivada    string
	TimeoutChamada  time.Duration
	TimeoutMineracao time.Duration
}

type AssinaturaConfig struct {
	SegredoToken    string
	ValidadeToken   time.Duration
}

type EmailConfig struct {
	Host       string
	Porta      string
	Usuario    string
	Senha      string
	Remetente  string
	WebhookURL string
}

// Carregar lê .env (se existir) e monta a configuração com defaults.
func Carregar() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Porta: env("PORT", "8080"),
		DB: DBConfig{
			Host:    env("DB_HOST", "localhost"),
			Porta:   envUint("DB_PORT", 5432),
			Nome:    env("DB_NAME", "contratos"),
			Usuario: env("DB_USER", "postgres"),
			Senha:   env("DB_PASSWORD", "postgres"),
			SSLOff:  env("DB_SSL_MODE_DISABLE", "true") == "true",
		},
		Clima: ClimaConfig{
			APIKey:  os.Getenv("OPENWEATHER_API_KEY"),
			BaseURL: env("OPENWEATHER_BASE_URL", "https://api.openweathermap.org"),
			Timeout: envDur("WEATHER_TIMEOUT", 10*time.Second),
		},
		ML: MLConfig{
			BaseURL:         env("ML_SERVICE_URL", "http://localhost:5001"),
			Timeout:         envDur("ML_TIMEOUT", 10*time.Second),
			LimiarConfianca: envFloat("MINIMUM_CONFIDENCE_THRESHOLD", 0.7),
		},
		Armazenamento: ArmazenamentoConfig{
			Endpoint:  env("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
			SecretKey: os.Getenv("STORAGE_SECRET_KEY"),
			Bucket:    env("STORAGE_BUCKET", "contratos"),
			UseSSL:    env("STORAGE_USE_SSL", "false") == "true",
			Timeout:   envDur("STORAGE_TIMEOUT", 15*time.Second),
		},
		Ledger: LedgerConfig{
			URL:              env("LEDGER_URL", "http://localhost:8545"),
			ChainID:          envInt64("CHAIN_ID", 1337),
			EnderecoContrato: os.Getenv("LEDGER_CONTRACT_ADDRESS"),
			ChavePrivada:     os.Getenv("LEDGER_PRIVATE_KEY"),
			TimeoutChamada:   envDur("LEDGER_CALL_TIMEOUT", 10*time.Second),
			TimeoutMineracao: envDur("LEDGER_MINE_TIMEOUT", 120*time.Second),
		},
		Assinatura: AssinaturaConfig{
			SegredoToken:  os.Getenv("TOKEN_SECRET"),
			ValidadeToken: time.Duration(envUint("TOKEN_EXPIRY_MINUTES", 30)) * time.Minute,
		},
		Email: EmailConfig{
			Host:       env("SMTP_HOST", "localhost"),
			Porta:      env("SMTP_PORT", "587"),
			Usuario:    os.Getenv("SMTP_USER"),
			Senha:      os.Getenv("SMTP_PASSWORD"),
			Remetente:  env("SMTP_FROM", "contratos@tintaforte.com.br"),
			WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
		},
	}

	if cfg.Assinatura.SegredoToken == "" {
		return nil, fmt.Errorf("TOKEN_SECRET não definida")
	}
	return cfg, nil
}

// DSN monta a string de conexão do Postgres no formato usado pelo gorm.
func (d DBConfig) DSN() string {
	ssl := ""
	if d.SSLOff {
		ssl = " sslmode=disable"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d%s",
		d.Host, d.Usuario, d.Senha, d.Nome, d.Porta, ssl)
}

func env(chave, padrao string) string {
	if v := os.Getenv(chave); v != "" {
		return v
	}
	return padrao
}

func envUint(chave string, padrao uint) uint {
	v, err := strconv.ParseUint(os.Getenv(chave), 10, 32)
	if err != nil {
		return padrao
	}
	return uint(v)
}

func envInt64(chave string, padrao int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(chave), 10, 64)
	if err != nil {
		return padrao
	}
	return v
}

func envFloat(chave string, padrao float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(chave), 64)
	if err != nil {
		return padrao
	}
	return v
}

func envDur(chave string, padrao time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(chave))
	if err != nil {
		return padrao
	}
	return v
}
