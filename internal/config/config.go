package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Bot      BotConfig
	API      APIConfig
	Payment  PaymentConfig
	Worker   WorkerConfig
	LLM      LLMConfig
	Astro    AstroConfig
	Geocoder GeocoderConfig
}

type ServerConfig struct {
	Port int
	Env  string // "development", "production"
}

type DatabaseConfig struct {
	Host    string
	Port    string
	Name    string
	User    string
	Pass    string
	SSLMode string
}

type RedisConfig struct {
	Addr string
	Pass string
	DB   int
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
}

type BotConfig struct {
	Token      string
	WebhookURL string
	UpdateMode string // "auto", "webhook", "polling"
	AdminID    string
	Username   string
}

type APIConfig struct {
	Key string
}

type PaymentConfig struct {
	ShopID            string
	SecretKey         string
	WebhookSecret     string // empty means webhook auth is the gateway's IP allow-list
	ReturnURL         string
	Currency          string
	SinglePlanetPrice int // kopecks
	AllPlanetsPrice   int // kopecks
	SubscriptionPrice int // kopecks
}

type LLMConfig struct {
	APIKey      string
	Model       string
	Referer     string
	Title       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

type WorkerConfig struct {
	MaxRetries int64
	StuckAfter time.Duration
}

type AstroConfig struct {
	UserID string
	APIKey string
}

type GeocoderConfig struct {
	BaseURL   string
	UserAgent string
}

// Load reads configuration from .env file and environment variables.
func Load() (*Config, error) {
	// Load .env file (ignore error if missing)
	_ = godotenv.Load()

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("KAFKA_BROKERS", "localhost:9092")
	viper.SetDefault("KAFKA_GROUP_ID", "astrobot-workers")
	viper.SetDefault("BOT_UPDATE_MODE", "auto")
	viper.SetDefault("PAYMENT_WEBHOOK_SECRET", "")
	viper.SetDefault("PAYMENT_CURRENCY", "RUB")
	viper.SetDefault("PAYMENT_SINGLE_PLANET_PRICE", 50000)
	viper.SetDefault("PAYMENT_ALL_PLANETS_PRICE", 22200)
	viper.SetDefault("PAYMENT_SUBSCRIPTION_PRICE", 29900)
	viper.SetDefault("WORKER_MAX_RETRIES", 3)
	viper.SetDefault("WORKER_STUCK_AFTER", "30m")
	viper.SetDefault("LLM_MODEL", "deepseek/deepseek-chat-v3.1:free")
	viper.SetDefault("LLM_MAX_TOKENS", 3000)
	viper.SetDefault("LLM_TEMPERATURE", 0.7)
	viper.SetDefault("LLM_TIMEOUT", "60s")
	viper.SetDefault("LLM_REFERER", "https://astro-bot.com")
	viper.SetDefault("LLM_TITLE", "Astro Bot")
	viper.SetDefault("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org/search")
	viper.SetDefault("GEOCODER_USER_AGENT", "AstroBot/1.0 (+https://example.com; contact@example.com)")

	llmTimeout, err := time.ParseDuration(viper.GetString("LLM_TIMEOUT"))
	if err != nil {
		llmTimeout = 60 * time.Second
	}
	stuckAfter, err := time.ParseDuration(viper.GetString("WORKER_STUCK_AFTER"))
	if err != nil {
		stuckAfter = 30 * time.Minute
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		Database: DatabaseConfig{
			Host:    viper.GetString("DB_HOST"),
			Port:    viper.GetString("DB_PORT"),
			Name:    viper.GetString("DB_NAME"),
			User:    viper.GetString("DB_USER"),
			Pass:    viper.GetString("DB_PASS"),
			SSLMode: viper.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Addr: viper.GetString("REDIS_ADDR"),
			Pass: viper.GetString("REDIS_PASS"),
			DB:   viper.GetInt("REDIS_DB"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(viper.GetString("KAFKA_BROKERS")),
			GroupID: viper.GetString("KAFKA_GROUP_ID"),
		},
		Bot: BotConfig{
			Token:      viper.GetString("BOT_TOKEN"),
			WebhookURL: viper.GetString("BOT_WEBHOOK_URL"),
			UpdateMode: viper.GetString("BOT_UPDATE_MODE"),
			AdminID:    viper.GetString("BOT_ADMIN_ID"),
			Username:   viper.GetString("BOT_USERNAME"),
		},
		API: APIConfig{
			Key: viper.GetString("API_KEY"),
		},
		Payment: PaymentConfig{
			ShopID:            viper.GetString("YOOKASSA_SHOP_ID"),
			SecretKey:         viper.GetString("YOOKASSA_SECRET_KEY"),
			WebhookSecret:     viper.GetString("PAYMENT_WEBHOOK_SECRET"),
			ReturnURL:         viper.GetString("YOOKASSA_RETURN_URL"),
			Currency:          viper.GetString("PAYMENT_CURRENCY"),
			SinglePlanetPrice: viper.GetInt("PAYMENT_SINGLE_PLANET_PRICE"),
			AllPlanetsPrice:   viper.GetInt("PAYMENT_ALL_PLANETS_PRICE"),
			SubscriptionPrice: viper.GetInt("PAYMENT_SUBSCRIPTION_PRICE"),
		},
		Worker: WorkerConfig{
			MaxRetries: viper.GetInt64("WORKER_MAX_RETRIES"),
			StuckAfter: stuckAfter,
		},
		LLM: LLMConfig{
			APIKey:      viper.GetString("OPENROUTER_API_KEY"),
			Model:       viper.GetString("LLM_MODEL"),
			Referer:     viper.GetString("LLM_REFERER"),
			Title:       viper.GetString("LLM_TITLE"),
			MaxTokens:   viper.GetInt("LLM_MAX_TOKENS"),
			Temperature: viper.GetFloat64("LLM_TEMPERATURE"),
			Timeout:     llmTimeout,
		},
		Astro: AstroConfig{
			UserID: viper.GetString("ASTROLOGY_API_USER_ID"),
			APIKey: viper.GetString("ASTROLOGY_API_KEY"),
		},
		Geocoder: GeocoderConfig{
			BaseURL:   viper.GetString("GEOCODER_BASE_URL"),
			UserAgent: viper.GetString("GEOCODER_USER_AGENT"),
		},
	}

	if cfg.Database.Name == "" {
		log.Println("WARNING: DB_NAME is not set")
	}
	if cfg.Bot.Token == "" {
		log.Println("WARNING: BOT_TOKEN is not set")
	}
	if cfg.LLM.APIKey == "" {
		log.Println("WARNING: OPENROUTER_API_KEY is not set, analysis generation will fail")
	}

	return cfg, nil
}

// LoadDatabaseOnly reads just the database section, for the bootstrap CLI path.
func LoadDatabaseOnly() (*DatabaseConfig, error) {
	_ = godotenv.Load()
	viper.AutomaticEnv()

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")

	return &DatabaseConfig{
		Host:    viper.GetString("DB_HOST"),
		Port:    viper.GetString("DB_PORT"),
		Name:    viper.GetString("DB_NAME"),
		User:    viper.GetString("DB_USER"),
		Pass:    viper.GetString("DB_PASS"),
		SSLMode: viper.GetString("DB_SSLMODE"),
	}, nil
}

// DSN returns the Postgres DSN string for GORM.
func (d *DatabaseConfig) DSN() string {
	return "host=" + d.Host + " port=" + d.Port + " user=" + d.User +
		" password=" + d.Pass + " dbname=" + d.Name + " sslmode=" + d.SSLMode
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
