package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		Driver       string `yaml:"driver"` // postgres, mysql, sqlite
		DSN          string `yaml:"url"`
		MaxOpenConns int    `yaml:"max_open_conns"`
		MaxIdleConns int    `yaml:"max_idle_conns"`
	} `yaml:"database"`

	Email struct {
		Enabled      bool   `yaml:"enabled"`
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
	} `yaml:"email"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // минуты
	} `yaml:"jwt"`

	Storage struct {
		Type       string `yaml:"type"`        // local, s3
		BasePath   string `yaml:"base_path"`   // For local storage
		BaseURL    string `yaml:"base_url"`    // Public URL base
		Bucket     string `yaml:"bucket"`      // For S3/R2
		Region     string `yaml:"region"`      // For S3
		AccessKey  string `yaml:"access_key"`  // For S3/R2
		SecretKey  string `yaml:"secret_key"`  // For S3/R2
		Endpoint   string `yaml:"endpoint"`    // For R2 or custom S3
		PublicRead bool   `yaml:"public_read"` // Make files public
	} `yaml:"storage"`

	Upload struct {
		MaxSize        int64 `yaml:"max_size"`         // Max file size in bytes
		MaxUserStorage int64 `yaml:"max_user_storage"` // Суммарный объем файлов пользователя
		ImageQuality   int   `yaml:"image_quality"`    // JPEG quality (1-100)
	} `yaml:"upload"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	RabbitMQ struct {
		Enabled  bool   `yaml:"enabled"`
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"rabbitmq"`

	// Очередь доставки уведомлений (asynq поверх Redis)
	Worker struct {
		Concurrency        int `yaml:"concurrency"`
		InboxRetentionDays int `yaml:"inbox_retention_days"` // прочитанные уведомления старше удаляются
	} `yaml:"worker"`

	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`

	// Первый администратор: профиль с ролью ADMIN для userID из провайдера идентичности
	FirstAdmin struct {
		UserID string `yaml:"user_id"`
		Handle string `yaml:"handle"`
		Email  string `yaml:"email"`
	} `yaml:"first_admin"`

	// Переопределение лимитов тарифов: free/plus/pro
	Quotas map[string]TierQuota `yaml:"quotas"`
}

// TierQuota - месячные лимиты тарифа, -1 = без ограничений
type TierQuota struct {
	GigsPerMonth         int `yaml:"gigs_per_month"`
	ApplicationsPerMonth int `yaml:"applications_per_month"`
	ShowcasesPerMonth    int `yaml:"showcases_per_month"`
}

var AppConfig *Config

// Load читает YAML-конфиг по указанному пути
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file at %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file at %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// FromEnv собирает конфиг из переменных окружения (контейнеры, CI)
func FromEnv() *Config {
	var cfg Config

	cfg.Database.DSN = os.Getenv("DATABASE_URL")
	cfg.Database.Driver = os.Getenv("DATABASE_DRIVER")
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.FirstAdmin.UserID = os.Getenv("FIRST_ADMIN_USER_ID")
	cfg.FirstAdmin.Email = os.Getenv("FIRST_ADMIN_EMAIL")

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Enabled = true
		cfg.Redis.Addr = addr
		cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	}
	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		cfg.RabbitMQ.Enabled = true
		cfg.RabbitMQ.URL = url
	}
	if host := os.Getenv("SMTP_HOST"); host != "" {
		cfg.Email.Enabled = true
		cfg.Email.SMTPHost = host
		cfg.Email.SMTPPort, _ = strconv.Atoi(os.Getenv("SMTP_PORT"))
		cfg.Email.SMTPUsername = os.Getenv("SMTP_USER")
		cfg.Email.SMTPPassword = os.Getenv("SMTP_PASSWORD")
		cfg.Email.FromEmail = os.Getenv("SMTP_FROM")
	}

	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.JWT.TTL == 0 {
		c.JWT.TTL = 60
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "local"
		c.Storage.BasePath = "./uploads"
		c.Storage.BaseURL = "/api/v1/files"
	}
	if c.Upload.MaxSize == 0 {
		c.Upload.MaxSize = 25 * 1024 * 1024 // 25MB
	}
	if c.Upload.MaxUserStorage == 0 {
		c.Upload.MaxUserStorage = 1 << 30 // 1GB
	}
	if c.Upload.ImageQuality == 0 {
		c.Upload.ImageQuality = 85
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "gigboard.events"
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 10
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}
	if c.Worker.Concurrency == 0 {
		c.Worker.Concurrency = 5
	}
	if c.Worker.InboxRetentionDays == 0 {
		c.Worker.InboxRetentionDays = 30
	}
	if c.FirstAdmin.UserID != "" && c.FirstAdmin.Handle == "" {
		c.FirstAdmin.Handle = "admin"
	}
	if c.Email.FromName == "" {
		c.Email.FromName = "Gigboard"
	}
}

// LoadConfig загружает глобальный конфиг: из окружения, если задан DATABASE_URL,
// иначе из CONFIG_PATH (по умолчанию config/config.yaml)
func LoadConfig() {
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("Loading configuration from environment variables")
		AppConfig = FromEnv()
		return
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig = cfg
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
