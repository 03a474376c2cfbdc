package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken string

	OwnerID  int64
	AdminIDs []int64

	SupportChatID        int64
	MandatoryChannelID   int64
	MandatoryChannelLink string
	LogChannelID         int64
	ContactAdminLink     string

	DemoDuration time.Duration
	WarnBefore   time.Duration
	ScanInterval time.Duration

	// DSN пустой — состояние живёт только в файле
	DBDSN    string
	DataFile string

	Port        string
	Environment string
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	cfg := &Config{
		TelegramToken:        os.Getenv("TELEGRAM_TOKEN"),
		MandatoryChannelLink: os.Getenv("MANDATORY_CHANNEL_LINK"),
		ContactAdminLink:     os.Getenv("CONTACT_ADMIN_LINK"),
		DBDSN:                os.Getenv("DB_DSN"),
		DataFile:             os.Getenv("DATA_FILE"),
		Port:                 os.Getenv("PORT"),
		Environment:          os.Getenv("ENV"),
	}

	var err error
	if cfg.OwnerID, err = parseID("OWNER_ID", true); err != nil {
		return nil, err
	}
	if cfg.SupportChatID, err = parseID("SUPPORT_CHAT_ID", true); err != nil {
		return nil, err
	}
	if cfg.MandatoryChannelID, err = parseID("MANDATORY_CHANNEL_ID", false); err != nil {
		return nil, err
	}
	if cfg.LogChannelID, err = parseID("LOG_CHANNEL_ID", false); err != nil {
		return nil, err
	}

	for _, raw := range strings.Split(os.Getenv("ADMIN_IDS"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_IDS contains a non-numeric value %q", raw)
		}
		cfg.AdminIDs = append(cfg.AdminIDs, id)
	}

	if cfg.DemoDuration, err = parseDuration("DEMO_DURATION", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.WarnBefore, err = parseDuration("WARN_BEFORE", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ScanInterval, err = parseDuration("SCAN_INTERVAL", time.Minute); err != nil {
		return nil, err
	}

	// Дефолтные значения
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.DataFile == "" {
		cfg.DataFile = "bot_data.json"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	// Проверяем обязательные поля
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is required but not set")
	}

	log.Printf("Config loaded\n")

	return cfg, nil
}

func parseID(name string, required bool) (int64, error) {
	raw := os.Getenv(name)
	if raw == "" {
		if required {
			return 0, fmt.Errorf("%s is required but not set", name)
		}
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a numeric Telegram ID: %w", name, err)
	}
	return id, nil
}

func parseDuration(name string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 24h or 30m: %w", name, err)
	}
	return d, nil
}
