package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Environment string `validate:"required"`
	Port        string `validate:"required,numeric"`
	Token       string
	LogLevel    string `validate:"required"`
	Storage     StorageConfig
	Upload      UploadConfig
	Conversion  ConversionConfig
	Retention   RetentionConfig
	Redis       RedisConfig
}

// StorageConfig holds the filesystem roots. It is read once at startup and
// never mutated afterwards.
type StorageConfig struct {
	UploadDir    string `validate:"required"`
	OutputDir    string `validate:"required"`
	PublicDir    string
	PublicPrefix string `validate:"required,startswith=/"`
}

type UploadConfig struct {
	MaxSizeMB int64 `validate:"gt=0"`
}

func (u UploadConfig) MaxBytes() int64 {
	return u.MaxSizeMB << 20
}

type ConversionConfig struct {
	Timeout      time.Duration `validate:"gte=0"`
	SofficePath  string
	RasterDPI    float64 `validate:"gt=0,lte=1200"`
	ImageQuality int     `validate:"gte=1,lte=100"`
	OCRLanguages []string
}

type RetentionConfig struct {
	TTL           time.Duration `validate:"gte=0"`
	SweepInterval time.Duration `validate:"gt=0"`
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int `validate:"gte=0"`
	Prefix   string
}

func Load() *Config {
	maxSize, _ := strconv.ParseInt(getEnv("MAX_UPLOAD_SIZE_MB", "200"), 10, 64)
	dpi, _ := strconv.ParseFloat(getEnv("RASTER_DPI", "150"), 64)
	quality, _ := strconv.Atoi(getEnv("IMAGE_QUALITY", "90"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	return &Config{
		Environment: getEnv("ENV", "development"),
		Port:        getEnv("PORT", "3000"),
		Token:       getEnv("TOKEN", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Storage: StorageConfig{
			UploadDir:    getEnv("UPLOAD_DIR", "./uploads"),
			OutputDir:    getEnv("OUTPUT_DIR", "./outputs"),
			PublicDir:    getEnv("PUBLIC_DIR", "./public"),
			PublicPrefix: strings.TrimRight(getEnv("PUBLIC_PREFIX", "/outputs"), "/"),
		},
		Upload: UploadConfig{
			MaxSizeMB: maxSize,
		},
		Conversion: ConversionConfig{
			Timeout:      getDuration("CONVERSION_TIMEOUT", 5*time.Minute),
			SofficePath:  getEnv("SOFFICE_PATH", ""),
			RasterDPI:    dpi,
			ImageQuality: quality,
			OCRLanguages: splitList(getEnv("OCR_LANGUAGES", "eng")),
		},
		Retention: RetentionConfig{
			TTL:           getDuration("RETENTION_TTL", 24*time.Hour),
			SweepInterval: getDuration("RETENTION_SWEEP_INTERVAL", 10*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			Prefix:   getEnv("REDIS_PREFIX", "file-converter"),
		},
	}
}

// Validate reports the first group of invalid fields. Unparseable numeric
// env values arrive here as zero and are rejected by the range tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return -1
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == '+' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
