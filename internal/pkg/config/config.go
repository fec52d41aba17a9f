// Package config предоставляет управление конфигурацией приложения
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Server содержит конфигурацию сервера
type Server struct {
	Host                   string `json:"host" yaml:"host"`
	Port                   int    `json:"port" yaml:"port"`
	ShutdownTimeoutSeconds int    `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
}

// Ingestion содержит конфигурацию загрузки архива
type Ingestion struct {
	// ChunkSizeKiB — размер одного чтения файла сообщений.
	ChunkSizeKiB int `json:"chunk_size_kib" yaml:"chunk_size_kib"`
	// ArchiveTTLHours — сколько часов запись о загруженном архиве
	// живет в хранилище сессии.
	ArchiveTTLHours int `json:"archive_ttl_hours" yaml:"archive_ttl_hours"`
	// CacheTTLMinutes — срок жизни кэша результатов агрегации.
	CacheTTLMinutes int `json:"cache_ttl_minutes" yaml:"cache_ttl_minutes"`
}

// Search содержит конфигурацию поискового движка
type Search struct {
	ResultLimit int `json:"result_limit" yaml:"result_limit"`
}

// Render содержит конфигурацию оконной отрисовки
type Render struct {
	EstimatedItemHeight int `json:"estimated_item_height" yaml:"estimated_item_height"`
	Overscan            int `json:"overscan" yaml:"overscan"`
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json, text
}

// Config содержит конфигурацию приложения
type Config struct {
	Server    Server    `json:"server" yaml:"server"`
	Ingestion Ingestion `json:"ingestion" yaml:"ingestion"`
	Search    Search    `json:"search" yaml:"search"`
	Render    Render    `json:"render" yaml:"render"`
	Logging   Logging   `json:"logging" yaml:"logging"`
}

// LoadConfig загружает конфигурацию приложения из переменных окружения,
// .env файла или config.yml
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла, если он существует
	if err := godotenv.Load(); err != nil {
		// Если .env файла не существует, это нормально, мы будем полагаться на переменные окружения или config.yml
	}

	// Попытка загрузки из config.yml сначала
	cfg, err := loadFromYAML("config.yml")
	if err != nil {
		// Если загрузка YAML не удалась, используем переменные окружения
		cfg, err = loadFromEnv()
		if err != nil {
			return nil, fmt.Errorf("failed to load config from env: %w", err)
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

// loadFromYAML загружает конфигурацию из YAML-файла
func loadFromYAML(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml config: %w", err)
	}

	return &cfg, nil
}

// loadFromEnv загружает конфигурацию из переменных окружения
func loadFromEnv() (*Config, error) {
	host := getEnv("SERVER_HOST", DefaultServerHost)
	portStr := getEnv("SERVER_PORT", strconv.Itoa(DefaultServerPort))
	chunkSizeStr := getEnv("CHUNK_SIZE_KIB", strconv.Itoa(DefaultChunkSizeKiB))
	resultLimitStr := getEnv("SEARCH_RESULT_LIMIT", strconv.Itoa(DefaultSearchResultLimit))
	logLevel := getEnv("LOG_LEVEL", DefaultLogLevel)

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	chunkSize, err := strconv.Atoi(chunkSizeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_SIZE_KIB: %w", err)
	}

	resultLimit, err := strconv.Atoi(resultLimitStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_RESULT_LIMIT: %w", err)
	}

	return &Config{
		Server: Server{
			Host: host,
			Port: port,
		},
		Ingestion: Ingestion{
			ChunkSizeKiB: chunkSize,
		},
		Search: Search{
			ResultLimit: resultLimit,
		},
		Logging: Logging{
			Level: logLevel,
		},
	}, nil
}

// applyDefaults заполняет не заданные значения значениями по умолчанию.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ShutdownTimeoutSeconds == 0 {
		c.Server.ShutdownTimeoutSeconds = int(DefaultShutdownTimeout / time.Second)
	}
	if c.Ingestion.ChunkSizeKiB == 0 {
		c.Ingestion.ChunkSizeKiB = DefaultChunkSizeKiB
	}
	if c.Ingestion.ArchiveTTLHours == 0 {
		c.Ingestion.ArchiveTTLHours = int(DefaultArchiveTTL / time.Hour)
	}
	if c.Ingestion.CacheTTLMinutes == 0 {
		c.Ingestion.CacheTTLMinutes = int(DefaultCacheTTL / time.Minute)
	}
	if c.Search.ResultLimit == 0 {
		c.Search.ResultLimit = DefaultSearchResultLimit
	}
	if c.Render.EstimatedItemHeight == 0 {
		c.Render.EstimatedItemHeight = DefaultEstimatedItemHeight
	}
	if c.Render.Overscan == 0 {
		c.Render.Overscan = DefaultOverscan
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

// Address возвращает адрес сервера в формате "host:port"
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ChunkSize возвращает размер части чтения в байтах.
func (c *Config) ChunkSize() int {
	return c.Ingestion.ChunkSizeKiB * 1024
}

// ArchiveTTL возвращает срок жизни записи об архиве.
func (c *Config) ArchiveTTL() time.Duration {
	return time.Duration(c.Ingestion.ArchiveTTLHours) * time.Hour
}

// CacheTTL возвращает срок жизни кэша результатов агрегации.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Ingestion.CacheTTLMinutes) * time.Minute
}

// Validate проверяет, являются ли значения конфигурации допустимыми
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid port number (1-65535)")
	}

	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("server.shutdown_timeout_seconds must be positive")
	}

	if c.Ingestion.ChunkSizeKiB <= 0 {
		return fmt.Errorf("ingestion.chunk_size_kib must be positive")
	}

	if c.Ingestion.ArchiveTTLHours <= 0 {
		return fmt.Errorf("ingestion.archive_ttl_hours must be positive")
	}

	if c.Ingestion.CacheTTLMinutes <= 0 {
		return fmt.Errorf("ingestion.cache_ttl_minutes must be positive")
	}

	if c.Search.ResultLimit <= 0 {
		return fmt.Errorf("search.result_limit must be positive")
	}

	if c.Render.EstimatedItemHeight <= 0 {
		return fmt.Errorf("render.estimated_item_height must be positive")
	}

	if c.Render.Overscan < 0 {
		return fmt.Errorf("render.overscan must be non-negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// all good
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	switch c.Logging.Format {
	case "json", "text":
		// all good
	default:
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// getEnv извлекает значение переменной окружения или возвращает значение
// по умолчанию, если она не установлена
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
