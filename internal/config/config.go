package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"aforo/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "configs/config.yaml"

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Pool       PoolConfig       `yaml:"pool"`
	Google     GoogleConfig     `yaml:"google"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Export     ExportConfig     `yaml:"export"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Path          string        `yaml:"path"`
	Interval      time.Duration `yaml:"interval"`
	RetentionDays int           `yaml:"retention_days"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled bool         `yaml:"enabled"`
	Port    int          `yaml:"port"`
	TLS     APITLSConfig `yaml:"tls"`
}

type APITLSConfig struct {
	Enabled           bool   `yaml:"enabled"`
	CertFile          string `yaml:"cert_file"`
	KeyFile           string `yaml:"key_file"`
	ClientCAFile      string `yaml:"client_ca_file"`
	RequireClientCert bool   `yaml:"require_client_cert"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

// APIClientKey is one dashboard or integration allowed to call the API.
// Permissions: "read", "write", "import".
type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// PoolConfig describes the pool grid and the layout of the reservations export.
type PoolConfig struct {
	MaxCapacity      int    `yaml:"max_capacity"`
	SlotStart        string `yaml:"slot_start"`
	SlotCount        int    `yaml:"slot_count"`
	SlotMinutes      int    `yaml:"slot_minutes"`
	HeaderScanRows   int    `yaml:"header_scan_rows"`
	SectionMarker    string `yaml:"section_marker"`
	DateCell         string `yaml:"date_cell"`
	DefaultTechnique string `yaml:"default_technique"`
	UploadSource     string `yaml:"upload_source"`
	MaxUploadMB      int    `yaml:"max_upload_mb"`
}

type GoogleConfig struct {
	CredentialsFile        string `yaml:"credentials_file"`
	OccupancySpreadsheetID string `yaml:"occupancy_spreadsheet_id"`
	OccupancySheet         string `yaml:"occupancy_sheet"`
}

type TelegramConfig struct {
	BotToken string  `yaml:"bot_token"`
	ChatIDs  []int64 `yaml:"chat_ids"`
	Debug    bool    `yaml:"debug"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

// PathFromEnv returns CONFIG_PATH or DefaultPath.
func PathFromEnv() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

func Load(configPath string) (*Config, error) {
	// .env is optional outside of local development.
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if err := c.Pool.Validate(); err != nil {
		return err
	}
	if c.Backup.Enabled && c.Backup.Path == "" {
		return errors.New("backup path is required when backups are enabled")
	}
	return ValidateAPIKeys(c.API.Auth.APIKeys)
}

func (p *PoolConfig) Validate() error {
	if p.MaxCapacity <= 0 {
		return fmt.Errorf("pool.max_capacity must be positive, got %d", p.MaxCapacity)
	}
	start, err := time.Parse(models.TimeLayout, p.SlotStart)
	if err != nil {
		return fmt.Errorf("pool.slot_start %q: %w", p.SlotStart, err)
	}
	if p.SlotCount <= 0 || p.SlotMinutes <= 0 {
		return fmt.Errorf("pool slot grid must be positive, got %d slots of %d minutes", p.SlotCount, p.SlotMinutes)
	}
	first := start.Hour()*60 + start.Minute()
	if first+(p.SlotCount-1)*p.SlotMinutes >= 24*60 {
		return errors.New("pool slot grid runs past midnight")
	}
	if strings.TrimSpace(p.SectionMarker) == "" {
		return errors.New("pool.section_marker is required")
	}
	return nil
}

func ValidateAPIKeys(keys []APIClientKey) error {
	seen := make(map[string]bool)
	for _, k := range keys {
		if k.Key == "" {
			return fmt.Errorf("api key for client '%s' is empty", k.Name)
		}
		if seen[k.Key] {
			return fmt.Errorf("duplicate api key for client '%s'", k.Name)
		}
		seen[k.Key] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "aforo"
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}

	if c.Pool.MaxCapacity == 0 {
		c.Pool.MaxCapacity = models.DefaultMaxCapacity
	}
	if c.Pool.SlotStart == "" {
		c.Pool.SlotStart = "09:00"
	}
	if c.Pool.SlotCount == 0 {
		c.Pool.SlotCount = 24
	}
	if c.Pool.SlotMinutes == 0 {
		c.Pool.SlotMinutes = 30
	}
	if c.Pool.HeaderScanRows == 0 {
		c.Pool.HeaderScanRows = 50
	}
	if c.Pool.SectionMarker == "" {
		c.Pool.SectionMarker = "Día :"
	}
	if c.Pool.DateCell == "" {
		c.Pool.DateCell = "B6"
	}
	if c.Pool.DefaultTechnique == "" {
		c.Pool.DefaultTechnique = models.DefaultTechnique
	}
	if c.Pool.UploadSource == "" {
		c.Pool.UploadSource = models.DefaultUploadSource
	}
	if c.Pool.MaxUploadMB == 0 {
		c.Pool.MaxUploadMB = 10
	}

	if c.Google.OccupancySheet == "" {
		c.Google.OccupancySheet = "Aforo"
	}
	if c.Backup.Interval == 0 {
		c.Backup.Interval = 24 * time.Hour
	}
	if c.Backup.RetentionDays == 0 {
		c.Backup.RetentionDays = 7
	}
	if c.Export.Path == "" {
		c.Export.Path = "exports"
	}
}
