package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// 存储后端
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config wisefido-patients 配置
// 加载顺序：默认值 -> CONFIG_FILE（YAML，可选）-> 环境变量
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
	Export   ExportConfig   `yaml:"export"`
	IDs      IDConfig       `yaml:"ids"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
	// PublicBaseURL 用于生成 /patient/{id} 与 /ps/{id} 链接
	PublicBaseURL string `yaml:"public_base_url"`
}

// StoreConfig 记录集合所在的持久槽
type StoreConfig struct {
	Backend string `yaml:"backend"`  // memory / redis / postgres
	SlotKey string `yaml:"slot_key"` // 默认 "patients"
	// FallbackMemory 后端不可用时回退到内存槽（本地联调用）
	FallbackMemory bool `yaml:"fallback_memory"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
	MaxIdle  int    `yaml:"max_idle"`
}

// DSN lib/pq 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ExportConfig 表格导出配置
type ExportConfig struct {
	// SkipFailedRows 为 true 时单行条码失败只跳过该图片；默认整体失败
	SkipFailedRows bool   `yaml:"skip_failed_rows"`
	DateLayout     string `yaml:"date_layout"`
	Timezone       string `yaml:"timezone"`
}

type IDConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

// MQTTConfig MQTT 配置（用于发布患者登记事件，默认禁用）
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
	QoS      int    `yaml:"qos"`
}

// Default 返回默认配置
func Default() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = ":8080"
	cfg.HTTP.PublicBaseURL = "http://localhost:8080"

	cfg.Store.Backend = StoreRedis
	cfg.Store.SlotKey = "patients"
	cfg.Store.FallbackMemory = true

	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "wisefido_patients"
	cfg.Database.SSLMode = "disable"

	cfg.Redis.Addr = "localhost:6379"

	cfg.Log.Level = "info"
	cfg.Log.Format = "json"

	cfg.Export.DateLayout = "1/2/2006"
	cfg.Export.Timezone = "Local"

	cfg.IDs.MaxAttempts = 10

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "wisefido-patients"
	cfg.MQTT.Topic = "wisefido/patients/registered"
	cfg.MQTT.QoS = 1
	return cfg
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile 用 YAML 文件覆盖 cfg 中出现的字段
func LoadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory, StoreRedis, StorePostgres:
	default:
		return fmt.Errorf("unsupported store backend %q", c.Store.Backend)
	}
	if strings.TrimSpace(c.Store.SlotKey) == "" {
		return fmt.Errorf("store slot key is required")
	}
	if c.IDs.MaxAttempts <= 0 {
		return fmt.Errorf("ids.max_attempts must be positive, got %d", c.IDs.MaxAttempts)
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.PublicBaseURL = strings.TrimRight(getEnv("PUBLIC_BASE_URL", cfg.HTTP.PublicBaseURL), "/")

	cfg.Store.Backend = strings.ToLower(getEnv("STORE_BACKEND", cfg.Store.Backend))
	cfg.Store.SlotKey = getEnv("STORE_SLOT_KEY", cfg.Store.SlotKey)
	cfg.Store.FallbackMemory = parseBool(getEnv("STORE_FALLBACK_MEMORY", ""), cfg.Store.FallbackMemory)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = parseInt(getEnv("DB_PORT", ""), cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnv("DB_NAME", cfg.Database.Database)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", ""), cfg.Database.MaxConns)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", ""), cfg.Database.MaxIdle)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", ""), cfg.Redis.DB)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)

	cfg.Export.SkipFailedRows = parseBool(getEnv("EXPORT_SKIP_FAILED_ROWS", ""), cfg.Export.SkipFailedRows)
	cfg.Export.DateLayout = getEnv("EXPORT_DATE_LAYOUT", cfg.Export.DateLayout)
	cfg.Export.Timezone = getEnv("EXPORT_TIMEZONE", cfg.Export.Timezone)

	cfg.IDs.MaxAttempts = parseInt(getEnv("ID_MAX_ATTEMPTS", ""), cfg.IDs.MaxAttempts)

	cfg.MQTT.Enabled = parseBool(getEnv("MQTT_ENABLED", ""), cfg.MQTT.Enabled)
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", cfg.MQTT.Broker)
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", cfg.MQTT.ClientID)
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", cfg.MQTT.Username)
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", cfg.MQTT.Password)
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", cfg.MQTT.Topic)
	cfg.MQTT.QoS = parseInt(getEnv("MQTT_QOS", ""), cfg.MQTT.QoS)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseBool(s string, def bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}
