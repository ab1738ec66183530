package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Auth     AuthConfig     `json:"auth"`
	Media    MediaConfig    `json:"media"`
	Consul   ConsulConfig   `json:"consul"`
	Jaeger   JaegerConfig   `json:"jaeger"`
	Log      LogConfig      `json:"log"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Name     string `json:"name"`      // 服务名称
	Host     string `json:"host"`      // 服务地址
	HTTPPort int    `json:"http_port"` // HTTP端口
	SiteURL  string `json:"site_url"`  // 对外访问地址（用于拼接图片 URL）
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `json:"driver"`   // 数据库驱动：postgres / mysql
	Host     string `json:"host"`     // 数据库地址
	Port     int    `json:"port"`     // 数据库端口
	User     string `json:"user"`     // 用户名
	Password string `json:"password"` // 密码
	Database string `json:"database"` // 数据库名
	SSLMode  string `json:"ssl_mode"` // postgres sslmode
	MaxIdle  int    `json:"max_idle"` // 最大空闲连接
	MaxOpen  int    `json:"max_open"` // 最大打开连接
}

// AuthConfig 鉴权配置
type AuthConfig struct {
	Enabled         bool                `json:"enabled"`            // 是否开启鉴权
	JWTSecret       string              `json:"jwt_secret"`         // HS256 密钥
	Issuer          string              `json:"issuer"`             // iss
	Audience        string              `json:"audience"`           // aud
	AccessTTLMin    int                 `json:"access_ttl_min"`     // access token 有效期（分钟）
	RefreshTTLHour  int                 `json:"refresh_ttl_hour"`   // refresh token 有效期（小时）
	PublicPaths     []string            `json:"public_paths"`       // 免鉴权路径（* 结尾按前缀匹配）
	RBAC            map[string][]string `json:"rbac"`               // path -> 允许角色
	LoginRatePerSec int                 `json:"login_rate_per_sec"` // 登录/注册限流（每秒令牌数）
}

// MediaConfig 媒体文件配置
type MediaConfig struct {
	Dir     string `json:"dir"`      // 本地存储目录
	BaseURL string `json:"base_url"` // URL 前缀，例如 /media
}

// ConsulConfig Consul配置
type ConsulConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// JaegerConfig Jaeger配置
type JaegerConfig struct {
	Endpoint string  `json:"endpoint"`
	Sampler  float64 `json:"sampler"` // 采样率 0.0-1.0
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stdout, file
	Path   string `json:"path"`   // 日志文件路径
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// LoadConfig 加载配置：
// - 先读 JSON 配置文件（不存在则用默认配置）
// - 再用环境变量覆盖敏感项（支持 .env 文件，见 applyEnv）
func LoadConfig(configPath string) (*Config, error) {
	var err error
	configOnce.Do(func() {
		globalConfig = &Config{}
		if _, err = os.Stat(configPath); os.IsNotExist(err) {
			logrus.Warnf("Config file not found: %s, using default config", configPath)
			globalConfig = defaultConfig()
			err = nil
			applyEnv(globalConfig)
			return
		}

		data, readErr := os.ReadFile(configPath)
		if readErr != nil {
			err = fmt.Errorf("failed to read config file: %w", readErr)
			return
		}

		if unmarshalErr := json.Unmarshal(data, globalConfig); unmarshalErr != nil {
			err = fmt.Errorf("failed to parse config file: %w", unmarshalErr)
			return
		}
		applyEnv(globalConfig)
	})

	if err != nil {
		return nil, err
	}

	return globalConfig, nil
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	if globalConfig == nil {
		return defaultConfig()
	}
	return globalConfig
}

// applyEnv 环境变量覆盖（密码/密钥不建议写进配置文件）。
func applyEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, convErr := strconv.Atoi(v); convErr == nil {
			cfg.Database.Port = p
		}
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("SITE_URL"); v != "" {
		cfg.Server.SiteURL = v
	}
}

// defaultConfig 默认配置（开发环境）
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:     "rental-service",
			Host:     "0.0.0.0",
			HTTPPort: 8080,
			SiteURL:  "http://localhost:8080",
		},
		Database: DatabaseConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			Database: "findoutrent",
			SSLMode:  "disable",
			MaxIdle:  10,
			MaxOpen:  100,
		},
		Auth: AuthConfig{
			Enabled:        true,
			JWTSecret:      "dev-secret",
			Issuer:         "findoutrent",
			Audience:       "findoutrent",
			AccessTTLMin:   60,
			RefreshTTLHour: 24 * 7,
			PublicPaths: []string{
				"/healthz",
				"/api/hello",
				"/api/login",
				"/api/token/refresh",
				"/api/signup/customer",
				"/api/signup/dealer",
				"/api/change-password",
				"/media/*",
			},
			RBAC:            map[string][]string{},
			LoginRatePerSec: 5,
		},
		Media: MediaConfig{
			Dir:     "media",
			BaseURL: "/media",
		},
		Consul: ConsulConfig{
			Host: "localhost",
			Port: 8500,
		},
		Jaeger: JaegerConfig{
			Endpoint: "localhost:6831",
			Sampler:  1.0,
		},
		Log: LogConfig{
			Level:  "debug",
			Format: "text",
			Output: "stdout",
			Path:   "logs/app.log",
		},
	}
}
