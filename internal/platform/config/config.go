package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig            `mapstructure:"server"`
	Database  DatabaseConfig          `mapstructure:"database"`
	Robot     RobotConfig             `mapstructure:"robot"`
	Robots    map[string]Credentials  `mapstructure:"robots"`
	JWT       JWTConfig               `mapstructure:"jwt"`
	APIKeys   map[string]APIKeyConfig `mapstructure:"api_keys"`
	Retention RetentionConfig         `mapstructure:"retention"`
	Logging   LoggingConfig           `mapstructure:"logging"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL            string `mapstructure:"url"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// RobotConfig applies to every configured robot.
type RobotConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RatePerMinute  int           `mapstructure:"rate_per_minute"`
}

type Credentials struct {
	AccessToken string `mapstructure:"access_token"`
	Secret      string `mapstructure:"secret"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// APIKeyConfig is a static client key. Hash is the bcrypt hash of the raw
// key; an empty Robots list allows every robot.
type APIKeyConfig struct {
	Hash   string   `mapstructure:"hash"`
	Robots []string `mapstructure:"robots"`
}

type RetentionConfig struct {
	Deliveries    time.Duration `mapstructure:"deliveries"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.url", "file:dingbot.db")
	v.SetDefault("database.max_connections", 4)

	v.SetDefault("robot.endpoint", "https://oapi.dingtalk.com/robot/send")
	v.SetDefault("robot.connect_timeout", 5*time.Second)
	v.SetDefault("robot.request_timeout", 30*time.Second)
	v.SetDefault("robot.rate_per_minute", 20)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "dingbot")
	v.SetDefault("jwt.access_token_ttl", 24*time.Hour)

	v.SetDefault("retention.deliveries", 30*24*time.Hour)
	v.SetDefault("retention.prune_interval", time.Hour)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file_path", "")
}

func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects robots without a token or secret.
func (c *Config) Validate() error {
	for _, name := range c.RobotNames() {
		creds := c.Robots[name]
		if creds.AccessToken == "" {
			return fmt.Errorf("robot %q: access_token is required", name)
		}
		if creds.Secret == "" {
			return fmt.Errorf("robot %q: secret is required", name)
		}
	}
	for name, key := range c.APIKeys {
		if key.Hash == "" {
			return fmt.Errorf("api key %q: hash is required", name)
		}
		for _, robot := range key.Robots {
			if _, ok := c.Robots[robot]; !ok {
				return fmt.Errorf("api key %q: unknown robot %q", name, robot)
			}
		}
	}
	if c.Robot.ConnectTimeout <= 0 {
		return fmt.Errorf("robot.connect_timeout must be positive")
	}
	if c.Robot.RatePerMinute < 0 {
		return fmt.Errorf("robot.rate_per_minute must not be negative")
	}
	return nil
}

// RobotNames returns the configured robot names in sorted order.
func (c *Config) RobotNames() []string {
	names := make([]string, 0, len(c.Robots))
	for name := range c.Robots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
