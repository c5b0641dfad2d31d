package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DevJWTSecret is the signing secret used when none is configured. It must be
// overridden outside development.
const DevJWTSecret = "dev-secret-change-me"

// Store drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverS3     = "s3"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Data struct {
		Dir string
	}
	Store struct {
		Driver     string
		SQLitePath string
	}
	ConfigStore struct {
		Driver string
	}
	S3 struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
	Auth struct {
		JWTSecret       string
		TokenTTLMinutes int
		BcryptCost      int
	}
	CORS struct {
		Origins string
	}
	Log struct {
		Level string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("EASYSTUDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// variable names understood by earlier deployments
	bindEnv(v, "auth.jwtsecret", "JWT_SECRET")
	bindEnv(v, "auth.tokenttlminutes", "JWT_TTL_MIN")
	bindEnv(v, "cors.origins", "CORS_ORIGINS")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:8000")
	v.SetDefault("data.dir", "data")
	v.SetDefault("store.driver", DriverFile)
	v.SetDefault("store.sqlitepath", "data/accounts.db")
	v.SetDefault("configstore.driver", "")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.keyprefix", "configs")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("auth.jwtsecret", DevJWTSecret)
	v.SetDefault("auth.tokenttlminutes", 43200)
	v.SetDefault("auth.bcryptcost", 10)
	v.SetDefault("cors.origins", "*")
	v.SetDefault("log.level", "info")
}

// bindEnv binds key to its prefixed variable and to a legacy name. The
// prefixed variable takes precedence.
func bindEnv(v *viper.Viper, key, legacy string) {
	prefixed := "EASYSTUDY_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	_ = v.BindEnv(key, prefixed, legacy)
}

// Validate reports configuration that cannot be served.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverFile, DriverSQLite:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.ConfigStore.Driver {
	case "", DriverFile, DriverSQLite:
	case DriverS3:
		if strings.TrimSpace(c.S3.Bucket) == "" {
			return fmt.Errorf("s3 bucket is required for the s3 config store")
		}
	default:
		return fmt.Errorf("unknown config store driver %q", c.ConfigStore.Driver)
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("auth jwt secret is required")
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		return fmt.Errorf("token ttl must be positive, got %d minutes", c.Auth.TokenTTLMinutes)
	}
	return nil
}

// ConfigStoreDriver is the driver for config records, defaulting to the
// credential store's driver.
func (c Config) ConfigStoreDriver() string {
	if c.ConfigStore.Driver == "" {
		return c.Store.Driver
	}
	return c.ConfigStore.Driver
}

// TokenTTL converts the configured lifetime to a duration.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}

// AllowedOrigins splits the comma separated CORS origin list.
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORS.Origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// UsesDevSecret reports whether the insecure default secret is in use.
func (c Config) UsesDevSecret() bool {
	return c.Auth.JWTSecret == DevJWTSecret
}

// loadDotEnv sets variables from a .env file without overriding ones already
// in the environment. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
