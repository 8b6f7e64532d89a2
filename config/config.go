package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ardanlabs/conf"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultConfigPath = "config/dev.toml"
	DefaultEnvPath    = ".env"
	ConfigExtension   = ".toml"

	// EnvPrefix namespaces environment overrides, e.g. VERIFIER_SERVER_API_HOST.
	EnvPrefix = "VERIFIER"

	EnvironmentDev  Environment = "dev"
	EnvironmentTest Environment = "test"
	EnvironmentProd Environment = "prod"

	CacheProviderMemory = "memory"
	CacheProviderRedis  = "redis"
)

type Environment string

type VerifierServiceConfig struct {
	conf.Version
	Server   ServerConfig   `toml:"server"`
	Verifier VerifierConfig `toml:"verifier"`
	Cache    CacheConfig    `toml:"cache"`
}

// ServerConfig represents configurable properties for the HTTP server
type ServerConfig struct {
	APIHost            string        `toml:"api_host" conf:"default:0.0.0.0:3000"`
	Environment        Environment   `toml:"environment" conf:"default:dev"`
	JagerHost          string        `toml:"jager_host" conf:"default:http://jaeger:14268/api/traces"`
	JagerEnabled       bool          `toml:"jager_enabled" conf:"default:false"`
	ReadTimeout        time.Duration `toml:"read_timeout" conf:"default:5s"`
	WriteTimeout       time.Duration `toml:"write_timeout" conf:"default:5s"`
	ShutdownTimeout    time.Duration `toml:"shutdown_timeout" conf:"default:5s"`
	LogLocation        string        `toml:"log_location" conf:"default:log"`
	LogLevel           string        `toml:"log_level" conf:"default:debug"`
	EnableAllowAllCORS bool          `toml:"enable_allow_all_cors" conf:"default:false"`
}

// VerifierConfig holds the verification defaults applied to requests that don't set them.
type VerifierConfig struct {
	// An empty list skips the trust check.
	TrustedIssuers  []string      `toml:"trusted_issuers"`
	AssertExpiry    bool          `toml:"assert_expiry" conf:"default:true"`
	AssertNotBefore bool          `toml:"assert_not_before" conf:"default:true"`
	ResolveTimeout  time.Duration `toml:"resolve_timeout" conf:"default:10s"`
}

// CacheConfig selects where resolved DID documents are kept.
type CacheConfig struct {
	Provider      string        `toml:"provider" conf:"default:memory"`
	MaxSize       int           `toml:"max_size" conf:"default:5"`
	MaxAge        time.Duration `toml:"max_age" conf:"default:24h"`
	RedisAddress  string        `toml:"redis_address"`
	RedisPassword string        `toml:"redis_password" conf:"noprint"`
}

func (c CacheConfig) IsRedis() bool {
	return c.Provider == CacheProviderRedis
}

// LoadConfig attempts to load a TOML config file from the given path, and coerce it into our object model.
// Before loading, defaults are applied on certain properties, which are overwritten if specified in the TOML file.
func LoadConfig(path string) (*VerifierServiceConfig, error) {
	loadFile := true
	if path == "" {
		logrus.Info("no config path provided, loading default config...")
		loadFile = false
	} else if filepath.Ext(path) != ConfigExtension {
		return nil, fmt.Errorf("path<%s> did not match the expected TOML format", path)
	}

	var config VerifierServiceConfig

	// parse and apply defaults
	if err := conf.Parse(os.Args[1:], EnvPrefix, &config); err != nil {
		switch {
		case errors.Is(err, conf.ErrHelpWanted):
			usage, err := conf.Usage(EnvPrefix, &config)
			if err != nil {
				return nil, errors.Wrap(err, "parsing config")
			}
			fmt.Println(usage)

			return nil, nil

		case errors.Is(err, conf.ErrVersionWanted):
			version, err := conf.VersionString(EnvPrefix, &config)
			if err != nil {
				return nil, errors.Wrap(err, "generating config version")
			}

			fmt.Println(version)
			return nil, nil
		}

		return nil, errors.Wrap(err, "parsing config")
	}

	if loadFile {
		if _, err := toml.DecodeFile(path, &config); err != nil {
			return nil, errors.Wrapf(err, "could not load config: %s", path)
		}
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *VerifierServiceConfig) validate() error {
	switch c.Server.Environment {
	case EnvironmentDev, EnvironmentTest, EnvironmentProd:
	default:
		return fmt.Errorf("unknown environment<%s>", c.Server.Environment)
	}
	switch c.Cache.Provider {
	case CacheProviderMemory:
	case CacheProviderRedis:
		if c.Cache.RedisAddress == "" {
			return errors.New("redis cache requires a redis_address")
		}
	default:
		return fmt.Errorf("unsupported cache provider<%s>", c.Cache.Provider)
	}
	return nil
}
