// Package config loads the shared-store configuration from YAML files and
// the environment and opens the matching store backend. Settings resolve in
// order: defaults, then the YAML file, then environment variables (a .env
// file is honored when present).
package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentgrid/logging"
	"github.com/hupe1980/agentgrid/store"
)

// StoreConfig selects and parameterizes the shared store backend. With
// UseRedis unset, every process gets its own in-memory store and multi-process
// coordination is unavailable.
type StoreConfig struct {
	UseRedis bool `yaml:"use_redis"`

	RedisHost     string `yaml:"redis_host"`
	RedisPort     int    `yaml:"redis_port"`
	RedisDB       int    `yaml:"redis_db"`
	RedisUsername string `yaml:"redis_username"`
	RedisPassword string `yaml:"redis_password"`

	RedisSSL         bool   `yaml:"redis_ssl"`
	RedisSSLCertfile string `yaml:"redis_ssl_certfile"`
	RedisSSLKeyfile  string `yaml:"redis_ssl_keyfile"`
	RedisSSLCACerts  string `yaml:"redis_ssl_ca_certs"`

	// MaxRetries bounds the optimistic concurrency retry loop; 0 retries
	// until the commit lands.
	MaxRetries int `yaml:"max_retries"`
}

// DefaultStoreConfig returns the local in-memory configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		RedisHost: "localhost",
		RedisPort: 6379,
	}
}

// Load resolves the store configuration. path may be empty to skip the YAML
// layer. A .env file in the working directory is loaded best-effort before
// environment variables are read.
func Load(path string) (StoreConfig, error) {
	cfg := DefaultStoreConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return StoreConfig{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return StoreConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return StoreConfig{}, err
	}

	if err := cfg.Validate(); err != nil {
		return StoreConfig{}, err
	}
	return cfg, nil
}

// applyEnv overrides fields from STORE_* environment variables.
func (c *StoreConfig) applyEnv() error {
	if v, ok := os.LookupEnv("STORE_USE_REDIS"); ok {
		useRedis, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: STORE_USE_REDIS: %w", err)
		}
		c.UseRedis = useRedis
	}
	if v, ok := os.LookupEnv("STORE_REDIS_HOST"); ok {
		c.RedisHost = v
	}
	if v, ok := os.LookupEnv("STORE_REDIS_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: STORE_REDIS_PORT: %w", err)
		}
		c.RedisPort = port
	}
	if v, ok := os.LookupEnv("STORE_REDIS_USERNAME"); ok {
		c.RedisUsername = v
	}
	if v, ok := os.LookupEnv("STORE_REDIS_PASSWORD"); ok {
		c.RedisPassword = v
	}
	return nil
}

// Validate checks the configuration without touching the network.
func (c StoreConfig) Validate() error {
	if !c.UseRedis {
		return nil
	}
	if c.RedisHost == "" {
		return fmt.Errorf("config: redis_host is required when use_redis is set")
	}
	if c.RedisPort <= 0 || c.RedisPort > 65535 {
		return fmt.Errorf("config: redis_port %d out of range", c.RedisPort)
	}
	if c.RedisSSL && (c.RedisSSLCertfile == "") != (c.RedisSSLKeyfile == "") {
		return fmt.Errorf("config: redis_ssl_certfile and redis_ssl_keyfile must be set together")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config: max_retries must not be negative")
	}
	return nil
}

// OpenStore opens the configured backend: a process-local store, or a Redis
// store shared by every process pointed at the same database.
func (c StoreConfig) OpenStore(logger logging.Logger) (store.Store, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	if !c.UseRedis {
		return store.NewLocal(), nil
	}

	opts := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort),
		DB:       c.RedisDB,
		Username: c.RedisUsername,
		Password: c.RedisPassword,
	}
	if c.RedisSSL {
		tlsConfig, err := c.tlsConfig()
		if err != nil {
			return nil, err
		}
		opts.TLSConfig = tlsConfig
	}

	client := redis.NewClient(opts)
	return store.NewRedisStore(client, func(o *store.RedisOptions) {
		o.MaxRetries = c.MaxRetries
		o.Logger = logger
	}), nil
}

// tlsConfig assembles the TLS material named by the configuration.
func (c StoreConfig) tlsConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if c.RedisSSLCertfile != "" {
		cert, err := tls.LoadX509KeyPair(c.RedisSSLCertfile, c.RedisSSLKeyfile)
		if err != nil {
			return nil, fmt.Errorf("config: load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	if c.RedisSSLCACerts != "" {
		pem, err := os.ReadFile(c.RedisSSLCACerts)
		if err != nil {
			return nil, fmt.Errorf("config: read ca certificates: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("config: no ca certificates parsed from %s", c.RedisSSLCACerts)
		}
		tlsConfig.RootCAs = pool
	}
	return tlsConfig, nil
}
