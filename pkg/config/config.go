package config

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// New loads the configuration. Values are read from an optional YAML file
// (GATHERLY_CONFIG, defaulting to config.yml if present) and every value can be
// overridden through an environment variable. Secrets only come from the
// environment.
func New() (Config, error) {
	var cfg Config

	path := os.Getenv("GATHERLY_CONFIG")
	if path == "" {
		if _, err := os.Stat("config.yml"); err == nil {
			path = "config.yml"
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %q: %v", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %q: %v", path, err)
		}
	}

	overrideString(&cfg.Hostname, "HOSTNAME")
	overrideString(&cfg.BasePath, "BASE_PATH")
	overrideString(&cfg.UIURL, "UI_URL")
	overrideString(&cfg.ServerPort, "SERVER_PORT")
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	overrideString(&cfg.Postgresql.Host, "DATABASE_HOST")
	overrideString(&cfg.Postgresql.Username, "DATABASE_USERNAME")
	overrideString(&cfg.Postgresql.Password, "DATABASE_PASSWORD")
	overrideString(&cfg.Postgresql.DatabaseName, "DATABASE_NAME")

	overrideString(&cfg.Redis.Host, "REDIS_HOST")

	overrideString(&cfg.RabbitMq.Host, "RABBITMQ_HOST")
	overrideString(&cfg.RabbitMq.Username, "RABBITMQ_USERNAME")
	overrideString(&cfg.RabbitMq.Password, "RABBITMQ_PASSWORD")

	overrideString(&cfg.Jaeger.CollectorUrl, "JAEGER_COLLECTOR_URL")

	overrideString(&cfg.SMTP.Host, "SMTP_HOST")
	overrideString(&cfg.SMTP.Username, "SMTP_USERNAME")
	overrideString(&cfg.SMTP.Password, "SMTP_PASSWORD")

	cfg.Authentication.RefreshTokenSecretKey = os.Getenv("REFRESH_TOKEN_SECRET_KEY")

	err := errors.Join(
		overrideInt(&cfg.Postgresql.Port, "DATABASE_PORT"),
		overrideInt(&cfg.Redis.Port, "REDIS_PORT"),
		overrideInt(&cfg.RabbitMq.Port, "RABBITMQ_PORT"),
		overrideInt(&cfg.SMTP.Port, "SMTP_PORT"),
		overrideInt(&cfg.Authentication.AccessTokenExpirationSeconds, "ACCESS_TOKEN_EXPIRATION_SECONDS"),
		overrideInt(&cfg.Authentication.RefreshTokenExpirationSeconds, "REFRESH_TOKEN_EXPIRATION_SECONDS"),
		overrideInt(&cfg.Authentication.RefreshTokenRememberMeExpirationSeconds, "REFRESH_TOKEN_REMEMBER_ME_EXPIRATION_SECONDS"),
	)
	if err != nil {
		return Config{}, err
	}

	keyPem := os.Getenv("PRIVATE_KEY")
	if keyPem != "" {
		key, err := parsePrivateKey([]byte(keyPem))
		if err != nil {
			return Config{}, err
		}
		cfg.Authentication.Keys.PrivateKey = key
		cfg.Authentication.Keys.PublicKey = &key.PublicKey
	}

	return cfg, nil
}

type Config struct {
	Hostname       string         `yaml:"hostname"`
	BasePath       string         `yaml:"basePath"`
	UIURL          string         `yaml:"uiUrl"`
	ServerPort     string         `yaml:"serverPort"`
	Postgresql     Postgresql     `yaml:"postgresql"`
	Redis          Redis          `yaml:"redis"`
	RabbitMq       RabbitMq       `yaml:"rabbitmq"`
	Jaeger         Jaeger         `yaml:"jaeger"`
	SMTP           SMTP           `yaml:"smtp"`
	Authentication Authentication `yaml:"authentication"`
}

type Postgresql struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Username     string `yaml:"username"`
	Password     string `yaml:"-"`
	DatabaseName string `yaml:"databaseName"`
}

type Redis struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type RabbitMq struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"-"`
}

func (r RabbitMq) GetUrl() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", r.Username, r.Password, r.Host, r.Port)
}

type Jaeger struct {
	CollectorUrl string `yaml:"collectorUrl"`
}

type SMTP struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"-"`
}

type Authentication struct {
	RefreshTokenSecretKey                   string `yaml:"-"`
	AccessTokenExpirationSeconds            int    `yaml:"accessTokenExpirationSeconds"`
	RefreshTokenExpirationSeconds           int    `yaml:"refreshTokenExpirationSeconds"`
	RefreshTokenRememberMeExpirationSeconds int    `yaml:"refreshTokenRememberMeExpirationSeconds"`
	Keys                                    Keys   `yaml:"-"`
}

type Keys struct {
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey
}

func overrideString(target *string, key string) {
	if value, exists := os.LookupEnv(key); exists {
		*target = value
	}
}

func overrideInt(target *int, key string) error {
	value, exists := os.LookupEnv(key)
	if !exists {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %v", key, err)
	}
	*target = parsed
	return nil
}

func parsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to decode PEM block containing private key")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %v", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not an RSA key")
	}
	return key, nil
}
