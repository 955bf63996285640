// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	configPath = pflag.String("config", "", "Path to a config.toml file")

	validEnvs        = []string{"development", "production"}
	validLogLevels   = []string{"debug", "info", "warn", "error", "fatal"}
	validRevocations = []string{"memory", "redis"}
	validHashers     = []string{"bcrypt", "argon2id"}
)

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	if *configPath != "" {
		v.SetConfigFile(*configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvs()
	setDefaults()

	if err := v.ReadInConfig(); err != nil {
		var notFound v.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || *configPath != "" {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	if v.GetString("jwt.secret") == "" {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	return Validate()
}

func bindEnvs() {
	v.BindEnv("app.env", "app_env")
	v.BindEnv("app.log_level", "app_log_level")
	v.BindEnv("app.origin_frontend", "origin_frontend")

	v.BindEnv("host.port", "host_port", "port")
	v.BindEnv("host.ssl.enabled", "host_ssl_enabled")
	v.BindEnv("host.ssl.certificate_path", "host_ssl_certificate_path")
	v.BindEnv("host.ssl.certificate_key_path", "host_ssl_certificate_key_path")
	v.BindEnv("host.cors_origins", "host_cors")

	v.BindEnv("jwt.secret", "jwt_secret", "secret")
	v.BindEnv("jwt.verification_ttl", "jwt_verification_ttl")
	v.BindEnv("jwt.reset_ttl", "jwt_reset_ttl")
	v.BindEnv("jwt.session_ttl", "jwt_session_ttl")

	v.BindEnv("store.backend", "store_backend")
	v.BindEnv("store.dsn", "store_dsn", "database_url")

	v.BindEnv("mongo.uri", "mongo_uri", "db_uri")
	v.BindEnv("mongo.database", "mongo_database")

	v.BindEnv("session.revocation", "session_revocation")
	v.BindEnv("redis.addr", "redis_addr")
	v.BindEnv("redis.password", "redis_password")
	v.BindEnv("redis.db", "redis_db")

	v.BindEnv("notifier.type", "notifier_type")
	v.BindEnv("mail.host", "mail_host")
	v.BindEnv("mail.port", "mail_port")
	v.BindEnv("mail.username", "mail_username", "email_user")
	v.BindEnv("mail.password", "mail_password", "email_pass")
	v.BindEnv("mail.from", "mail_from")
	v.BindEnv("mail.ssl", "mail_ssl")

	v.BindEnv("amqp.url", "amqp_url")
	v.BindEnv("amqp.queue", "amqp_queue")

	v.BindEnv("security.hasher", "security_hasher")
	v.BindEnv("security.bcrypt_cost", "security_bcrypt_cost")
	v.BindEnv("security.rate_limit", "security_rate_limit")
	v.BindEnv("security.probe_rate_limit", "security_probe_rate_limit")
	v.BindEnv("security.conceal_accounts", "security_conceal_accounts")

	v.BindEnv("tasks.file", "tasks_file")
	v.BindEnv("cleanup.interval", "cleanup_interval")
}

func setDefaults() {
	v.SetDefault("app.env", "production")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.origin_frontend", "http://localhost:3000")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.ssl.enabled", false)
	v.SetDefault("host.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("jwt.verification_ttl", "1h")
	v.SetDefault("jwt.reset_ttl", "1h")
	v.SetDefault("jwt.session_ttl", "720h")

	v.SetDefault("store.backend", "sqlite")
	v.SetDefault("store.dsn", "database.db")

	v.SetDefault("mongo.database", "life_organizer")

	v.SetDefault("session.revocation", "memory")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("notifier.type", "log")
	v.SetDefault("mail.host", "smtp.gmail.com")
	v.SetDefault("mail.port", 465)
	v.SetDefault("mail.ssl", true)

	v.SetDefault("amqp.queue", "mail")

	v.SetDefault("security.hasher", "bcrypt")
	v.SetDefault("security.bcrypt_cost", 12)
	v.SetDefault("security.rate_limit", 10)
	v.SetDefault("security.probe_rate_limit", 1)
	v.SetDefault("security.conceal_accounts", false)

	v.SetDefault("tasks.file", "tugas.json")
	v.SetDefault("cleanup.interval", "24h")
}

// Validate checks the loaded values. It is split from Setup so it can run
// against values set directly on viper.
func Validate() error {
	if !slices.Contains(validEnvs, v.GetString("app.env")) {
		return errors.New("invalid app.env provided")
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetBool("host.ssl.enabled") {
		if v.GetString("host.ssl.certificate_path") == "" {
			return errors.New("no ssl certificate path provided")
		}

		if v.GetString("host.ssl.certificate_key_path") == "" {
			return errors.New("no ssl certificate key path provided")
		}
	}

	if v.GetString("jwt.secret") == "" {
		return errors.New("jwt.secret can't be empty")
	}

	for _, k := range []string{"jwt.verification_ttl", "jwt.reset_ttl", "jwt.session_ttl", "cleanup.interval"} {
		if v.GetDuration(k) <= 0 {
			return fmt.Errorf("%s must be a positive duration", k)
		}
	}

	switch backend := v.GetString("store.backend"); backend {
	case "sqlite", "gorm-postgres", "postgres":
		if v.GetString("store.dsn") == "" {
			return fmt.Errorf("store.dsn can't be empty for the %s backend", backend)
		}
	case "mongo":
		if v.GetString("mongo.uri") == "" {
			return errors.New("mongo.uri can't be empty")
		}
		if v.GetString("mongo.database") == "" {
			return errors.New("mongo.database can't be empty")
		}
	case "memory":
	default:
		return errors.New("invalid store backend provided")
	}

	if !slices.Contains(validRevocations, v.GetString("session.revocation")) {
		return errors.New("invalid session.revocation provided")
	}

	if v.GetString("session.revocation") == "redis" && v.GetString("redis.addr") == "" {
		return errors.New("redis.addr can't be empty")
	}

	switch v.GetString("notifier.type") {
	case "smtp":
		if v.GetString("mail.host") == "" {
			return errors.New("mail.host can't be empty")
		}
		if v.GetInt("mail.port") <= 0 {
			return errors.New("invalid mail.port provided")
		}
	case "amqp":
		if v.GetString("amqp.url") == "" {
			return errors.New("amqp.url can't be empty")
		}
		if v.GetString("amqp.queue") == "" {
			return errors.New("amqp.queue can't be empty")
		}
	case "log":
	default:
		return errors.New("invalid notifier type provided")
	}

	if !slices.Contains(validHashers, v.GetString("security.hasher")) {
		return errors.New("invalid security.hasher provided")
	}

	if c := v.GetInt("security.bcrypt_cost"); c < 4 || c > 31 {
		return errors.New("security.bcrypt_cost must be between 4 and 31")
	}

	if v.GetFloat64("security.rate_limit") <= 0 {
		return errors.New("security.rate_limit must be bigger than 0")
	}

	if v.GetFloat64("security.probe_rate_limit") <= 0 {
		return errors.New("security.probe_rate_limit must be bigger than 0")
	}

	if v.GetString("tasks.file") == "" {
		return errors.New("tasks.file can't be empty")
	}

	return nil
}
