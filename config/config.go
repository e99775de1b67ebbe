// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	configFile = pflag.String("config", "", "Path to the config file, defaults to ./config.toml")

	validLogLevels    = []string{"debug", "info", "warn", "error", "fatal"}
	validDBDrivers    = []string{"sqlite", "postgres"}
	validStorageTypes = []string{"none", "local", "s3"}
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

	return Load(*configFile)
}

// Load reads the config file at path (or config.toml in the working
// directory when path is empty), applies env overrides and defaults and
// validates the result. A missing config file is fine, everything can come
// from the environment.
func Load(path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()

	bindEnvs()
	setDefaults()

	if err := v.ReadInConfig(); err != nil {
		var notFound v.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	return validate()
}

func bindEnvs() {
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.domain", "host_domain")
	v.BindEnv("host.cors", "host_cors")

	v.BindEnv("host.ssl.enabled", "host_ssl_enabled")
	v.BindEnv("host.ssl.certificate_path", "host_ssl_certificate_path")
	v.BindEnv("host.ssl.certificate_key_path", "host_ssl_certificate_key_path")

	v.BindEnv("db.driver", "db_driver")
	v.BindEnv("db.dsn", "db_dsn")

	v.BindEnv("jwt.secret", "jwt_secret")
	v.BindEnv("jwt.access_ttl", "jwt_access_ttl")
	v.BindEnv("jwt.refresh_ttl", "jwt_refresh_ttl")

	v.BindEnv("otp.expiry_minutes", "otp_expiry_minutes")
	v.BindEnv("otp.cooldown_seconds", "otp_cooldown_seconds")
	v.BindEnv("otp.cleanup_schedule", "otp_cleanup_schedule")
	v.BindEnv("otp.retention_hours", "otp_retention_hours")

	v.BindEnv("mail.host", "mail_host")
	v.BindEnv("mail.port", "mail_port")
	v.BindEnv("mail.username", "mail_username")
	v.BindEnv("mail.password", "mail_password")
	v.BindEnv("mail.sender", "mail_sender_address")
	v.BindEnv("mail.workers", "mail_workers")
	v.BindEnv("mail.queue_size", "mail_queue_size")

	v.BindEnv("redis.addr", "redis_addr")
	v.BindEnv("redis.password", "redis_password")
	v.BindEnv("redis.db", "redis_db")

	v.BindEnv("storage.type", "storage_type")
	v.BindEnv("storage.local_path", "storage_local_path")

	v.BindEnv("s3.bucket", "s3_bucket")
	v.BindEnv("s3.region", "s3_region")
	v.BindEnv("s3.endpoint", "s3_endpoint")
	v.BindEnv("s3.access_key_id", "s3_access_key_id")
	v.BindEnv("s3.secret_access_key", "s3_secret_access_key")
	v.BindEnv("s3.public_url", "s3_public_url")

	v.BindEnv("cloudflare.account_id", "cloudflare_account_id")
	v.BindEnv("cloudflare.turnstile.enabled", "cloudflare_turnstile_enabled")
	v.BindEnv("cloudflare.turnstile.secret_token", "cloudflare_turnstile_secret_token")

	v.BindEnv("security.rate_limit", "security_rate_limit")

	v.BindEnv("upload.max_size", "upload_max_size")
}

func setDefaults() {
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost")
	v.SetDefault("host.cors", []string{"http://localhost:5173"})
	v.SetDefault("host.ssl.enabled", false)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "database.db")

	v.SetDefault("jwt.access_ttl", "60m")
	v.SetDefault("jwt.refresh_ttl", "168h")

	v.SetDefault("otp.expiry_minutes", 10)
	v.SetDefault("otp.cooldown_seconds", 60)
	v.SetDefault("otp.cleanup_schedule", "@every 24h")
	v.SetDefault("otp.retention_hours", 24)

	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.workers", 2)
	v.SetDefault("mail.queue_size", 64)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "media")

	v.SetDefault("cloudflare.turnstile.enabled", false)

	v.SetDefault("security.rate_limit", 10)

	v.SetDefault("upload.max_size", 5)
}

func validate() error {
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

	if !slices.Contains(validDBDrivers, v.GetString("db.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("db.dsn") == "" {
		return errors.New("no database dsn provided")
	}

	if v.GetString("jwt.secret") == "" {
		return fmt.Errorf("no jwt.secret set. Set it as an environment variable or in the config.toml file, here's a random one you can use:\n\n%s", genSecret())
	}

	if v.GetDuration("jwt.access_ttl") <= 0 || v.GetDuration("jwt.refresh_ttl") <= 0 {
		return errors.New("jwt token lifetimes must be bigger than 0")
	}

	if v.GetInt("otp.expiry_minutes") <= 0 {
		return errors.New("otp.expiry_minutes must be bigger than 0")
	}

	if v.GetInt("otp.cooldown_seconds") < 0 {
		return errors.New("otp.cooldown_seconds can't be negative")
	}

	if v.GetInt("otp.retention_hours") < 0 {
		return errors.New("otp.retention_hours can't be negative")
	}

	if v.GetString("mail.host") == "" {
		fmt.Println("[WARNING]: No mail.host set, password reset mails can't be delivered")
	}

	if v.GetInt("mail.workers") <= 0 {
		return errors.New("mail.workers must be bigger than 0")
	}

	switch v.GetString("storage.type") {
	case "s3":
		if v.GetString("s3.bucket") == "" {
			return errors.New("bucket can't be empty")
		}
		if v.GetString("s3.access_key_id") == "" {
			return errors.New("access key id can't be empty")
		}
		if v.GetString("s3.secret_access_key") == "" {
			return errors.New("secret access key can't be empty")
		}
		if v.GetString("s3.region") == "" && v.GetString("cloudflare.account_id") == "" {
			return errors.New("s3.region is required unless cloudflare.account_id is set")
		}
	case "local":
		if v.GetString("storage.local_path") == "" {
			return errors.New("storage.local_path can't be empty")
		}
	}

	if !slices.Contains(validStorageTypes, v.GetString("storage.type")) {
		return errors.New("invalid storage type provided")
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("max upload size must be bigger than 0")
	}

	if v.GetInt("security.rate_limit") <= 0 {
		return errors.New("security.rate_limit must be bigger than 0")
	}

	if !v.GetBool("cloudflare.turnstile.enabled") {
		fmt.Println("[WARNING]: Cloudflare's turnstile is disabled. Some public endpoints won't be guarded against bots")
	} else {
		if v.GetString("cloudflare.turnstile.secret_token") == "" {
			return errors.New("turnstile secret token is missing")
		}
	}

	v.Set("upload.max_size", v.GetInt64("upload.max_size")<<20)
	return nil
}
