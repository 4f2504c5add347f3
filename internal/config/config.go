package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
	// PublicBaseURL is the externally visible origin used when composing
	// share URLs (<origin>/download/<shareId>).
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// AuthConfig covers both the identity provider client and the session
// tokens this service issues after a successful sign-in.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	JWTExpiration time.Duration `mapstructure:"jwt_expiration"`

	GoogleClientID     string `mapstructure:"google_client_id"`
	GoogleClientSecret string `mapstructure:"google_client_secret"`
	// RedirectURL is the callback registered with the provider for the
	// redirect-based sign-in flow.
	RedirectURL string `mapstructure:"redirect_url"`
}

type UploadConfig struct {
	// MaxBytes caps a single upload. Defaults to 200 MiB.
	MaxBytes int64 `mapstructure:"max_bytes"`
	// URLExpiry bounds the presigned download URL minted at upload time.
	URLExpiry time.Duration `mapstructure:"url_expiry"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	// Nested keys map to env vars, e.g. auth.jwt_secret -> AUTH_JWT_SECRET.
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.public_base_url", "http://localhost:8080")
	viper.SetDefault("database.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "sharebox")
	viper.SetDefault("s3.use_ssl", true)
	viper.SetDefault("auth.jwt_expiration", "24h")
	viper.SetDefault("upload.max_bytes", 200<<20)
	viper.SetDefault("upload.url_expiry", "168h")
	viper.SetDefault("log.development", false)

	err = viper.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		// No config file is fine; env vars and defaults may cover everything.
		err = nil
	} else if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil
}

// MissingKeys reports which credential keys are absent. The application
// fails closed on these rather than fabricating defaults.
func (c Config) MissingKeys() []string {
	var missing []string
	check := func(key, value string) {
		if value == "" {
			missing = append(missing, key)
		}
	}
	check("auth.jwt_secret", c.Auth.JWTSecret)
	check("auth.google_client_id", c.Auth.GoogleClientID)
	check("auth.google_client_secret", c.Auth.GoogleClientSecret)
	check("auth.redirect_url", c.Auth.RedirectURL)
	check("s3.access_key_id", c.S3.AccessKeyID)
	check("s3.secret_access_key", c.S3.SecretAccessKey)
	check("s3.bucket_name", c.S3.BucketName)
	check("s3.region", c.S3.Region)
	return missing
}

// Validate returns an error naming every missing credential key.
func (c Config) Validate() error {
	if missing := c.MissingKeys(); len(missing) > 0 {
		return fmt.Errorf("missing required configuration keys: %s", strings.Join(missing, ", "))
	}
	return nil
}
