package config

import "github.com/kelseyhightower/envconfig"

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Version  string `envconfig:"VERSION" default:"dev"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	JWTSecret           string `envconfig:"JWT_SECRET" required:"true"`
	AccessTokenTTLMins  int    `envconfig:"JWT_ACCESS_TTL_MINUTES" default:"30"`
	RefreshTokenTTLDays int    `envconfig:"JWT_REFRESH_TTL_DAYS" default:"7"`
	BcryptCost          int    `envconfig:"BCRYPT_COST" default:"12"`

	CloudinaryCloudName string `envconfig:"CLOUDINARY_CLOUD_NAME" default:""`
	CloudinaryAPIKey    string `envconfig:"CLOUDINARY_API_KEY" default:""`
	CloudinaryAPISecret string `envconfig:"CLOUDINARY_API_SECRET" default:""`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UploadsEnabled reports whether the Cloudinary credentials required by the
// upload subsystem are present.
func (c *Config) UploadsEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}
