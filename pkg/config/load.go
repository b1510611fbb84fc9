package config

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load reads configuration from the environment. When envFile is
// non-empty and present it is loaded first; a missing file is not an
// error so production can rely on real environment variables.
func Load(envFile string, logger *slog.Logger) (*App, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			logger.Warn("no .env file found, using system environment", "path", envFile)
		}
	}
	var cfg App
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
