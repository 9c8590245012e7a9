package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config supplies the defaults for the CLI flag surface. Values come from
// the environment (optionally a .env file); flags always win over these.
type Config struct {
	OutputDir      string
	OutputFilename string
	CommentTag     string
	Width          int
	WorkerCount    int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	return &Config{
		OutputDir:      getEnv("POTEXTRACT_OUTPUT_DIR", "locales"),
		OutputFilename: getEnv("POTEXTRACT_OUTPUT_FILENAME", "messages.pot"),
		CommentTag:     getEnv("POTEXTRACT_COMMENT_TAG", "Translators: "),
		Width:          getEnvInt("POTEXTRACT_WIDTH", 79),
		WorkerCount:    getEnvInt("WORKER_COUNT", 8),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
