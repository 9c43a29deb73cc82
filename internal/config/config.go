package config

import (
	"errors"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr       string   `env:"HTTP_ADDR" envDefault:":8080"`
	DBDriver       string   `env:"DB_DRIVER" envDefault:"postgres"`
	DatabaseURL    string   `env:"DATABASE_URL" envDefault:"host=localhost user=postgres password=postgres dbname=invoices port=5432 sslmode=disable"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	LogDevelopment bool     `env:"LOG_DEVELOPMENT" envDefault:"false"`
	CORSOrigins    []string `env:"CORS_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	KafkaBrokers   []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic     string   `env:"KAFKA_TOPIC" envDefault:"invoices"`
	SeedFile       string   `env:"SEED_FILE"`
	IDMaxAttempts  int      `env:"ID_MAX_ATTEMPTS" envDefault:"64"`
}

// Load reads envPath into the environment when it exists and parses the
// environment into a Config.
func Load(envPath string) (Config, error) {
	err := godotenv.Load(envPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	return env.ParseAs[Config]()
}
