package config

import (
	"fmt"
	"log"
	"os"

	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/bianchibruno/comp0034-fyp/internal/models"
)

type Config struct {
	ADDRESS        string
	DB_HOST        string
	DB_PORT        string
	DB_USER        string
	DB_PASSWORD    string
	DB_NAME        string
	DB_PATH        string
	ES_URL         string
	ES_USER        string
	ES_PASSWORD    string
	JWT_SECRET     string
	KAFKA_ADDRESS  string
	DATASET_PATH   string
	LOG_LEVEL      string
	ADMIN_EMAIL    string
	ADMIN_PASSWORD string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		ADDRESS:        os.Getenv("ADDRESS"),
		DB_HOST:        os.Getenv("DB_HOST"),
		DB_PORT:        os.Getenv("DB_PORT"),
		DB_USER:        os.Getenv("DB_USER"),
		DB_PASSWORD:    os.Getenv("DB_PASSWORD"),
		DB_NAME:        os.Getenv("DB_NAME"),
		DB_PATH:        os.Getenv("DB_PATH"),
		ES_URL:         os.Getenv("ES_URL"),
		ES_USER:        os.Getenv("ES_USER"),
		ES_PASSWORD:    os.Getenv("ES_PASSWORD"),
		JWT_SECRET:     os.Getenv("JWT_SECRET"),
		KAFKA_ADDRESS:  os.Getenv("KAFKA_ADDRESS"),
		DATASET_PATH:   os.Getenv("DATASET_PATH"),
		LOG_LEVEL:      os.Getenv("LOG_LEVEL"),
		ADMIN_EMAIL:    os.Getenv("ADMIN_EMAIL"),
		ADMIN_PASSWORD: os.Getenv("ADMIN_PASSWORD"),
	}

	if config.ADDRESS == "" {
		config.ADDRESS = ":8080"
	}
	if config.DB_PATH == "" {
		config.DB_PATH = "mydatabase.db"
	}
	if config.DATASET_PATH == "" {
		config.DATASET_PATH = "data/dataset_prepared.csv"
	}
	if config.JWT_SECRET == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	return config, nil
}

// InitDB opens postgres when DB_HOST is set, a local sqlite file otherwise.
// TranslateError makes duplicate-key violations surface as
// gorm.ErrDuplicatedKey on both drivers.
func InitDB(configuration *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if configuration.DB_HOST != "" {
		dsn := fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=disable",
			configuration.DB_USER, configuration.DB_PASSWORD,
			configuration.DB_HOST, configuration.DB_PORT, configuration.DB_NAME,
		)
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(configuration.DB_PATH)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to the database: %w", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Request{}); err != nil {
		return nil, fmt.Errorf("cannot run migrations: %w", err)
	}
	return db, nil
}
