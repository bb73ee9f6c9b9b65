package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort       string
	AppMode       string
	DBHost        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBPort        string
	JWTSecret     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MediaRegion   string
	MediaBucket   string
	MediaAccess   string
	MediaSecret   string
	MediaEndpoint string
	MediaBaseURL  string
	MediaTTLMin   int
	MsgRateLimit  int
	MsgRateWindow int
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:       getEnv("APP_PORT", "8080"),
		AppMode:       getEnv("APP_MODE", "debug"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "postgres"),
		DBName:        getEnv("DB_NAME", "roamly_chat"),
		DBPort:        getEnv("DB_PORT", "5432"),
		JWTSecret:     getEnv("JWT_SECRET", "change-me"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		MediaRegion:   getEnv("MEDIA_S3_REGION", ""),
		MediaBucket:   getEnv("MEDIA_S3_BUCKET", ""),
		MediaAccess:   getEnv("MEDIA_S3_ACCESS_KEY", ""),
		MediaSecret:   getEnv("MEDIA_S3_SECRET_KEY", ""),
		MediaEndpoint: getEnv("MEDIA_S3_ENDPOINT", ""),
		MediaBaseURL:  getEnv("MEDIA_PUBLIC_BASE_URL", ""),
		MediaTTLMin:   getEnvAsInt("MEDIA_PRESIGN_TTL_MIN", 15),
		MsgRateLimit:  getEnvAsInt("MSG_RATE_LIMIT", 60),
		MsgRateWindow: getEnvAsInt("MSG_RATE_WINDOW_SEC", 60),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
