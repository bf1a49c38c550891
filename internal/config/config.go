package config

import (
	"os"
	"strconv"
)

type Config struct {
	Env        string
	Port       int
	RepoDriver string // mongo, postgres or memory

	MongoURI    string
	MongoDB     string
	PostgresDSN string
	RedisAddr   string // empty disables the catalog cache

	JWTSecret string

	SMTPAddr     string // empty logs mail instead of sending
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	AssetsDir     string
	PublicBaseURL string
	CORSOrigin    string

	LogJSON bool
}

func Default() Config {
	return Config{
		Env:        "dev",
		Port:       4000,
		RepoDriver: "mongo",
		MongoURI:   "mongodb://127.0.0.1:27017",
		MongoDB:    "bakery",
		SMTPFrom:   "no-reply@bakery.local",
		AssetsDir:  "./assets",
		CORSOrigin: "*",
		LogJSON:    true,
	}
}

func EnvDefaults() Config {
	return fromEnv(Default())
}

func fromEnv(c Config) Config {
	if v := os.Getenv("BAKERY_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("BAKERY_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("BAKERY_REPO_DRIVER"); v != "" {
		c.RepoDriver = v
	}
	if v := os.Getenv("BAKERY_MONGO_URI"); v != "" {
		c.MongoURI = v
	}
	if v := os.Getenv("BAKERY_MONGO_DB"); v != "" {
		c.MongoDB = v
	}
	if v := os.Getenv("BAKERY_POSTGRES_DSN"); v != "" {
		c.PostgresDSN = v
	}
	if v := os.Getenv("BAKERY_REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("BAKERY_JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("BAKERY_SMTP_ADDR"); v != "" {
		c.SMTPAddr = v
	}
	if v := os.Getenv("BAKERY_SMTP_FROM"); v != "" {
		c.SMTPFrom = v
	}
	if v := os.Getenv("BAKERY_SMTP_USERNAME"); v != "" {
		c.SMTPUsername = v
	}
	if v := os.Getenv("BAKERY_SMTP_PASSWORD"); v != "" {
		c.SMTPPassword = v
	}
	if v := os.Getenv("BAKERY_ASSETS_DIR"); v != "" {
		c.AssetsDir = v
	}
	if v := os.Getenv("BAKERY_PUBLIC_BASE_URL"); v != "" {
		c.PublicBaseURL = v
	}
	if v := os.Getenv("BAKERY_CORS_ORIGIN"); v != "" {
		c.CORSOrigin = v
	}
	if v := os.Getenv("BAKERY_LOG_JSON"); v != "" {
		switch v {
		case "1", "true", "TRUE":
			c.LogJSON = true
		case "0", "false", "FALSE":
			c.LogJSON = false
		}
	}
	return c
}
