package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	// one database per credential partition
	AdminDBURL  string
	StaffDBURL  string
	MemberDBURL string

	SessionSecret string

	// seed admin, created at startup if missing
	AdminEmail    string
	AdminPassword string
	AdminName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	OTLPEndpoint   string
	AllowedOrigins []string
}

func Load() Config {
	// a missing .env is fine, real env wins either way
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")
	port := getEnvInt("PORT", 8080)

	return Config{
		Env:  env,
		Port: port,

		AdminDBURL:  buildDBURL("ADMIN", "gymhub_admin"),
		StaffDBURL:  buildDBURL("STAFF", "gymhub_staff"),
		MemberDBURL: buildDBURL("MEMBER", "gymhub_members"),

		SessionSecret: getEnv("SESSION_SECRET", "dev-only-secret-change-me"),

		AdminEmail:    getEnv("SEED_ADMIN_EMAIL", ""),
		AdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
		AdminName:     getEnv("SEED_ADMIN_NAME", "Administrator"),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		SMTPHost: getEnv("SMTP_HOST", ""),
		SMTPPort: getEnvInt("SMTP_PORT", 587),
		SMTPUser: getEnv("SMTP_USER", ""),
		SMTPPass: getEnv("SMTP_PASS", ""),
		SMTPFrom: getEnv("SMTP_FROM", "no-reply@saarfitness.local"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "gymhub-photos"),
		MinioUseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",

		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", ""),
		AllowedOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),
	}
}

// buildDBURL assembles a partition connection string from DB_<PARTITION>_* vars,
// falling back to shared DB_* host settings with a per-partition database name.
func buildDBURL(partition, defaultName string) string {
	if url := os.Getenv("DB_" + partition + "_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "gymhub")
	pass := getEnv("DB_PASSWORD", "gymhub")
	name := getEnv("DB_"+partition+"_NAME", defaultName)
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
