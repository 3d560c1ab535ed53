package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppEnv        string
	HTTPAddr      string
	RedisAddr     string
	RedisPassword string
	DataDir       string

	// Frontend session bootstrap. Both tokens are consumed once by the
	// session provider; the run aborts if authentication fails.
	FrontendBaseURL string
	APIToken        string
	AccessToken     string

	// Entity job source and artifact workflow locations.
	JobsFile         string
	DownloadsDir     string
	MemosDir         string
	ConfigStorePaths []string

	// Navigation tuning.
	NavTimeoutMs    int
	SettleTimeoutMs int

	// Optional audit snapshot of each extracted page next to its record.
	SavePageSnapshots bool

	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseBucket     string

	TaskMaxRetries int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func Load() Config {
	cfg := Config{
		AppEnv:        getenv("APP_ENV", "development"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8082"),
		RedisAddr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		DataDir:       getenv("DATA_DIR", "./data"),

		FrontendBaseURL: os.Getenv("FRONTEND_BASE_URL"),
		APIToken:        os.Getenv("FRONTEND_API_TOKEN"),
		AccessToken:     os.Getenv("FRONTEND_ACCESS_TOKEN"),

		JobsFile:         getenv("JOBS_FILE", "config.json"),
		DownloadsDir:     getenv("DOWNLOADS_DIR", "./downloads"),
		MemosDir:         getenv("MEMOS_DIR", "./data/ai_outputs"),
		ConfigStorePaths: getenvList("CONFIG_STORE_PATHS", []string{"config.json"}),

		NavTimeoutMs:    getenvInt("NAV_TIMEOUT_MS", 30000),
		SettleTimeoutMs: getenvInt("SETTLE_TIMEOUT_MS", 5000),

		SavePageSnapshots: getenvBool("SAVE_PAGE_SNAPSHOTS", false),

		SupabaseURL:        os.Getenv("NEXT_PUBLIC_SUPABASE_URL"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseBucket:     getenv("SUPABASE_STORAGE_BUCKET", "verification-records"),

		TaskMaxRetries: getenvInt("TASK_MAX_RETRIES", 3),
	}
	if cfg.RedisAddr == "" {
		panic(fmt.Errorf("REDIS_ADDR is required"))
	}
	return cfg
}
