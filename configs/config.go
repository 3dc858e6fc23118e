// config.go - configuration loaded from environment variables.

package configs

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-driven setting the service needs.
type Config struct {
	// Keyed store (Redis)
	RedisHost string
	RedisPort string
	RedisDB   int

	// Object store
	BaseURL     string
	StorageRoot string

	// Quota
	IPHashSecret     string
	WeeklyImageLimit int

	// Batch
	MaxBatchSize int

	// Job store TTLs
	DataTTL   time.Duration
	UploadTTL time.Duration

	// Detection backend
	DetectionProvider   string
	DetectionEndpoint   string
	DetectionTimeout    time.Duration
	DetectionMaxRetries int

	// Translation backend
	TranslationProvider string
	GeminiAPIKey        string
	GeminiModel         string

	// Inpainting backend
	InpaintingProvider      string
	IOPaintSpaceURL         string
	IOPaintTimeout          time.Duration
	BubbleFillPaddingRatio  float64

	// Worker
	WorkerSoftTimeout   time.Duration
	WorkerHardTimeout   time.Duration
	QueuePollInterval   time.Duration

	// Archive (optional)
	ArchiveMongoURI string
	ArchiveMongoDB  string

	// Text rendering
	FontPath string

	// HTTP surface
	CORSAllowOrigins string
	HTTPPort         string
}

// LoadConfig loads configuration from the environment (and .env, if present)
// into a Config value. Absence of .env is not an error — it's expected in
// production, where real environment variables are supplied directly.
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg := Config{
		RedisHost: getEnv("REDIS_HOST", "localhost"),
		RedisPort: getEnv("REDIS_PORT", "6379"),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		StorageRoot: getEnv("STORAGE_ROOT", "./data"),

		IPHashSecret:     getEnv("IP_HASH_SECRET", "change-me"),
		WeeklyImageLimit: getEnvInt("WEEKLY_IMAGE_LIMIT", 20),

		MaxBatchSize: getEnvInt("MAX_BATCH_SIZE", 10),

		DataTTL:   time.Duration(getEnvInt("DATA_TTL_SECONDS", 7200)) * time.Second,
		UploadTTL: time.Duration(getEnvInt("UPLOAD_TTL_SECONDS", 86400)) * time.Second,

		DetectionProvider:   getEnv("DETECTION_PROVIDER", "hf_space"),
		DetectionEndpoint:   getEnv("DETECTION_ENDPOINT", ""),
		DetectionTimeout:    time.Duration(getEnvInt("DETECTION_TIMEOUT_SECONDS", 60)) * time.Second,
		DetectionMaxRetries: getEnvInt("DETECTION_MAX_RETRIES", 3),

		TranslationProvider: getEnv("TRANSLATION_PROVIDER", "gemini"),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		InpaintingProvider:     getEnv("INPAINTING_PROVIDER", "routed"),
		IOPaintSpaceURL:        getEnv("IOPAINT_SPACE_URL", ""),
		IOPaintTimeout:         time.Duration(getEnvInt("IOPAINT_TIMEOUT_SECONDS", 120)) * time.Second,
		BubbleFillPaddingRatio: getEnvFloat("BUBBLE_FILL_PADDING_RATIO", 0.2),

		WorkerSoftTimeout: time.Duration(getEnvInt("WORKER_SOFT_TIMEOUT_SECONDS", 300)) * time.Second,
		WorkerHardTimeout: time.Duration(getEnvInt("WORKER_HARD_TIMEOUT_SECONDS", 360)) * time.Second,
		QueuePollInterval: time.Duration(getEnvInt("QUEUE_POLL_INTERVAL_MS", 500)) * time.Millisecond,

		ArchiveMongoURI: getEnv("ARCHIVE_MONGO_URI", ""),
		ArchiveMongoDB:  getEnv("ARCHIVE_MONGO_DATABASE", "toonslate_archive"),

		// No font ships in the repository; FONT_PATH should point at a TTF/TTC
		// installed in the deployment image. The fallback matches a path DejaVu
		// Sans is installed at on most Debian-based container images.
		FontPath: getEnv("FONT_PATH", "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"),

		CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
	}

	log.Println("configuration loaded")
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
