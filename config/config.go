package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	Server       Server
	Mongo        Mongo
	Redis        Redis
	Auth         Auth
	RateLimit    RateLimit
	Pipeline     Pipeline
	Worker       Worker
	Reprocessor  Reprocessor
	Storage      Storage
	Verification Verification
	Logger       Logger
}

type Server struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	Environment    string        `env:"GO_ENV" envDefault:"production"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	PageMultiplier int           `env:"PAGE_MULTIPLIER" envDefault:"3"`
}

func (s Server) IsDevelopment() bool {
	return s.Environment == "development"
}

type Mongo struct {
	URI      string `env:"MONGODB_URI,notEmpty"`
	Database string `env:"MONGODB_DATABASE" envDefault:"mydb"`
}

type Redis struct {
	Address  string `env:"REDIS_ADDRESS" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type Auth struct {
	JWTSecret  string        `env:"JWT_SECRET,notEmpty"`
	TokenTTL   time.Duration `env:"JWT_TTL" envDefault:"72h"`
	CookieName string        `env:"AUTH_COOKIE_NAME" envDefault:"auth_token"`
}

type RateLimit struct {
	IssuePrefix  string `env:"REDIS_QUEUE_FOR_ISSUE_LIMIT" envDefault:"issue_limit"`
	IssuesPerDay int    `env:"ISSUES_PER_DAY" envDefault:"10"`
}

type Pipeline struct {
	RunTimeout      time.Duration `env:"PIPELINE_RUN_TIMEOUT" envDefault:"2m"`
	StageTimeout    time.Duration `env:"PIPELINE_STAGE_TIMEOUT" envDefault:"30s"`
	StageRate       float64       `env:"PIPELINE_STAGE_RATE" envDefault:"0"`
	StageBurst      int           `env:"PIPELINE_STAGE_BURST" envDefault:"1"`
	VisionLatency   time.Duration `env:"PIPELINE_VISION_LATENCY" envDefault:"2s"`
	AnalysisLatency time.Duration `env:"PIPELINE_ANALYSIS_LATENCY" envDefault:"3s"`
	TriageLatency   time.Duration `env:"PIPELINE_TRIAGE_LATENCY" envDefault:"2s"`
}

type Worker struct {
	Backend   string `env:"QUEUE_BACKEND" envDefault:"memory"`
	Workers   int    `env:"WORKER_COUNT" envDefault:"4"`
	QueueSize int    `env:"WORKER_QUEUE_SIZE" envDefault:"100"`
	QueueKey  string `env:"WORKER_QUEUE_KEY" envDefault:"pipeline:issues"`
}

type Reprocessor struct {
	Interval   time.Duration `env:"REPROCESS_INTERVAL" envDefault:"15m"`
	StaleAfter time.Duration `env:"REPROCESS_STALE_AFTER" envDefault:"1h"`
	BatchSize  int           `env:"REPROCESS_BATCH_SIZE" envDefault:"10"`
	ScanLimit  int           `env:"REPROCESS_SCAN_LIMIT" envDefault:"500"`
}

type Storage struct {
	Endpoint   string        `env:"STORAGE_ENDPOINT"`
	AccessKey  string        `env:"STORAGE_ACCESS_KEY"`
	SecretKey  string        `env:"STORAGE_SECRET_KEY"`
	Bucket     string        `env:"STORAGE_BUCKET" envDefault:"issues"`
	UseSSL     bool          `env:"STORAGE_USE_SSL" envDefault:"true"`
	PublicURL  string        `env:"STORAGE_PUBLIC_URL"`
	PresignTTL time.Duration `env:"STORAGE_PRESIGN_TTL" envDefault:"168h"`
	MaxBytes   int64         `env:"STORAGE_MAX_BYTES" envDefault:"10485760"`
}

// Enabled reports whether an object store endpoint is configured.
func (s Storage) Enabled() bool {
	return s.Endpoint != ""
}

type Verification struct {
	CodeTTL     time.Duration `env:"VERIFY_CODE_TTL" envDefault:"10m"`
	MaxAttempts int           `env:"VERIFY_MAX_ATTEMPTS" envDefault:"5"`
}

type Logger struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads .env when present and parses the environment into a Config.
func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
