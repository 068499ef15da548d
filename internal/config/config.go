// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/joho/godotenv"

	"github.com/abhisek/codequiz/internal/quiz"
)

// Config holds every setting of the quiz service except the LLM provider,
// which llm.ConfigFromEnv reads.
type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Quiz      QuizConfig
	Retrieval RetrievalConfig
	RabbitMQ  RabbitMQConfig
	Consul    ConsulConfig
	Reaper    ReaperConfig
}

type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	Prefix       string
	CompletedTTL time.Duration
	DialTimeout  time.Duration
}

type QuizConfig struct {
	DefaultLanguage    string
	GenerationTimeout  time.Duration
	RetrievalTimeout   time.Duration
	RetrievalTopK      int
	RetrievalThreshold float64
	ContextChars       int
}

type RetrievalConfig struct {
	// MongoURI enables reference-material retrieval when set.
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	MongoTimeout    time.Duration

	EmbeddingAPIKey  string
	EmbeddingBaseURL string
	EmbeddingModel   string
}

// Enabled reports whether retrieval is configured.
func (r RetrievalConfig) Enabled() bool {
	return r.MongoURI != ""
}

type RabbitMQConfig struct {
	// URI enables event publishing when set.
	URI      string
	Exchange string
}

type ConsulConfig struct {
	// Address enables service registration when set.
	Address        string
	ServiceName    string
	ServiceID      string
	ServiceAddress string
}

type ReaperConfig struct {
	SweepInterval  time.Duration
	ReportHour     int
	AuditRetention time.Duration
}

// LoadEnvFile loads variables from path into the environment without
// overriding ones already set. A missing default file is not an error.
func LoadEnvFile(path string, required bool) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			glog.V(1).Infof("no %s file, using environment only", path)
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	glog.V(1).Infof("loaded environment from %s", path)
	return nil
}

// Load reads the configuration from the environment.
func Load() *Config {
	hostname, _ := os.Hostname()
	serviceName := getEnv("QUIZ_SERVICE_NAME", "codequiz")

	return &Config{
		Server: ServerConfig{
			Addr:            getEnv("QUIZ_HTTP_ADDR", ":8080"),
			ReadTimeout:     getEnvAsDuration("QUIZ_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("QUIZ_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("QUIZ_SHUTDOWN_TIMEOUT", 10*time.Second),
			CORSOrigins:     getEnvAsList("QUIZ_CORS_ORIGINS", []string{"*"}),
		},
		Redis: RedisConfig{
			Addr:         getEnv("QUIZ_REDIS_ADDR", "localhost:6379"),
			Password:     getEnv("QUIZ_REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("QUIZ_REDIS_DB", 0),
			Prefix:       getEnv("QUIZ_SESSION_PREFIX", "quiz:session:"),
			CompletedTTL: getEnvAsDuration("QUIZ_COMPLETED_TTL", 2*time.Hour),
			DialTimeout:  getEnvAsDuration("QUIZ_REDIS_DIAL_TIMEOUT", 5*time.Second),
		},
		Quiz: QuizConfig{
			DefaultLanguage:    quiz.NormalizeLanguage(getEnv("QUIZ_DEFAULT_LANGUAGE", quiz.DefaultLanguage), quiz.DefaultLanguage),
			GenerationTimeout:  getEnvAsDuration("QUIZ_GENERATION_TIMEOUT", 20*time.Second),
			RetrievalTimeout:   getEnvAsDuration("QUIZ_RETRIEVAL_TIMEOUT", 5*time.Second),
			RetrievalTopK:      getEnvAsInt("QUIZ_RETRIEVAL_TOP_K", 2),
			RetrievalThreshold: getEnvAsFloat("QUIZ_RETRIEVAL_THRESHOLD", 0.5),
			ContextChars:       getEnvAsInt("QUIZ_CONTEXT_CHARS", 800),
		},
		Retrieval: RetrievalConfig{
			MongoURI:         getEnv("QUIZ_MONGODB_URI", ""),
			MongoDatabase:    getEnv("QUIZ_MONGODB_DATABASE", "codequiz"),
			MongoCollection:  getEnv("QUIZ_MONGODB_COLLECTION", "reference_chunks"),
			MongoTimeout:     getEnvAsDuration("QUIZ_MONGODB_TIMEOUT", 10*time.Second),
			EmbeddingAPIKey:  getEnv("QUIZ_EMBEDDING_API_KEY", os.Getenv("OPENAI_API_KEY")),
			EmbeddingBaseURL: getEnv("QUIZ_EMBEDDING_BASE_URL", ""),
			EmbeddingModel:   getEnv("QUIZ_EMBEDDING_MODEL", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URI:      getEnv("QUIZ_RABBITMQ_URI", ""),
			Exchange: getEnv("QUIZ_RABBITMQ_EXCHANGE", "quiz.events"),
		},
		Consul: ConsulConfig{
			Address:        getEnv("QUIZ_CONSUL_ADDR", ""),
			ServiceName:    serviceName,
			ServiceID:      getEnv("QUIZ_SERVICE_ID", serviceName+"-"+hostname),
			ServiceAddress: getEnv("QUIZ_SERVICE_ADDRESS", hostname),
		},
		Reaper: ReaperConfig{
			SweepInterval:  getEnvAsDuration("QUIZ_SWEEP_INTERVAL", 15*time.Minute),
			ReportHour:     getEnvAsInt("QUIZ_REPORT_HOUR", 2),
			AuditRetention: getEnvAsDuration("QUIZ_AUDIT_RETENTION", 30*24*time.Hour),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		v, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			glog.Warningf("invalid int for %s: %v, using %d", key, err, defaultValue)
			return defaultValue
		}
		return v
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			glog.Warningf("invalid float for %s: %v, using %v", key, err, defaultValue)
			return defaultValue
		}
		return v
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			glog.Warningf("invalid duration for %s: %v, using %s", key, err, defaultValue)
			return defaultValue
		}
		return d
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
