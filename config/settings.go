package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Settings is the runtime configuration shared by the server, the CLI and the consumer.
type Settings struct {
	Port string `yaml:"port"`

	PexelsAPIKey   string   `yaml:"pexels_api_key"`
	FontCandidates []string `yaml:"fonts"`

	Voice       string `yaml:"voice"`
	EdgeTTSBin  string `yaml:"edge_tts_bin"`
	Concurrency int    `yaml:"concurrency"`

	WorkspaceDir string `yaml:"workspace_dir"`
	OutputDir    string `yaml:"output_dir"`

	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RunTTL        time.Duration `yaml:"run_ttl"`

	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
	KafkaGroupID string   `yaml:"kafka_group_id"`

	S3 S3Settings `yaml:"s3"`

	YouTubeServiceAccount string `yaml:"youtube_service_account"`
	YouTubePrivacy        string `yaml:"youtube_privacy"`

	CohereAPIKey string `yaml:"cohere_api_key"`
	CohereModel  string `yaml:"cohere_model"`
}

// S3Settings configures optional video publishing to S3.
type S3Settings struct {
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Profile      string `yaml:"profile"`
	Prefix       string `yaml:"prefix"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// Defaults returns settings with every value at its built-in default.
func Defaults() *Settings {
	return &Settings{
		Port:           "8080",
		FontCandidates: append([]string(nil), DefaultFontCandidates...),
		Voice:          DefaultVoice,
		EdgeTTSBin:     EdgeTTSBinary,
		Concurrency:    DefaultConcurrency,
		WorkspaceDir:   WorkspaceDir,
		OutputDir:      OutputDir,
		RunTTL:         RunStatusTTL,
		KafkaTopic:     "slide-renders",
		KafkaGroupID:   "slidestudio-renderer",
		YouTubePrivacy: YouTubePrivacyStatus,
		CohereModel:    "command-r-plus",
	}
}

// Load reads .env, the optional YAML config file and then environment overrides.
// SLIDESTUDIO_CONFIG selects the YAML file; a missing default file is not an error.
func Load() (*Settings, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	s := Defaults()

	path := GetEnvOrDefault("SLIDESTUDIO_CONFIG", ConfigFile)
	if err := s.loadFile(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || os.Getenv("SLIDESTUDIO_CONFIG") != "" {
			return nil, err
		}
	}

	s.applyEnv()
	s.normalize()
	return s, nil
}

func (s *Settings) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	log.Printf("Loaded config file %s", path)
	return nil
}

func (s *Settings) applyEnv() {
	s.Port = GetEnvOrDefault("PORT", s.Port)
	s.PexelsAPIKey = GetEnvOrDefault("PEXELS_API_KEY", s.PexelsAPIKey)
	if fonts := splitList(os.Getenv("SLIDESTUDIO_FONTS")); len(fonts) > 0 {
		s.FontCandidates = fonts
	}

	s.Voice = GetEnvOrDefault("NARRATION_VOICE", s.Voice)
	s.EdgeTTSBin = GetEnvOrDefault("EDGE_TTS_BIN", s.EdgeTTSBin)
	s.Concurrency = getEnvInt("RENDER_CONCURRENCY", s.Concurrency)

	s.WorkspaceDir = GetEnvOrDefault("WORKSPACE_DIR", s.WorkspaceDir)
	s.OutputDir = GetEnvOrDefault("OUTPUT_DIR", s.OutputDir)

	s.RedisAddr = GetEnvOrDefault("REDIS_ADDR", s.RedisAddr)
	s.RedisPassword = GetEnvOrDefault("REDIS_PASS", s.RedisPassword)
	s.RedisDB = getEnvInt("REDIS_DB", s.RedisDB)
	if secs := getEnvInt("RUN_TTL_SECONDS", 0); secs > 0 {
		s.RunTTL = time.Duration(secs) * time.Second
	}

	if brokers := splitList(os.Getenv("KAFKA_BOOTSTRAP_SERVERS")); len(brokers) > 0 {
		s.KafkaBrokers = brokers
	}
	s.KafkaTopic = GetEnvOrDefault("KAFKA_RENDER_TOPIC", s.KafkaTopic)
	s.KafkaGroupID = GetEnvOrDefault("KAFKA_GROUP_ID", s.KafkaGroupID)

	s.S3.Bucket = strings.TrimSpace(GetEnvOrDefault("S3_BUCKET", s.S3.Bucket))
	s.S3.Region = strings.TrimSpace(GetEnvOrDefault("S3_REGION", s.S3.Region))
	s.S3.Profile = strings.TrimSpace(GetEnvOrDefault("S3_PROFILE", s.S3.Profile))
	s.S3.Prefix = strings.TrimSpace(GetEnvOrDefault("S3_PREFIX", s.S3.Prefix))
	if v := os.Getenv("S3_USE_PATH_STYLE"); v != "" {
		s.S3.UsePathStyle = strings.EqualFold(strings.TrimSpace(v), "true")
	}

	s.YouTubeServiceAccount = GetEnvOrDefault("YOUTUBE_SERVICE_ACCOUNT", s.YouTubeServiceAccount)
	s.YouTubePrivacy = GetEnvOrDefault("YOUTUBE_PRIVACY", s.YouTubePrivacy)

	s.CohereAPIKey = GetEnvOrDefault("COHERE_API_KEY", s.CohereAPIKey)
	s.CohereModel = GetEnvOrDefault("COHERE_MODEL", s.CohereModel)
}

func (s *Settings) normalize() {
	if s.Concurrency < 1 {
		s.Concurrency = DefaultConcurrency
	}
	if len(s.FontCandidates) == 0 {
		s.FontCandidates = append([]string(nil), DefaultFontCandidates...)
	}
	if s.S3.Prefix != "" {
		s.S3.Prefix = strings.Trim(s.S3.Prefix, "/") + "/"
	}
	if s.RunTTL <= 0 {
		s.RunTTL = RunStatusTTL
	}
}

// GetEnvOrDefault returns the environment value for key, or def when unset or empty.
func GetEnvOrDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("⚠️  Ignoring invalid %s=%q: %v", key, v, err)
		return def
	}
	return n
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
