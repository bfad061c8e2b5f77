package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Load reads a .env file if one exists. A missing file is not an error.
func Load() {
	_ = godotenv.Load()
}

// GetEnvOrDefault returns the environment value for key, or defaultVal when unset.
func GetEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// GetEnvIntOrDefault parses an integer environment value.
func GetEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

// GetEnvBoolOrDefault parses a boolean environment value.
func GetEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// Settings is the runtime configuration read from the environment
type Settings struct {
	OutputsDir   string
	ProposalsDir string

	PythonBin       string
	ModelScriptsDir string
	WhisperBin      string
	WhisperModel    string
	ReferenceMan    string
	ReferenceWoman  string

	LLMProvider  string
	OllamaHost   string
	OllamaModel  string
	CohereAPIKey string
	CohereModel  string

	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string
	ReportEmailTo string

	YouTubeCredentials string
	YouTubeToken       string

	S3Bucket       string
	S3Region       string
	S3Profile      string
	S3Prefix       string
	S3UsePathStyle bool
	S3Endpoint     string

	RedisAddr    string
	RedisPass    string
	InterruptKey string
	DraftedKey   string

	KafkaBrokers       []string
	KafkaRequestsTopic string
	KafkaGroupID       string

	Port string
}

// FromEnv builds Settings from the environment, applying defaults.
func FromEnv() Settings {
	return Settings{
		OutputsDir:   GetEnvOrDefault("OUTPUTS_DIR", OutputsDir),
		ProposalsDir: GetEnvOrDefault("PROPOSALS_DIR", ProposalsDir),

		PythonBin:       GetEnvOrDefault("PYTHON_BIN", "python3"),
		ModelScriptsDir: GetEnvOrDefault("MODEL_SCRIPTS_DIR", ModelScriptsDir),
		WhisperBin:      GetEnvOrDefault("WHISPER_BIN", "whisper-cli"),
		WhisperModel:    GetEnvOrDefault("WHISPER_MODEL", "models/ggml-large-v3.bin"),
		ReferenceMan:    GetEnvOrDefault("REFERENCE_AUDIO_MAN", "inputs/voices/man.wav"),
		ReferenceWoman:  GetEnvOrDefault("REFERENCE_AUDIO_WOMAN", "inputs/voices/woman.wav"),

		LLMProvider:  strings.ToLower(GetEnvOrDefault("LLM_PROVIDER", "")),
		OllamaHost:   GetEnvOrDefault("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:  GetEnvOrDefault("OLLAMA_MODEL", "qwen3:14b"),
		CohereAPIKey: os.Getenv("COHERE_API_KEY"),
		CohereModel:  GetEnvOrDefault("COHERE_MODEL", "command-a-03-2025"),

		SMTPHost:      GetEnvOrDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:      GetEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUser:      os.Getenv("SMTP_USER"),
		SMTPPass:      os.Getenv("SMTP_PASS"),
		ReportEmailTo: os.Getenv("REPORT_EMAIL_TO"),

		YouTubeCredentials: GetEnvOrDefault("YOUTUBE_CREDENTIALS", "client_secrets.json"),
		YouTubeToken:       GetEnvOrDefault("YOUTUBE_TOKEN", "youtube_token.json"),

		S3Bucket:       os.Getenv("S3_BUCKET"),
		S3Region:       GetEnvOrDefault("S3_REGION", "us-east-1"),
		S3Profile:      os.Getenv("S3_PROFILE"),
		S3Prefix:       GetEnvOrDefault("S3_PREFIX", "text2shorts"),
		S3UsePathStyle: GetEnvBoolOrDefault("S3_USE_PATH_STYLE", false),
		S3Endpoint:     os.Getenv("S3_ENDPOINT"),

		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RedisPass:    os.Getenv("REDIS_PASS"),
		InterruptKey: GetEnvOrDefault("INTERRUPT_KEY", "text2shorts:interrupt"),
		DraftedKey:   GetEnvOrDefault("DRAFTED_KEY", "text2shorts:drafted"),

		KafkaBrokers:       strings.Split(GetEnvOrDefault("KAFKA_BOOTSTRAP_SERVERS", "localhost:9092"), ","),
		KafkaRequestsTopic: GetEnvOrDefault("KAFKA_TOPIC_TOPIC_REQUESTS", "text2shorts-requests"),
		KafkaGroupID:       GetEnvOrDefault("KAFKA_CONSUMER_GROUP_ID", "text2shorts"),

		Port: GetEnvOrDefault("PORT", "8080"),
	}
}
