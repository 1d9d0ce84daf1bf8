package config

import (
	"log"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Messaging platform API (message search, message lookup, stamp list).
	TraqBaseURL string `env:"TRAQ_BASE_URL" envDefault:"https://q.trap.jp"`
	TraqToken   string `env:"TRAQ_BEARER_TOKEN"`

	// Stamp analytics API (per-stamp reaction records).
	TraqingBaseURL   string `env:"TRAQING_BASE_URL" envDefault:"https://traqing.cp20.dev"`
	TraqingAuthToken string `env:"TRAQ_AUTH_TOKEN"`

	// Generation service. API key is read by the OpenAI client itself from
	// OPENAI_API_KEY; only the proxy base URL is configured here.
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://llm-proxy.trap.jp/"`
	Model         string `env:"GEN_MODEL" envDefault:"gpt-4.1-nano"`
	MaxTokens     int64  `env:"GEN_MAX_TOKENS" envDefault:"2000"`

	// Retry policy for the generation client and the driver.
	MaxRetries       int `env:"GEN_MAX_RETRIES" envDefault:"5"`
	MaxFormatRetries int `env:"GEN_MAX_FORMAT_RETRIES" envDefault:"3"`

	// Evidence filter bounds (rune counts). The upper bound is configuration
	// because two deployments disagreed on it; 250 is the production value.
	EvidenceMinLen int `env:"EVIDENCE_MIN_LEN" envDefault:"10"`
	EvidenceMaxLen int `env:"EVIDENCE_MAX_LEN" envDefault:"250"`

	// Pipeline files and directories.
	StampsFile    string `env:"STAMPS_FILE" envDefault:"stamps.json"`
	BodyDir       string `env:"BODY_MESSAGES_DIR" envDefault:"traq"`
	ReactionDir   string `env:"REACTION_MESSAGES_DIR" envDefault:"traqing"`
	QueueFile     string `env:"QUEUE_FILE" envDefault:"llm_input.jsonl"`
	LedgerFile    string `env:"LEDGER_FILE" envDefault:"llm_output.jsonl"`
	RequestsFile  string `env:"BATCH_REQUESTS_FILE" envDefault:"requests.jsonl"`
	BatchInfoFile string `env:"BATCH_INFO_FILE" envDefault:"batch_info.json"`
	UsageFile     string `env:"TOKEN_USAGE_FILE" envDefault:"usage.json"`

	// Dataset export.
	ExportCreatorID string `env:"EXPORT_CREATOR_ID" envDefault:"3b261ff3-f940-4e2c-a626-27387b6dd71b"`
}

// Load reads an optional .env file and then parses configuration from the
// environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Fatalf("error loading env file '%s': %v", envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Printf("error loading .env, continuing with environment variables: %v", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
