package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig describes the configuration of all binaries.
type AppConfig struct {
	AppEnv   string `envconfig:"APP_ENV" default:"dev"`
	Timezone string `envconfig:"TIMEZONE" default:"America/Chicago"`
	Port     int    `envconfig:"PORT" default:"8080"`

	Discord struct {
		Token      string   `envconfig:"DISCORD_TOKEN"`
		ChannelIDs []string `envconfig:"DISCORD_CHANNEL_IDS"`
	} `envconfig:""`

	Ledger struct {
		Backend         string        `envconfig:"LEDGER_BACKEND" default:"sheets"`
		SheetID         string        `envconfig:"PROGRESS_SHEET_ID"`
		SheetTab        string        `envconfig:"PROGRESS_SHEET_TAB" default:"Progress"`
		CredentialsFile string        `envconfig:"GOOGLE_CREDENTIALS_FILE"`
		WriteDelay      time.Duration `envconfig:"SYNC_WRITE_DELAY" default:"200ms"`
	} `envconfig:""`

	Plan struct {
		StartDate string `envconfig:"PLAN_START_DATE"`
		Length    int    `envconfig:"PLAN_LENGTH" default:"365"`
	} `envconfig:""`

	Schedule struct {
		DailyHour       int `envconfig:"DAILY_POST_HOUR" default:"5"`
		LeaderboardHour int `envconfig:"LEADERBOARD_POST_HOUR" default:"9"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Queues struct {
		Sync string `envconfig:"SYNC_QUEUE_KEY" default:"sync_jobs"`
	} `envconfig:""`

	OpenAI struct {
		APIKey  string        `envconfig:"OPENAI_API_KEY"`
		BaseURL string        `envconfig:"OPENAI_BASE_URL"`
		Model   string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
		Timeout time.Duration `envconfig:"OPENAI_TIMEOUT" default:"30s"`
	} `envconfig:""`

	GroupMe struct {
		BotID string `envconfig:"GROUPME_BOT_ID"`
	} `envconfig:""`
}

// Load reads the config from the environment.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	return cfg
}
