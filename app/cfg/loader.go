package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"newspulse" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"newspulse" description:"Database password (required)" required:"true"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"newspulse" description:"Database name"`

	// Application configuration
	FeedsDir          string `long:"feeds-dir" env:"FEEDS_DIR" default:"./feeds" description:"Directory containing feed source definition files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers for pipeline tasks"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler tick interval in seconds"`
	FetchInterval     int    `long:"fetch-interval" env:"FETCH_INTERVAL" default:"1800" description:"Feed fetch interval in seconds"`
	AnalyzeInterval   int    `long:"analyze-interval" env:"ANALYZE_INTERVAL" default:"900" description:"Article analysis interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for trigger endpoints (optional)"`

	// Completion service configuration
	LLMEnabled      bool   `long:"llm-enabled" env:"LLM_ENABLED" description:"Enable completion-service analysis and grouping"`
	LLMProvider     string `long:"llm-provider" env:"LLM_PROVIDER" default:"anthropic" description:"Completion service provider (anthropic, openai, gemini)"`
	LLMModel        string `long:"llm-model" env:"LLM_MODEL" description:"Override the provider's default model"`
	AnthropicAPIKey string `long:"anthropic-api-key" env:"ANTHROPIC_API_KEY" description:"Anthropic API key"`
	OpenAIAPIKey    string `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key"`
	GoogleAPIKey    string `long:"google-api-key" env:"GOOGLE_API_KEY" description:"Google API key"`

	// Pipeline configuration
	LookbackHours       int     `long:"lookback-hours" env:"LOOKBACK_HOURS" default:"24" description:"Article lookback window for clustering in hours"`
	AnalysisBatchSize   int     `long:"analysis-batch-size" env:"ANALYSIS_BATCH_SIZE" default:"10" description:"Articles per completion-service analysis request"`
	AnalysisLimit       int     `long:"analysis-limit" env:"ANALYSIS_LIMIT" default:"50" description:"Maximum articles per analysis run"`
	SimilarityThreshold float64 `long:"similarity-threshold" env:"SIMILARITY_THRESHOLD" default:"0.25" description:"Jaccard similarity threshold for keyword clustering"`
	MinGroupSize        int     `long:"min-group-size" env:"MIN_GROUP_SIZE" default:"2" description:"Minimum articles required to form a semantic group"`
	TopicMaxAgeHours    int     `long:"topic-max-age-hours" env:"TOPIC_MAX_AGE_HOURS" default:"48" description:"Topics older than this are pruned before each grouping run"`

	// Ranking configuration
	TopStoriesLimit   int `long:"top-stories-limit" env:"TOP_STORIES_LIMIT" default:"10" description:"Hard cap on topics returned by the ranking endpoint"`
	TopMaxPerCategory int `long:"top-max-per-category" env:"TOP_MAX_PER_CATEGORY" default:"3" description:"Maximum ranked topics per category"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"NewsPulse/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBHost:              raw.DBHost,
		DBPort:              raw.DBPort,
		DBUser:              raw.DBUser,
		DBPassword:          raw.DBPassword,
		DBName:              raw.DBName,
		FeedsDir:            raw.FeedsDir,
		Port:                raw.Port,
		WorkerCount:         raw.WorkerCount,
		SchedulerInterval:   raw.SchedulerInterval,
		FetchInterval:       raw.FetchInterval,
		AnalyzeInterval:     raw.AnalyzeInterval,
		APIAccessKey:        raw.APIAccessKey,
		LLMEnabled:          raw.LLMEnabled,
		LLMProvider:         raw.LLMProvider,
		LLMModel:            raw.LLMModel,
		AnthropicAPIKey:     raw.AnthropicAPIKey,
		OpenAIAPIKey:        raw.OpenAIAPIKey,
		GoogleAPIKey:        raw.GoogleAPIKey,
		LookbackHours:       raw.LookbackHours,
		AnalysisBatchSize:   raw.AnalysisBatchSize,
		AnalysisLimit:       raw.AnalysisLimit,
		SimilarityThreshold: raw.SimilarityThreshold,
		MinGroupSize:        raw.MinGroupSize,
		TopicMaxAgeHours:    raw.TopicMaxAgeHours,
		TopStoriesLimit:     raw.TopStoriesLimit,
		TopMaxPerCategory:   raw.TopMaxPerCategory,
		UserAgent:           raw.UserAgent,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set replaces the global configuration. Intended for tests.
func Set(c *Cfg) {
	globalCfg = c
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
