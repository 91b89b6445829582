package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestSetAndGet(t *testing.T) {
	original := globalCfg
	defer func() { globalCfg = original }()

	cfg := &Cfg{Port: "9090", LLMProvider: "anthropic"}
	Set(cfg)

	got := Get()
	if got != cfg {
		t.Error("Expected Get to return the configuration passed to Set")
	}
	if got.Port != "9090" {
		t.Errorf("Expected port '9090', got '%s'", got.Port)
	}
}

func TestGet_PanicsWhenUnloaded(t *testing.T) {
	original := globalCfg
	defer func() { globalCfg = original }()

	globalCfg = nil

	defer func() {
		if recover() == nil {
			t.Error("Expected Get to panic when configuration is not loaded")
		}
	}()
	Get()
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		Port:                "8080",
		FeedsDir:            "./feeds",
		UserAgent:           "Test Agent",
		WorkerCount:         5,
		SchedulerInterval:   30,
		FetchInterval:       1800,
		AnalyzeInterval:     900,
		APIAccessKey:        "test-key",
		LLMEnabled:          true,
		LLMProvider:         "anthropic",
		LookbackHours:       24,
		AnalysisBatchSize:   10,
		AnalysisLimit:       50,
		SimilarityThreshold: 0.25,
		MinGroupSize:        2,
		TopicMaxAgeHours:    48,
		TopStoriesLimit:     10,
		TopMaxPerCategory:   3,
		DBHost:              "localhost",
		DBPort:              "5432",
		DBUser:              "test_user",
		DBPassword:          "test_password",
		DBName:              "test_db",
		Timezone:            "UTC",
		Debug:               true,
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.FeedsDir != "./feeds" {
		t.Errorf("Expected feeds dir './feeds', got '%s'", cfg.FeedsDir)
	}
	if cfg.WorkerCount != 5 {
		t.Errorf("Expected worker count 5, got %d", cfg.WorkerCount)
	}
	if !cfg.LLMEnabled {
		t.Error("Expected LLM analysis to be enabled")
	}
	if cfg.LLMProvider != "anthropic" {
		t.Errorf("Expected provider 'anthropic', got '%s'", cfg.LLMProvider)
	}
	if cfg.SimilarityThreshold != 0.25 {
		t.Errorf("Expected similarity threshold 0.25, got %f", cfg.SimilarityThreshold)
	}
	if cfg.TopicMaxAgeHours != 48 {
		t.Errorf("Expected topic max age 48, got %d", cfg.TopicMaxAgeHours)
	}
	if cfg.TopMaxPerCategory != 3 {
		t.Errorf("Expected per-category cap 3, got %d", cfg.TopMaxPerCategory)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
}

func TestApplyTimezone(t *testing.T) {
	if err := applyTimezone("UTC"); err != nil {
		t.Errorf("Expected UTC to be valid, got: %v", err)
	}
	if err := applyTimezone("Not/AZone"); err == nil {
		t.Error("Expected error for invalid timezone")
	}
}
