package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Application configuration
	FeedsDir          string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	FetchInterval     int
	AnalyzeInterval   int
	APIAccessKey      string

	// Completion service configuration
	LLMEnabled      bool
	LLMProvider     string
	LLMModel        string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string

	// Pipeline configuration
	LookbackHours       int
	AnalysisBatchSize   int
	AnalysisLimit       int
	SimilarityThreshold float64
	MinGroupSize        int
	TopicMaxAgeHours    int

	// Ranking configuration
	TopStoriesLimit   int
	TopMaxPerCategory int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
