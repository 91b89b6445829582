package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"newspulse/app/analysis"
	"newspulse/app/cfg"
	"newspulse/app/database"
	"newspulse/app/feed"
	"newspulse/app/topics"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	sources          []feed.Source
	feedRepo         database.FeedRepository
	articleRepo      database.ArticleRepository
	httpClient       *http.Client
	parser           *feed.Parser
	contentExtractor *feed.ContentExtractor
	analyzer         *analysis.Analyzer
	builder          *topics.Builder
	userAgent        string
	interval         time.Duration
	fetchInterval    time.Duration
	analyzeInterval  time.Duration
	lookback         time.Duration
	analysisLimit    int
	lastPipelineAt   time.Time
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	taskQueue        chan TaskInterface
	workerCount      int
}

// NewScheduler wires the background worker pool. analyzer may be nil when
// no completion service is configured; the analysis and drift tasks are
// then skipped and topics are built by keyword clustering alone.
func NewScheduler(sources []feed.Source, feedRepo database.FeedRepository,
	articleRepo database.ArticleRepository, httpClient *http.Client, parser *feed.Parser,
	contentExtractor *feed.ContentExtractor, analyzer *analysis.Analyzer, builder *topics.Builder) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		sources:          sources,
		feedRepo:         feedRepo,
		articleRepo:      articleRepo,
		httpClient:       httpClient,
		parser:           parser,
		contentExtractor: contentExtractor,
		analyzer:         analyzer,
		builder:          builder,
		userAgent:        cfg.UserAgent,
		interval:         time.Duration(cfg.SchedulerInterval) * time.Second,
		fetchInterval:    time.Duration(cfg.FetchInterval) * time.Second,
		analyzeInterval:  time.Duration(cfg.AnalyzeInterval) * time.Second,
		lookback:         time.Duration(cfg.LookbackHours) * time.Hour,
		analysisLimit:    cfg.AnalysisLimit,
		workerCount:      cfg.WorkerCount,
		ctx:              ctx,
		cancel:           cancel,
		taskQueue:        make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueFetchTasks(true)

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueFetchTasks(false)
				s.enqueuePipelineTasks()
			}
		}
	}()

}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueFetchTasks(startup bool) {
	if len(s.sources) == 0 {
		slog.Debug("No feed sources configured")
		return
	}

	for _, source := range s.sources {
		if !source.Enabled {
			slog.Debug("Source disabled, skipping", "feed", source.Name)
			continue
		}

		if !startup && !s.fetchDue(source) {
			continue
		}

		task := NewFetchFeedTask(source, s.httpClient, s.parser, s.feedRepo, s.articleRepo, s.userAgent)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue FetchFeedTask", "feed", source.Name, "error", err)
		}
	}
}

func (s *Scheduler) fetchDue(source feed.Source) bool {
	registered, err := s.feedRepo.GetFeed(source.Name)
	if err != nil {
		slog.Warn("Failed to get feed from database, skipping", "feed", source.Name, "error", err)
		return false
	}
	if registered == nil || registered.LastFetchedAt == nil {
		return true
	}
	return time.Since(*registered.LastFetchedAt) >= s.fetchInterval
}

// enqueuePipelineTasks schedules one extraction/analysis/topics cycle
// when the analyze interval has elapsed. The cycle runs as separate tasks
// so a slow completion call never blocks feed fetching.
func (s *Scheduler) enqueuePipelineTasks() {
	now := time.Now().UTC()
	if !s.lastPipelineAt.IsZero() && now.Sub(s.lastPipelineAt) < s.analyzeInterval {
		return
	}
	s.lastPipelineAt = now

	extractTask := NewExtractContentTask(s.httpClient, s.contentExtractor, s.articleRepo, s.lookback, s.analysisLimit, s.userAgent)
	if err := s.EnqueueTask(extractTask); err != nil {
		slog.Warn("Failed to enqueue ExtractContentTask", "error", err)
	}

	if s.analyzer != nil {
		driftTask := NewDetectDriftTask(s.analyzer)
		if err := s.EnqueueTask(driftTask); err != nil {
			slog.Warn("Failed to enqueue DetectDriftTask", "error", err)
		}

		analyzeTask := NewAnalyzeArticlesTask(s.analyzer, s.analysisLimit)
		if err := s.EnqueueTask(analyzeTask); err != nil {
			slog.Warn("Failed to enqueue AnalyzeArticlesTask", "error", err)
		}
	}

	topicsTask := NewCreateTopicsTask(s.builder, s.lookback, false)
	if err := s.EnqueueTask(topicsTask); err != nil {
		slog.Warn("Failed to enqueue CreateTopicsTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "name", task.GetName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
