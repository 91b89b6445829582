package topics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"newspulse/app/database"
)

const (
	weightImportance = 0.40
	weightRecency    = 0.30
	weightCoverage   = 0.20
	weightDiversity  = 0.10

	rankingCandidateLimit = 100
	topicSourceLimit      = 5

	routinePenaltyStep = 0.05
	routinePenaltyCap  = 0.30
)

// routineKeywords flag generic recurring coverage that should rank below
// genuinely newsworthy topics.
var routineKeywords = []string{
	"update", "report", "statement", "announces", "says",
	"weekly", "daily", "monthly", "quarterly", "annual",
	"routine", "regular", "scheduled", "expected",
}

// RankedTopic is a selected topic annotated with its final score and the
// names of the sources covering it.
type RankedTopic struct {
	database.Topic
	Score   float64
	Sources []string
}

// Ranker selects and orders topics for display under recency, coverage
// and category-diversity constraints.
type Ranker struct {
	topicRepo      database.TopicRepository
	limit          int
	maxPerCategory int
}

func NewRanker(topicRepo database.TopicRepository, limit, maxPerCategory int) *Ranker {
	if limit <= 0 {
		limit = 10
	}
	if maxPerCategory <= 0 {
		maxPerCategory = 3
	}
	return &Ranker{
		topicRepo:      topicRepo,
		limit:          limit,
		maxPerCategory: maxPerCategory,
	}
}

// Rank scores the most recently updated topics and selects up to the
// display cap, enforcing the per-category cap. Selection walks candidates
// by base score; each accepted topic's final score is recomputed against
// the diversity state at acceptance time, and the accepted set is
// re-sorted by final score.
func (r *Ranker) Rank() ([]RankedTopic, error) {
	candidates, err := r.topicRepo.GetRankingCandidates(rankingCandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load ranking candidates: %w", err)
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()

	maxArticleCount := 1
	for _, topic := range candidates {
		if topic.ArticleCount > maxArticleCount {
			maxArticleCount = topic.ArticleCount
		}
	}

	baseScores := make([]float64, len(candidates))
	for i, topic := range candidates {
		baseScores[i] = Score(topic, now, maxArticleCount, nil)
	}

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return baseScores[order[a]] > baseScores[order[b]]
	})

	var selected []RankedTopic
	categoryCounts := make(map[string]int)

	for _, idx := range order {
		if len(selected) >= r.limit {
			break
		}

		topic := candidates[idx]
		category := topicCategory(topic)

		if categoryCounts[category] >= r.maxPerCategory {
			continue
		}

		finalScore := Score(topic, now, maxArticleCount, categoryCounts)

		sources, err := r.topicRepo.GetTopicSources(topic.ID, topicSourceLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to load sources for topic %s: %w", topic.ID, err)
		}

		selected = append(selected, RankedTopic{
			Topic:   topic,
			Score:   math.Round(finalScore*1000) / 1000,
			Sources: sources,
		})
		categoryCounts[category]++
	}

	sort.SliceStable(selected, func(a, b int) bool {
		return selected[a].Score > selected[b].Score
	})

	return selected, nil
}

// Score computes the weighted ranking score for a topic. categoryCounts
// carries the diversity state of the selection pass so far; nil means an
// empty state.
func Score(topic database.Topic, now time.Time, maxArticleCount int, categoryCounts map[string]int) float64 {
	importance := topic.ImportanceScore
	if importance == 0 {
		importance = 0.5
	}

	recency := 0.0
	if !topic.UpdatedAt.IsZero() {
		// Clock skew can put updated_at in the future; treat it as now.
		hoursOld := math.Max(0.0, now.Sub(topic.UpdatedAt).Hours())
		if hoursOld <= 6 {
			recency = 1.0 - hoursOld/6.0
		} else {
			recency = math.Max(0.0, 0.5-hoursOld/48.0)
		}
	}

	coverage := math.Min(float64(topic.ArticleCount)/float64(maxArticleCount), 1.0)

	diversity := 1.0
	switch categoryCounts[topicCategory(topic)] {
	case 0:
	case 1:
		diversity = 0.5
	default:
		diversity = 0.0
	}

	score := weightImportance*importance +
		weightRecency*recency +
		weightCoverage*coverage +
		weightDiversity*diversity

	return score * (1.0 - routinePenalty(topic))
}

func routinePenalty(topic database.Topic) float64 {
	title := strings.ToLower(topic.Title)
	keywords := strings.ToLower(strings.Join(topic.Keywords, ","))

	penalty := 0.0
	for _, word := range routineKeywords {
		if strings.Contains(title, word) || strings.Contains(keywords, word) {
			penalty += routinePenaltyStep
		}
	}

	return math.Min(penalty, routinePenaltyCap)
}

func topicCategory(topic database.Topic) string {
	if topic.Category == "" {
		return "General"
	}
	return topic.Category
}
