package topics

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"newspulse/app/database"
	"newspulse/app/llm"
)

const defaultTitle = "News Update"

const titleSystemPrompt = `You are a viral news editor crafting headlines that people can't help but click.

For TITLES:
- Hook readers with intrigue, surprise, or emotion
- Be specific and concrete, not vague
- Use active verbs and vivid language
- AVOID: "Breaking:", "Latest:", "Update:", "Report:", or any generic news-speak
- AVOID: Bland phrases like "announces", "reveals", "amid concerns"
- Good: "Tesla's Secret Factory Churns Out Robots at Midnight"
- Bad: "Tesla Announces New Robotics Manufacturing Facility"

Be factual but compelling. Make readers curious.`

const summarySystemPrompt = `You are a storyteller who makes news irresistible.

Write summaries that:
- Lead with the most surprising, interesting, or consequential fact
- Use conversational, accessible language (not dry news-speak)
- Create curiosity that makes readers want to click through
- Are 2-3 sentences max

AVOID: Starting with "In a recent development..." or "According to reports..."
GOOD: "A single AI chatbot just passed the bar exam in all 50 states—and it only took 4 hours."
BAD: "Recent developments in AI technology have shown promising results in legal applications."

Be accurate but engaging. Write like you're telling a friend about something wild you just read.`

var sentenceRegexp = regexp.MustCompile(`[.!?]+`)

// Titler produces topic titles and summaries, via the completion service
// when one is configured and deterministically otherwise.
type Titler struct {
	client llm.Client
}

// NewTitler builds a Titler. A nil client means every request takes the
// deterministic fallback path.
func NewTitler(client llm.Client) *Titler {
	return &Titler{client: client}
}

type titleSummary struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Generate returns a title and summary for a group of related articles.
// llmSummary is empty when the summary came from the extractive fallback.
// Completion-service failures degrade to the fallbacks, never to an error.
func (t *Titler) Generate(ctx context.Context, articles []database.Article) (title, summary, llmSummary string) {
	var generated titleSummary

	if t.client != nil {
		generated = t.generateWithLLM(ctx, articles)
	}

	title = generated.Title
	if title == "" {
		title = FallbackTitle(articles)
	}

	summary = generated.Summary
	if summary == "" {
		return title, FallbackSummary(articles), ""
	}

	return title, summary, summary
}

func (t *Titler) generateWithLLM(ctx context.Context, articles []database.Article) titleSummary {
	lines := make([]string, 0, 5)
	for _, article := range articles {
		if len(lines) == 5 {
			break
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", article.Title, truncateRunesafe(article.Description, 200)))
	}

	prompt := fmt.Sprintf(`Based on these related news articles, generate:
1. A catchy, engaging topic title (max 10 words) that hooks readers
2. A 2-sentence summary that leads with the most interesting fact

Articles:
%s

Respond in JSON format:
{"title": "Your Catchy Title Here", "summary": "Lead with the hook. Follow with key details."}`, strings.Join(lines, "\n"))

	var result titleSummary
	err := t.client.CompleteJSON(ctx, llm.Request{
		Prompt:    prompt,
		System:    titleSystemPrompt,
		MaxTokens: 200,
	}, &result)
	if err != nil {
		slog.Warn("Title generation failed, using fallback", "provider", t.client.Name(), "error", err)
		return titleSummary{}
	}

	return result
}

// Summarize asks the completion service for a standalone topic summary,
// used for semantically grouped topics. Falls back to the lead article's
// description or title.
func (t *Titler) Summarize(ctx context.Context, articles []database.Article, title string) string {
	if len(articles) == 0 {
		return ""
	}

	if t.client != nil {
		lines := make([]string, 0, 5)
		for _, article := range articles {
			if len(lines) == 5 {
				break
			}
			line := "- " + article.Title
			if article.Description != "" {
				line += ": " + truncateRunesafe(article.Description, 200)
			}
			lines = append(lines, line)
		}

		prompt := fmt.Sprintf(`Topic: %s

Articles:
%s

Write a 2-3 sentence summary that hooks readers immediately.
Lead with the most surprising or consequential fact. Make it conversational and compelling—like you're telling a friend about something fascinating you just discovered.`,
			title, strings.Join(lines, "\n"))

		summary, err := t.client.Complete(ctx, llm.Request{
			Prompt:    prompt,
			System:    summarySystemPrompt,
			MaxTokens: 300,
		})
		if err == nil {
			return strings.TrimSpace(summary)
		}
		slog.Warn("Summary generation failed, using fallback", "provider", t.client.Name(), "error", err)
	}

	if articles[0].Description != "" {
		return truncateRunesafe(articles[0].Description, 500)
	}
	return articles[0].Title
}

// FallbackTitle derives a topic title from the lead article's headline.
// Titles over 80 characters are cut at the first natural separator found
// in the opening 80 characters, else hard-truncated at a word boundary.
func FallbackTitle(articles []database.Article) string {
	if len(articles) == 0 {
		return defaultTitle
	}

	lead := strings.TrimSpace(articles[0].Title)
	if lead == "" {
		return defaultTitle
	}

	runes := []rune(lead)
	if len(runes) <= 80 {
		return lead
	}

	window := string(runes[:80])
	for _, sep := range []string{" - ", " | ", ": ", " — "} {
		if idx := strings.Index(window, sep); idx >= 0 {
			return window[:idx]
		}
	}

	cut := string(runes[:77])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}

// FallbackSummary builds an extractive summary: candidate sentences of
// 30 to 300 characters are collected from up to 5 articles, scored by
// overlap with the group's top keywords, and the best 3 are joined in
// ranked order.
func FallbackSummary(articles []database.Article) string {
	if len(articles) == 0 {
		return ""
	}

	var sentences []string
	for i, article := range articles {
		if i == 5 {
			break
		}
		text := article.Description
		if text == "" {
			text = article.Title
		}
		for _, sentence := range sentenceRegexp.Split(text, -1) {
			sentence = strings.TrimSpace(sentence)
			if n := len([]rune(sentence)); n > 30 && n < 300 {
				sentences = append(sentences, sentence)
			}
		}
	}

	if len(sentences) == 0 {
		return articles[0].Title
	}

	var combined strings.Builder
	for _, article := range articles {
		combined.WriteString(article.Title)
		combined.WriteString(" ")
		combined.WriteString(article.Description)
		combined.WriteString(" ")
	}

	keywords := make(map[string]struct{})
	for _, word := range ExtractKeywords(combined.String(), 20) {
		keywords[word] = struct{}{}
	}

	type scoredSentence struct {
		text  string
		score int
	}

	scored := make([]scoredSentence, len(sentences))
	for i, sentence := range sentences {
		seen := make(map[string]struct{})
		score := 0
		for _, word := range strings.Fields(strings.ToLower(sentence)) {
			if _, dup := seen[word]; dup {
				continue
			}
			seen[word] = struct{}{}
			if _, ok := keywords[word]; ok {
				score++
			}
		}
		scored[i] = scoredSentence{text: sentence, score: score}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	top := make([]string, 0, 3)
	for _, s := range scored {
		if len(top) == 3 {
			break
		}
		top = append(top, s.text)
	}

	return strings.Join(top, ". ") + "."
}
