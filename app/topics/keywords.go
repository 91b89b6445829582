package topics

import (
	"regexp"
	"sort"
	"strings"
)

var (
	htmlTagRegexp     = regexp.MustCompile(`<[^>]+>`)
	punctuationRegexp = regexp.MustCompile(`[^\w\s]`)
)

// stopWords covers common functional English words plus news-wire bylines
// that carry no topical signal.
var stopWords = map[string]struct{}{}

func init() {
	words := []string{
		"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with",
		"by", "from", "as", "is", "was", "are", "were", "been", "be", "have", "has", "had",
		"do", "does", "did", "will", "would", "could", "should", "may", "might", "must",
		"shall", "can", "need", "dare", "ought", "used", "this", "that", "these", "those",
		"i", "you", "he", "she", "it", "we", "they", "what", "which", "who", "whom",
		"when", "where", "why", "how", "all", "each", "every", "both", "few", "more",
		"most", "other", "some", "such", "no", "nor", "not", "only", "own", "same", "so",
		"than", "too", "very", "just", "also", "now", "new", "said", "says", "say",
		"about", "after", "before", "between", "into", "through", "during", "above",
		"below", "up", "down", "out", "off", "over", "under", "again", "further", "then",
		"once", "here", "there", "any", "many", "much", "get", "got", "its", "his", "her",
		"their", "our", "your", "my", "me", "him", "us", "them", "being", "having",
		"while", "although", "though", "because", "since", "unless", "until", "if",
		"whether", "even", "still", "already", "yet", "ever", "never", "always",
		"often", "sometimes", "usually", "really", "actually", "probably", "perhaps",
		"maybe", "certainly", "definitely", "however", "therefore", "thus", "hence",
		"meanwhile", "moreover", "furthermore", "nevertheless", "nonetheless",
		"one", "two", "first", "last", "next", "previous", "former", "latter",
		"make", "made", "take", "took", "come", "came", "go", "went", "see", "saw",
		"know", "knew", "think", "thought", "find", "found", "give", "gave", "tell", "told",
		"ask", "asked", "use", "try", "tried", "leave", "left", "call", "called",
		"keep", "kept", "let", "begin", "began", "seem", "seemed", "help", "helped",
		"show", "showed", "hear", "heard", "play", "played", "run", "ran", "move", "moved",
		"live", "lived", "believe", "believed", "hold", "held", "bring", "brought",
		"happen", "happened", "write", "wrote", "provide", "provided", "sit", "sat",
		"stand", "stood", "lose", "lost", "pay", "paid", "meet", "met", "include", "included",
		"continue", "continued", "set", "learn", "learned", "change", "changed", "lead", "led",
		"understand", "understood", "watch", "watched", "follow", "followed", "stop", "stopped",
		"create", "created", "speak", "spoke", "read", "allow", "allowed", "add", "added",
		"spend", "spent", "grow", "grew", "open", "opened", "walk", "walked", "win", "won",
		"offer", "offered", "remember", "remembered", "love", "loved", "consider", "considered",
		"appear", "appeared", "buy", "bought", "wait", "waited", "serve", "served", "die", "died",
		"send", "sent", "expect", "expected", "build", "built", "stay", "stayed", "fall", "fell",
		"cut", "reach", "reached", "kill", "killed", "remain", "remained", "suggest", "suggested",
		"raise", "raised", "pass", "passed", "sell", "sold", "require", "required", "report", "reported",
		"decide", "decided", "pull", "pulled", "like", "liked", "bbc", "news", "reuters", "ap",
		"cnn", "nyt", "times", "post", "guardian", "abc", "nbc", "cbs", "fox",
	}
	for _, w := range words {
		stopWords[w] = struct{}{}
	}
}

// ExtractKeywords returns the most frequent meaningful tokens in text,
// most frequent first, ties broken by first appearance. Empty input
// yields an empty result.
func ExtractKeywords(text string, maxKeywords int) []string {
	if text == "" || maxKeywords <= 0 {
		return nil
	}

	text = strings.ToLower(text)
	text = htmlTagRegexp.ReplaceAllString(text, " ")
	text = punctuationRegexp.ReplaceAllString(text, " ")

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	order := 0

	for _, word := range strings.Fields(text) {
		if len(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		if _, seen := counts[word]; !seen {
			firstSeen[word] = order
			order++
		}
		counts[word]++
	}

	words := make([]string, 0, len(counts))
	for word := range counts {
		words = append(words, word)
	}

	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return firstSeen[words[i]] < firstSeen[words[j]]
	})

	if len(words) > maxKeywords {
		words = words[:maxKeywords]
	}

	return words
}
