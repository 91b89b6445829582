package feed

import (
	"strings"
	"testing"
)

func TestContentExtractorRun(t *testing.T) {
	extractor := NewContentExtractor()

	htmlContent := `
	<!DOCTYPE html>
	<html>
	<head>
		<title>Budget Bill Passes</title>
	</head>
	<body>
		<header>
			<h1>Site Header</h1>
			<nav>Navigation</nav>
		</header>
		<main>
			<article>
				<h1>Budget Bill Passes Senate</h1>
				<p>The senate approved the budget measure after a late night session. Lawmakers from both parties negotiated over several provisions before the final vote was called.</p>
				<p>The bill now moves to the house, where leadership has signaled it will be taken up within the week. Analysts expect the measure to pass largely intact.</p>
				<p>Here is some more substantial reporting to ensure the extraction threshold is met. The budget includes funding for infrastructure, education, and disaster relief programs.</p>
			</article>
		</main>
		<aside>
			<div>Advertisement</div>
		</aside>
		<footer>
			<p>Copyright 2026</p>
		</footer>
	</body>
	</html>
	`

	result, err := extractor.Run([]byte(htmlContent))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(result, "approved the budget measure") {
		t.Errorf("Expected extracted content to contain article text")
	}

	// Output is plain text, not markup
	if strings.Contains(result, "<p>") || strings.Contains(result, "<article>") {
		t.Errorf("Expected markup stripped from extracted content")
	}

	if strings.Contains(result, "Advertisement") {
		t.Errorf("Expected extracted content to exclude sidebar")
	}
}

func TestContentExtractorRun_EmptyData(t *testing.T) {
	extractor := NewContentExtractor()

	result, err := extractor.Run(nil)
	if err == nil {
		t.Error("Expected error for empty data")
	}
	if result != "" {
		t.Errorf("Expected empty result, got %q", result)
	}
}

func TestContentExtractorRun_NoSubstantialContent(t *testing.T) {
	extractor := NewContentExtractor()

	htmlContent := `<html><body><nav><a href="/">Home</a></nav></body></html>`

	result, err := extractor.Run([]byte(htmlContent))

	// Extraction may fail or produce the navigation text; an error must
	// never come with content attached.
	if err != nil && result != "" {
		t.Errorf("Expected empty result when extraction fails, got %q", result)
	}
}
