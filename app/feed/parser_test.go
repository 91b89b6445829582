package feed

import (
	"testing"
	"time"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Wire Service</title>
    <link>https://example.com</link>
    <item>
      <guid>wire-001</guid>
      <title>Senate &lt;b&gt;approves&lt;/b&gt; budget bill</title>
      <link>https://example.com/budget</link>
      <description>&lt;p&gt;The measure passed after a late session.&lt;/p&gt;</description>
      <author>jane@example.com (Jane Doe)</author>
      <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
      <enclosure url="https://example.com/budget.jpg" type="image/jpeg" length="1024"/>
    </item>
    <item>
      <title>Storm approaches the coast</title>
      <link>https://example.com/storm</link>
      <description>Forecasters expect landfall tonight.</description>
    </item>
    <item>
      <title>No link item</title>
      <description>This entry cannot be stored.</description>
    </item>
  </channel>
</rss>`

func TestParserRun(t *testing.T) {
	parser := NewParser()

	articles, err := parser.Run([]byte(sampleRSS))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(articles) != 2 {
		t.Fatalf("Expected 2 articles (linkless item skipped), got %d", len(articles))
	}

	first := articles[0]
	if first.GUID != "wire-001" {
		t.Errorf("Expected explicit GUID, got %q", first.GUID)
	}
	if first.Title != "Senate approves budget bill" {
		t.Errorf("Expected sanitized title, got %q", first.Title)
	}
	if first.Description != "The measure passed after a late session." {
		t.Errorf("Expected sanitized description, got %q", first.Description)
	}
	if first.Author != "Jane Doe" {
		t.Errorf("Expected author name, got %q", first.Author)
	}
	if first.Thumbnail != "https://example.com/budget.jpg" {
		t.Errorf("Expected enclosure thumbnail, got %q", first.Thumbnail)
	}

	expectedTime := time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)
	if !first.PublishedAt.Equal(expectedTime) {
		t.Errorf("Expected published time %v, got %v", expectedTime, first.PublishedAt)
	}
}

func TestParserRun_GUIDFallsBackToLink(t *testing.T) {
	parser := NewParser()

	articles, err := parser.Run([]byte(sampleRSS))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	second := articles[1]
	if second.GUID != "https://example.com/storm" {
		t.Errorf("Expected link used as GUID, got %q", second.GUID)
	}
}

func TestParserRun_MissingDateDefaultsToNow(t *testing.T) {
	parser := NewParser()

	before := time.Now().UTC()
	articles, err := parser.Run([]byte(sampleRSS))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	after := time.Now().UTC()

	second := articles[1]
	if second.PublishedAt.Before(before) || second.PublishedAt.After(after) {
		t.Errorf("Expected fallback publish time near now, got %v", second.PublishedAt)
	}
}

func TestParserRun_InvalidDocument(t *testing.T) {
	parser := NewParser()

	if _, err := parser.Run([]byte("not a feed")); err == nil {
		t.Error("Expected error for unparseable document")
	}
}
