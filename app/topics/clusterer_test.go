package topics

import (
	"testing"

	"newspulse/app/database"
)

func makeSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func TestSimilarity_EmptySets(t *testing.T) {
	if got := Similarity(makeSet(), makeSet("election")); got != 0.0 {
		t.Errorf("Expected 0.0 for empty set, got %f", got)
	}
	if got := Similarity(makeSet("election"), makeSet()); got != 0.0 {
		t.Errorf("Expected 0.0 for empty set, got %f", got)
	}
}

func TestSimilarity_Identity(t *testing.T) {
	set := makeSet("election", "senate", "vote")
	if got := Similarity(set, set); got != 1.0 {
		t.Errorf("Expected 1.0 for identical sets, got %f", got)
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	a := makeSet("election", "senate", "vote")
	b := makeSet("election", "vote", "bill")

	ab := Similarity(a, b)
	ba := Similarity(b, a)

	if ab != ba {
		t.Errorf("Expected symmetric similarity, got %f and %f", ab, ba)
	}
	if ab != 0.5 {
		t.Errorf("Expected 2/4 = 0.5, got %f", ab)
	}
}

func TestBuildClusters_GroupsRelatedArticles(t *testing.T) {
	articles := []database.Article{
		{ID: "1", Title: "Election senate vote"},
		{ID: "2", Title: "Election vote bill"},
		{ID: "3", Title: "Weather storm coast"},
	}

	clusters := BuildClusters(articles, 0.25)

	if len(clusters) != 2 {
		t.Fatalf("Expected 2 clusters, got %d", len(clusters))
	}

	if len(clusters[0].Articles) != 2 {
		t.Errorf("Expected first cluster to hold both politics articles, got %d", len(clusters[0].Articles))
	}
	if clusters[0].Articles[0].ID != "1" || clusters[0].Articles[1].ID != "2" {
		t.Errorf("Expected articles 1 and 2 in first cluster, got %s and %s",
			clusters[0].Articles[0].ID, clusters[0].Articles[1].ID)
	}

	if len(clusters[1].Articles) != 1 || clusters[1].Articles[0].ID != "3" {
		t.Errorf("Expected weather article alone in second cluster")
	}
}

func TestBuildClusters_EveryArticleInExactlyOneCluster(t *testing.T) {
	articles := []database.Article{
		{ID: "1", Title: "Election senate vote"},
		{ID: "2", Title: "Election vote bill"},
		{ID: "3", Title: "Weather storm coast"},
		{ID: "4", Title: "Quarterly earnings revenue"},
		{ID: "5", Title: "Earnings revenue profit"},
	}

	clusters := BuildClusters(articles, 0.25)

	seen := make(map[string]int)
	for _, cluster := range clusters {
		for _, article := range cluster.Articles {
			seen[article.ID]++
		}
	}

	if len(seen) != len(articles) {
		t.Errorf("Expected all %d articles clustered, got %d", len(articles), len(seen))
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("Article %s appears in %d clusters, expected exactly 1", id, count)
		}
	}
	if len(clusters) > len(articles) {
		t.Errorf("Cluster count %d exceeds article count %d", len(clusters), len(articles))
	}
}

func TestBuildClusters_HigherThresholdSeparates(t *testing.T) {
	articles := []database.Article{
		{ID: "1", Title: "Election senate vote"},
		{ID: "2", Title: "Election vote bill"},
	}

	clusters := BuildClusters(articles, 0.75)

	if len(clusters) != 2 {
		t.Errorf("Expected 2 clusters at threshold 0.75, got %d", len(clusters))
	}
}

func TestBuildClusters_ClusterKeywordsGrow(t *testing.T) {
	articles := []database.Article{
		{ID: "1", Title: "Election senate vote"},
		{ID: "2", Title: "Election vote bill"},
	}

	clusters := BuildClusters(articles, 0.25)

	if len(clusters) != 1 {
		t.Fatalf("Expected 1 cluster, got %d", len(clusters))
	}

	keywords := makeSet(clusters[0].Keywords...)
	for _, expected := range []string{"election", "senate", "vote", "bill"} {
		if _, ok := keywords[expected]; !ok {
			t.Errorf("Expected cluster keyword union to contain %q, got %v", expected, clusters[0].Keywords)
		}
	}
}

func TestBuildClusters_NoArticles(t *testing.T) {
	if clusters := BuildClusters(nil, 0.25); clusters != nil {
		t.Errorf("Expected nil for no articles, got %v", clusters)
	}
}
