package topics

import (
	"newspulse/app/database"
)

const clusterKeywordsPerArticle = 15

// Cluster is a group of related articles with the union of their keyword
// sets, in the order keywords were first contributed.
type Cluster struct {
	Articles []database.Article
	Keywords []string
}

// Similarity computes the Jaccard index of two keyword sets. Either set
// being empty yields 0.
func Similarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	intersection := 0
	for word := range a {
		if _, ok := b[word]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}

// BuildClusters groups articles by keyword overlap in a single greedy
// pass. Articles must arrive ordered by published_at descending; each
// unclustered article seeds a cluster, then later articles join when
// their similarity to the growing cluster union meets the threshold.
// Every article ends up in exactly one cluster.
func BuildClusters(articles []database.Article, threshold float64) []Cluster {
	if len(articles) == 0 {
		return nil
	}

	keywordSets := make([]map[string]struct{}, len(articles))
	keywordLists := make([][]string, len(articles))
	for i, article := range articles {
		keywords := ExtractKeywords(article.Title+" "+article.Description, clusterKeywordsPerArticle)
		set := make(map[string]struct{}, len(keywords))
		for _, word := range keywords {
			set[word] = struct{}{}
		}
		keywordSets[i] = set
		keywordLists[i] = keywords
	}

	var clusters []Cluster
	clustered := make([]bool, len(articles))

	for i := range articles {
		if clustered[i] {
			continue
		}

		cluster := Cluster{Articles: []database.Article{articles[i]}}
		clusterSet := make(map[string]struct{}, len(keywordSets[i]))
		for _, word := range keywordLists[i] {
			clusterSet[word] = struct{}{}
			cluster.Keywords = append(cluster.Keywords, word)
		}
		clustered[i] = true

		for j := i + 1; j < len(articles); j++ {
			if clustered[j] {
				continue
			}

			if Similarity(clusterSet, keywordSets[j]) >= threshold {
				cluster.Articles = append(cluster.Articles, articles[j])
				for _, word := range keywordLists[j] {
					if _, ok := clusterSet[word]; !ok {
						clusterSet[word] = struct{}{}
						cluster.Keywords = append(cluster.Keywords, word)
					}
				}
				clustered[j] = true
			}
		}

		clusters = append(clusters, cluster)
	}

	return clusters
}
