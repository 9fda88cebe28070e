// Package dedupe finds likely duplicates between an import batch and
// the cards already stored under a topic, and plans what a chosen merge
// resolution would produce. It never touches storage itself.
package dedupe

import (
	"regexp"
	"strings"

	"github.com/jlienhard/schoolhouse/internal/entities"
)

type Action string

const (
	ActionSkip     Action = "skip"
	ActionUpdate   Action = "update"
	ActionKeepBoth Action = "keep_both"
	ActionReplace  Action = "replace"
)

// DefaultThreshold is the similarity score at or above which a pair
// counts as a duplicate.
const DefaultThreshold = 0.85

// updateThreshold: near-identical matches suggest updating the existing
// card instead of skipping the import.
const updateThreshold = 0.95

// Match pairs an import card with its best-scoring existing duplicate.
type Match struct {
	ImportIndex     int                `json:"import_index"`
	ImportCard      entities.Flashcard `json:"import_card"`
	ExistingCardID  uint               `json:"existing_card_id"`
	SimilarityScore float64            `json:"similarity_score"`
	SuggestedAction Action             `json:"suggested_action"`
}

// Report summarizes a detection run over one import batch.
type Report struct {
	DuplicateCount int     `json:"duplicate_count"`
	UniqueCount    int     `json:"unique_count"`
	TotalImport    int     `json:"total_import"`
	Duplicates     []Match `json:"duplicates"`
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Detect scores every import card against every existing card's
// question text. Each import card matches at most one existing card:
// the highest score at or above the threshold, ties broken by lowest
// existing card ID. A non-positive threshold falls back to
// DefaultThreshold.
func Detect(importCards, existingCards []entities.Flashcard, threshold float64) Report {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	report := Report{TotalImport: len(importCards)}

	normalizedExisting := make([]string, len(existingCards))
	for i := range existingCards {
		normalizedExisting[i] = NormalizeText(existingCards[i].Question)
	}

	for i := range importCards {
		question := NormalizeText(importCards[i].Question)

		bestScore := 0.0
		bestID := uint(0)
		found := false
		for j := range existingCards {
			score := Similarity(question, normalizedExisting[j])
			if score < threshold {
				continue
			}
			if !found || score > bestScore || (score == bestScore && existingCards[j].ID < bestID) {
				found = true
				bestScore = score
				bestID = existingCards[j].ID
			}
		}

		if !found {
			report.UniqueCount++
			continue
		}

		action := ActionSkip
		if bestScore >= updateThreshold {
			action = ActionUpdate
		}
		report.Duplicates = append(report.Duplicates, Match{
			ImportIndex:     i,
			ImportCard:      importCards[i],
			ExistingCardID:  bestID,
			SimilarityScore: bestScore,
			SuggestedAction: action,
		})
		report.DuplicateCount++
	}

	return report
}

// NormalizeText case-folds and collapses whitespace so the comparison
// only sees content differences.
func NormalizeText(text string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), " ")
}

// Similarity is a normalized Levenshtein ratio over the two already
// normalized strings: 1.0 for identical text, 0.0 for fully disjoint
// text, deterministic for any input pair.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	distance := levenshtein([]rune(a), []rune(b))
	longer := len([]rune(a))
	if l := len([]rune(b)); l > longer {
		longer = l
	}
	return 1.0 - float64(distance)/float64(longer)
}

// levenshtein computes edit distance with a rolling two-row table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
