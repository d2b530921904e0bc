package domain

import (
	"strings"
	"time"
)

// Weights and window for the similarity score. Team overlap dominates;
// recency proximity acts as a soft tie-break.
const (
	teamOverlapWeight = 0.7
	recencyWeight     = 0.3
	recencyWindow     = 30 * 24 * time.Hour
)

// Recommendation pairs a candidate video with its similarity to a source
// video and a short human-readable justification.
type Recommendation struct {
	Video           Video   `json:"video"`
	SimilarityScore float64 `json:"similarityScore"`
	Reason          string  `json:"reason"`
}

// normalizeTeams lower-cases and trims team names into a set, so comparison
// is order- and case-insensitive.
func normalizeTeams(teams []string) map[string]struct{} {
	set := make(map[string]struct{}, len(teams))
	for _, t := range teams {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

// TeamOverlap computes the Jaccard overlap of the two videos' team sets.
// Returns 0 when either set is empty.
func TeamOverlap(a, b *Video) float64 {
	setA := normalizeTeams(a.Teams)
	setB := normalizeTeams(b.Teams)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// RecencyFactor scores how close the two videos' creation times are, on a
// linear 30-day window: identical timestamps score 1, anything 30 or more
// days apart scores 0.
func RecencyFactor(a, b *Video) float64 {
	gap := a.CreatedAt.Sub(b.CreatedAt)
	if gap < 0 {
		gap = -gap
	}
	if gap >= recencyWindow {
		return 0
	}
	return 1 - float64(gap)/float64(recencyWindow)
}

// Similarity combines team overlap and recency proximity into a [0,1] score.
// Callers are expected to have already filtered candidates to the same sport.
func Similarity(a, b *Video) float64 {
	score := TeamOverlap(a, b)*teamOverlapWeight + RecencyFactor(a, b)*recencyWeight
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// SharedTeams returns the team names both videos have in common, preserving
// the candidate's casing and ordering.
func SharedTeams(source, candidate *Video) []string {
	sourceSet := normalizeTeams(source.Teams)
	var shared []string
	seen := make(map[string]struct{})
	for _, t := range candidate.Teams {
		key := strings.ToLower(strings.TrimSpace(t))
		if key == "" {
			continue
		}
		if _, ok := sourceSet[key]; !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		shared = append(shared, strings.TrimSpace(t))
	}
	return shared
}
