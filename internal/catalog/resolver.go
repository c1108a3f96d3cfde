package catalog

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultExtension is the conventional extension appended to search variants.
const DefaultExtension = ".mp4"

// MatchThreshold is the minimum fuzzy word-match ratio accepted as a match.
// A candidate matching exactly 70% of the target words is accepted; anything
// strictly below is treated as no match.
const MatchThreshold = 0.7

// Candidate is an entry from the catalog of available source videos.
type Candidate struct {
	ID          string
	DisplayName string
	SizeBytes   int64
}

// Resolution describes how a candidate was selected.
type Resolution struct {
	Candidate Candidate
	Exact     bool
	Score     float64
}

// Resolve selects the single catalog candidate matching videoName.
// The second return is false when no candidate reaches the threshold;
// callers must treat that as an explicit no-match, never a guess.
//
// Exact matching runs first over an ordered variant list: the NFD-decomposed
// name with and without the conventional extension, then the raw name with
// and without it. Display names are compared with the extension stripped and
// with spaces and underscores treated as interchangeable. The first exact hit
// wins regardless of any higher-scoring fuzzy candidate.
//
// Ties in the fuzzy pass break lexicographically on display name so that
// resolution is deterministic for any catalog ordering.
func Resolve(videoName string, candidates []Candidate) (Resolution, bool) {
	if strings.TrimSpace(videoName) == "" || len(candidates) == 0 {
		return Resolution{}, false
	}

	for _, variant := range searchVariants(videoName) {
		for _, candidate := range candidates {
			if matchesExact(candidate.DisplayName, variant) {
				return Resolution{Candidate: candidate, Exact: true, Score: 1}, true
			}
		}
	}

	words := splitWords(videoName)
	if len(words) == 0 {
		return Resolution{}, false
	}

	best := Resolution{Score: -1}
	found := false
	for _, candidate := range candidates {
		score := wordScore(words, candidate.DisplayName)
		switch {
		case score > best.Score:
			best = Resolution{Candidate: candidate, Score: score}
			found = true
		case score == best.Score && found && candidate.DisplayName < best.Candidate.DisplayName:
			best.Candidate = candidate
		}
	}
	if !found || best.Score < MatchThreshold {
		return Resolution{}, false
	}
	return best, true
}

type variant struct {
	value      string
	decomposed bool
}

func searchVariants(videoName string) []variant {
	nfd := norm.NFD.String(videoName)
	return []variant{
		{value: nfd + DefaultExtension, decomposed: true},
		{value: nfd, decomposed: true},
		{value: videoName + DefaultExtension, decomposed: false},
		{value: videoName, decomposed: false},
	}
}

func matchesExact(displayName string, v variant) bool {
	name := displayName
	if v.decomposed {
		name = norm.NFD.String(name)
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	for _, target := range []string{name, stem} {
		if target == v.value {
			return true
		}
		if strings.ReplaceAll(target, " ", "_") == v.value {
			return true
		}
		if strings.ReplaceAll(target, "_", " ") == v.value {
			return true
		}
	}
	return false
}

func splitWords(videoName string) []string {
	lowered := strings.ToLower(videoName)
	raw := strings.FieldsFunc(lowered, func(r rune) bool {
		return r == '_' || r == ' ' || r == '\t'
	})
	words := make([]string, 0, len(raw))
	for _, w := range raw {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return words
}

func wordScore(words []string, displayName string) float64 {
	lowered := strings.ToLower(displayName)
	matched := 0
	for _, word := range words {
		if strings.Contains(lowered, word) {
			matched++
		}
	}
	return float64(matched) / float64(len(words))
}
