package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/unicode/norm"

	"adrescue/internal/catalog"
)

func TestResolveExactMatchFirstVariant(t *testing.T) {
	candidates := []catalog.Candidate{
		{ID: "1", DisplayName: "老後は考えるな.mp4"},
		{ID: "2", DisplayName: "老後は考えるな_v2.mp4"},
	}

	res, ok := catalog.Resolve("老後は考えるな", candidates)
	if !ok {
		t.Fatal("expected a match")
	}
	if res.Candidate.ID != "1" {
		t.Fatalf("expected first candidate, got %q", res.Candidate.DisplayName)
	}
	if !res.Exact {
		t.Fatal("expected exact match")
	}
}

func TestResolveDecomposedFilename(t *testing.T) {
	// Catalog names arrive NFD-decomposed from some storage backends.
	candidates := []catalog.Candidate{
		{ID: "1", DisplayName: norm.NFD.String("ビジネスコンセプト.mp4")},
	}

	res, ok := catalog.Resolve("ビジネスコンセプト", candidates)
	if !ok {
		t.Fatal("expected decomposed name to match")
	}
	if !res.Exact {
		t.Fatal("expected exact match via decomposed variant")
	}
}

func TestResolveSpaceUnderscoreEquivalence(t *testing.T) {
	candidates := []catalog.Candidate{
		{ID: "1", DisplayName: "concept shoot01 intro.mp4"},
	}

	res, ok := catalog.Resolve("concept_shoot01_intro", candidates)
	if !ok {
		t.Fatal("expected space/underscore equivalent match")
	}
	if !res.Exact {
		t.Fatal("expected exact match")
	}
}

func TestResolveBelowThresholdIsNoMatch(t *testing.T) {
	candidates := []catalog.Candidate{
		{ID: "1", DisplayName: "X holds A only"},
	}

	if _, ok := catalog.Resolve("A B Q", candidates); ok {
		t.Fatal("expected no match below threshold")
	}
}

func TestResolveThresholdBoundary(t *testing.T) {
	// 7 of 10 words matched is exactly the threshold and must be accepted.
	candidates := []catalog.Candidate{
		{ID: "1", DisplayName: "w1 w2 w3 w4 w5 w6 w7"},
	}
	res, ok := catalog.Resolve("w1 w2 w3 w4 w5 w6 w7 x8 y9 z0", candidates)
	if !ok {
		t.Fatal("expected 0.7 score to match")
	}
	if res.Exact {
		t.Fatal("expected fuzzy match")
	}
	if res.Score < 0.699 || res.Score > 0.701 {
		t.Fatalf("unexpected score %v", res.Score)
	}

	// 2 of 3 words is strictly below the threshold.
	if _, ok := catalog.Resolve("w1 w2 q9", candidates); ok {
		t.Fatal("expected 2/3 score to be rejected")
	}
}

func TestResolveExactBeatsHigherFuzzyScore(t *testing.T) {
	candidates := []catalog.Candidate{
		{ID: "fuzzy", DisplayName: "concept final cut full words everywhere"},
		{ID: "exact", DisplayName: "concept.mp4"},
	}

	res, ok := catalog.Resolve("concept", candidates)
	if !ok {
		t.Fatal("expected a match")
	}
	if res.Candidate.ID != "exact" {
		t.Fatalf("exact match must win, got %q", res.Candidate.ID)
	}
}

func TestResolveFuzzyTieBreaksLexicographically(t *testing.T) {
	candidates := []catalog.Candidate{
		{ID: "b", DisplayName: "zz alpha beta gamma"},
		{ID: "a", DisplayName: "aa alpha beta gamma"},
	}

	res, ok := catalog.Resolve("alpha beta gamma", candidates)
	if !ok {
		t.Fatal("expected a match")
	}
	if res.Candidate.ID != "a" {
		t.Fatalf("expected lexicographic winner, got %q", res.Candidate.DisplayName)
	}
}

func TestDirectoryProviderListsVideosSorted(t *testing.T) {
	root := t.TempDir()
	projectDir := filepath.Join(root, "NB_CR")
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		t.Fatalf("mkdir project dir: %v", err)
	}
	for _, name := range []string{"b.mp4", "a.mov", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(projectDir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("seed file: %v", err)
		}
	}

	provider, err := catalog.NewDirectoryProvider(root, map[string]string{"NB": "NB_CR"})
	if err != nil {
		t.Fatalf("NewDirectoryProvider: %v", err)
	}

	candidates, err := provider.List(context.Background(), "NB")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 video candidates, got %d", len(candidates))
	}
	if candidates[0].DisplayName != "a.mov" || candidates[1].DisplayName != "b.mp4" {
		t.Fatalf("unexpected ordering: %v", candidates)
	}

	path, err := provider.Fetch(context.Background(), candidates[1])
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if filepath.Base(path) != "b.mp4" {
		t.Fatalf("unexpected fetched path %q", path)
	}
}

func TestDirectoryProviderMissingProjectFolder(t *testing.T) {
	provider, err := catalog.NewDirectoryProvider(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewDirectoryProvider: %v", err)
	}
	if _, err := provider.List(context.Background(), "QQ"); err == nil {
		t.Fatal("expected error for missing project folder")
	}
}
