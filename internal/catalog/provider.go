package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// videoExtensions are the file types eligible to satisfy an identifier.
var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".avi":  {},
	".mkv":  {},
	".webm": {},
}

// Provider lists and materializes source assets for a project.
type Provider interface {
	// List returns the candidate pool for a project tag, ordered by display name.
	List(ctx context.Context, projectTag string) ([]Candidate, error)
	// Fetch makes the candidate available as a local file and returns its path.
	Fetch(ctx context.Context, candidate Candidate) (string, error)
}

// DirectoryProvider serves candidates from per-project subdirectories under a
// catalog root. Folder overrides map a project tag to a differently named
// subdirectory (the source material keeps folders like "NB_CR").
type DirectoryProvider struct {
	root    string
	folders map[string]string
}

// NewDirectoryProvider constructs a directory-backed catalog provider.
func NewDirectoryProvider(root string, folders map[string]string) (*DirectoryProvider, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("catalog root required")
	}
	cloned := make(map[string]string, len(folders))
	for tag, dir := range folders {
		cloned[tag] = dir
	}
	return &DirectoryProvider{root: root, folders: cloned}, nil
}

func (p *DirectoryProvider) projectDir(projectTag string) string {
	if dir, ok := p.folders[projectTag]; ok && strings.TrimSpace(dir) != "" {
		return filepath.Join(p.root, dir)
	}
	return filepath.Join(p.root, projectTag)
}

// List implements Provider.
func (p *DirectoryProvider) List(ctx context.Context, projectTag string) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := p.projectDir(projectTag)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("catalog folder for project %q missing: %w", projectTag, err)
		}
		return nil, fmt.Errorf("read catalog folder: %w", err)
	}

	var candidates []Candidate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := videoExtensions[ext]; !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat catalog entry %q: %w", entry.Name(), err)
		}
		candidates = append(candidates, Candidate{
			ID:          filepath.Join(dir, entry.Name()),
			DisplayName: entry.Name(),
			SizeBytes:   info.Size(),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].DisplayName < candidates[j].DisplayName
	})
	return candidates, nil
}

// Fetch implements Provider. Directory candidates are already local files.
func (p *DirectoryProvider) Fetch(ctx context.Context, candidate Candidate) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	info, err := os.Stat(candidate.ID)
	if err != nil {
		return "", fmt.Errorf("fetch catalog asset %q: %w", candidate.DisplayName, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("catalog asset %q is a directory", candidate.ID)
	}
	return candidate.ID, nil
}
