package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"cvcoach/internal/errors"
)

// Prompt names that may be overridden by a file <name>.md in prompts.dir
const (
	PromptSystem      = "system"
	PromptDeepScan    = "deep_scan"
	PromptSummary     = "cv_summary"
	PromptATS         = "ats"
	PromptQuestion    = "question_rules"
	PromptRewrite     = "rewrite"
	PromptLinkedIn    = "linkedin"
	PromptCheckpoint  = "checkpoint"
	PromptCurrentRole = "current_role"
)

const promptFileExtension = ".md"

// PromptSource tells where a prompt text came from
type PromptSource struct {
	Name     string `json:"name"`
	Source   string `json:"source"` // "file" or "default"
	FilePath string `json:"filePath,omitempty"`
}

// PromptStore holds prompt overrides loaded from a directory. A nil store
// always returns the caller's default.
type PromptStore struct {
	mu      sync.RWMutex
	dir     string
	prompts map[string]string
	files   map[string]string
	logger  *errors.Logger
}

// NewPromptStore loads every *.md file in dir. An empty dir yields a store
// without overrides.
func NewPromptStore(dir string, logger *errors.Logger) (*PromptStore, error) {
	ps := &PromptStore{
		dir:     dir,
		prompts: make(map[string]string),
		files:   make(map[string]string),
		logger:  logger,
	}
	if dir == "" {
		return ps, nil
	}
	if err := ps.Reload(); err != nil {
		return nil, err
	}
	return ps, nil
}

// Dir returns the watched directory
func (ps *PromptStore) Dir() string {
	if ps == nil {
		return ""
	}
	return ps.dir
}

// Get returns the override for name, or fallback when none is loaded
func (ps *PromptStore) Get(name, fallback string) string {
	if ps == nil {
		return fallback
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	if content, ok := ps.prompts[name]; ok && content != "" {
		return content
	}
	return fallback
}

// Sources lists the loaded overrides sorted by name
func (ps *PromptStore) Sources() []PromptSource {
	if ps == nil {
		return nil
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	sources := make([]PromptSource, 0, len(ps.files))
	for name, path := range ps.files {
		sources = append(sources, PromptSource{Name: name, Source: "file", FilePath: path})
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })
	return sources
}

// Reload re-reads the override directory and swaps the loaded set atomically
func (ps *PromptStore) Reload() error {
	absDir, err := filepath.Abs(ps.dir)
	if err != nil {
		return fmt.Errorf("failed to resolve prompt directory '%s': %w", ps.dir, err)
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return fmt.Errorf("failed to read prompt directory '%s': %w", absDir, err)
	}

	prompts := make(map[string]string)
	files := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), promptFileExtension) {
			continue
		}
		path := filepath.Join(absDir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read prompt file '%s': %w", path, err)
		}
		text := strings.TrimSpace(string(content))
		if text == "" {
			if ps.logger != nil {
				ps.logger.Warn("Ignoring empty prompt file", "file", path)
			}
			continue
		}
		name := strings.TrimSuffix(entry.Name(), promptFileExtension)
		prompts[name] = text
		files[name] = path
	}

	ps.mu.Lock()
	ps.prompts = prompts
	ps.files = files
	ps.mu.Unlock()

	if ps.logger != nil {
		ps.logger.Info("Prompt overrides loaded", "directory", absDir, "count", len(prompts))
	}
	return nil
}
