package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/clause/internal/adapters/driven/llm/rewrite"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads rewriter prompts from user-editable files on disk,
// falling back to the built-in templates.
//
// The directory and default files are created lazily on the first Load.
// Loaded prompts are cached by file modification time, so edits take
// effect on the next query without restarting a long-running server.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]cachedPrompt
	initOnce  sync.Once
	initErr   error
}

type cachedPrompt struct {
	text    string
	modTime time.Time
}

var defaultPrompts = map[string]string{
	driven.PromptQueryRewrite: rewrite.DefaultPrompt,
}

const promptReadme = `# Clause Prompts

This directory holds the prompts used when rewriting contract queries.

## Files

- query_rewrite.txt: turns a user question into alternative search queries

## Placeholders

- %[1]d: the maximum number of queries to return
- %[2]s: the user's query

The rewriter accepts a JSON reply of the form {"queries": [...]} or one
query per line. Edits are picked up on the next query.
`

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.clause/prompts/.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		promptDir = filepath.Join(dir, "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]cachedPrompt),
	}, nil
}

// Load returns the prompt template for the given name.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)

	def, known := defaultPrompts[name]
	if s.initErr != nil {
		if known {
			return def, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	path := filepath.Join(s.promptDir, name+".txt")
	info, err := os.Stat(path)
	if err != nil {
		if known {
			return def, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok && cached.modTime.Equal(info.ModTime()) {
		return cached.text, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if known {
			return def, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}
	text := strings.TrimSpace(string(data))

	s.mu.Lock()
	s.cache[name] = cachedPrompt{text: text, modTime: info.ModTime()}
	s.mu.Unlock()

	return text, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]cachedPrompt)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	files := map[string]string{"README.md": promptReadme}
	for name, content := range defaultPrompts {
		files[name+".txt"] = content
	}
	for name, content := range files {
		if err := writeIfMissing(filepath.Join(s.promptDir, name), content); err != nil {
			s.initErr = fmt.Errorf("create default %q: %w", name, err)
			return
		}
	}
}

func writeIfMissing(path, content string) error {
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return os.WriteFile(path, []byte(content), 0600)
}
