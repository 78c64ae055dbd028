package file

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
)

var _ driven.PromptStore = (*PromptStore)(nil)

//go:embed defaults/*.txt
var defaultFS embed.FS

const promptExt = ".txt"

// PromptStore serves prompt templates from a user-editable directory. The
// directory is seeded with the built-in prompts on first use; a missing,
// unreadable or blank file falls back to the built-in text.
type PromptStore struct {
	dir string

	mu     sync.Mutex
	seeded bool
	cache  map[string]string
}

// NewPromptStore creates a prompt store. An empty dir means
// ~/.parley/prompts. Nothing touches the disk until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".parley", "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// DefaultPrompt returns the built-in text for name.
func DefaultPrompt(name string) (string, bool) {
	data, err := defaultFS.ReadFile("defaults/" + name + promptExt)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// DefaultPromptNames lists the built-in prompts in name order.
func DefaultPromptNames() []string {
	entries, _ := fs.ReadDir(defaultFS, "defaults")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), promptExt))
	}
	sort.Strings(names)
	return names
}

// Load returns the template for name. Names without a file or a built-in
// default return domain.ErrNotFound.
func (s *PromptStore) Load(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seeded {
		// A failed seed is retried on the next Load; built-ins still serve.
		s.seeded = s.seed() == nil
	}
	if prompt, ok := s.cache[name]; ok {
		return prompt, nil
	}

	prompt, err := s.readFile(name)
	if err != nil || prompt == "" {
		def, ok := DefaultPrompt(name)
		if !ok {
			if err == nil {
				err = errors.New("file is empty")
			}
			return "", fmt.Errorf("load prompt %q: %w: %v", name, domain.ErrNotFound, err)
		}
		prompt = def
	}
	s.cache[name] = prompt
	return prompt, nil
}

// Reload forgets cached prompts so edited files are read again.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]string)
}

func (s *PromptStore) readFile(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid prompt name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name+promptExt))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// seed writes any built-in prompt missing from the directory, plus a README.
// Existing files are never overwritten.
func (s *PromptStore) seed() error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}

	files := map[string]string{"README.md": readme()}
	for _, name := range DefaultPromptNames() {
		files[name+promptExt], _ = DefaultPrompt(name)
	}

	for file, content := range files {
		path := filepath.Join(s.dir, file)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("create %s: %w", file, err)
		}
		_, werr := f.WriteString(content + "\n")
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return fmt.Errorf("write %s: %w", file, werr)
		}
	}
	return nil
}

func readme() string {
	var b strings.Builder
	b.WriteString("# Parley Prompts\n\n")
	b.WriteString("Each file below is the system prompt for one answer path. Edit a file to\n")
	b.WriteString("change how the assistant behaves; delete it to restore the built-in text.\n\n")
	for _, name := range DefaultPromptNames() {
		fmt.Fprintf(&b, "- `%s%s`\n", name, promptExt)
	}
	b.WriteString("\n`router_system.txt` takes one `%s` placeholder, replaced by the domain\n")
	b.WriteString("that SCRAPING may visit. The router must still answer with a JSON object\n")
	b.WriteString("of the form `{\"tool\": \"...\", \"urls\": [...]}`.\n")
	return b.String()
}
