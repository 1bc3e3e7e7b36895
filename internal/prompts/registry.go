// Package prompts holds the named prompt templates used by the engine.
// Embedded defaults can be overridden by YAML files in a directory and by
// rows of the prompts table, in that order of precedence.
package prompts

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/nizami/nizami-backend/internal/repository"
)

// Prompt names
const (
	Router              = "router"
	LegalAdvice         = "legal_advice"
	CheckInputRelevance = "check_input_relevance"
	RephraseWithSummary = "rephrase_with_summary"
	RephraseWithHistory = "rephrase_with_history"
	TranslateQuestion   = "translate_question"
	TranslatePrevious   = "translate_previous"
	SummaryInitial      = "summary_initial"
	SummaryUpdate       = "summary_update"
	GibberishClassifier = "gibberish_classifier"
)

// ErrUnknownPrompt is returned for names with no template
var ErrUnknownPrompt = errors.New("unknown prompt")

//go:embed defaults.yaml
var defaultsYAML []byte

// Source records where the active value of a prompt came from
type Source string

const (
	SourceDefault  Source = "default"
	SourceFile     Source = "file"
	SourceDatabase Source = "database"
)

// Prompt is one named template
type Prompt struct {
	Name        string `yaml:"name" json:"name"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Value       string `yaml:"value" json:"value"`
	Source      Source `yaml:"-" json:"source"`
}

type promptFile struct {
	Prompts []Prompt `yaml:"prompts"`
}

// Vars are placeholder substitutions: {key} is replaced by the value
type Vars map[string]string

// Renderer renders a named prompt
type Renderer interface {
	Render(name string, vars Vars) (string, error)
}

// Registry resolves prompt names to templates
type Registry struct {
	mu        sync.RWMutex
	defaults  map[string]Prompt
	files     map[string]Prompt
	overrides map[string]Prompt
	dir       string
	logger    logrus.FieldLogger
}

// NewRegistry creates a registry seeded with the embedded defaults
func NewRegistry(logger logrus.FieldLogger) (*Registry, error) {
	defaults, err := parse(defaultsYAML, SourceDefault)
	if err != nil {
		return nil, fmt.Errorf("failed to parse default prompts: %w", err)
	}
	return &Registry{
		defaults:  defaults,
		files:     map[string]Prompt{},
		overrides: map[string]Prompt{},
		logger:    logger,
	}, nil
}

// LoadDir replaces the file overrides with the *.yaml and *.yml files of dir
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read prompts dir: %w", err)
	}

	files := map[string]Prompt{}
	for _, entry := range entries {
		if entry.IsDir() || !isPromptFile(entry.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		parsed, err := parse(data, SourceFile)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}
		for name, p := range parsed {
			files[name] = p
		}
	}

	r.mu.Lock()
	r.dir = dir
	r.files = files
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{"dir": dir, "count": len(files)}).Info("Loaded prompt files")
	return nil
}

// Refresh replaces the database overrides with the rows of repo
func (r *Registry) Refresh(ctx context.Context, repo repository.PromptRepository) error {
	rows, err := repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load prompt overrides: %w", err)
	}

	overrides := make(map[string]Prompt, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row.Value) == "" {
			continue
		}
		overrides[row.Name] = Prompt{
			Name:        row.Name,
			Title:       row.Title,
			Description: row.Description,
			Value:       row.Value,
			Source:      SourceDatabase,
		}
	}

	r.mu.Lock()
	r.overrides = overrides
	r.mu.Unlock()
	return nil
}

// Get returns the active template for name
func (r *Registry) Get(name string) (Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.overrides[name]; ok {
		return p, nil
	}
	if p, ok := r.files[name]; ok {
		return p, nil
	}
	if p, ok := r.defaults[name]; ok {
		return p, nil
	}
	return Prompt{}, fmt.Errorf("%w: %s", ErrUnknownPrompt, name)
}

// List returns every active prompt sorted by name
func (r *Registry) List() []Prompt {
	r.mu.RLock()
	names := make(map[string]struct{})
	for _, m := range []map[string]Prompt{r.defaults, r.files, r.overrides} {
		for name := range m {
			names[name] = struct{}{}
		}
	}
	r.mu.RUnlock()

	out := make([]Prompt, 0, len(names))
	for name := range names {
		if p, err := r.Get(name); err == nil {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Render returns the template for name with vars substituted. Braces that
// do not name a var are left untouched.
func (r *Registry) Render(name string, vars Vars) (string, error) {
	p, err := r.Get(name)
	if err != nil {
		return "", err
	}
	return Substitute(p.Value, vars), nil
}

// Substitute replaces {key} with vars[key]
func Substitute(template string, vars Vars) string {
	if len(vars) == 0 {
		return template
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(vars)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func parse(data []byte, source Source) (map[string]Prompt, error) {
	var file promptFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	out := make(map[string]Prompt, len(file.Prompts))
	for _, p := range file.Prompts {
		if p.Name == "" {
			return nil, errors.New("prompt without name")
		}
		p.Source = source
		out[p.Name] = p
	}
	return out, nil
}

func isPromptFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
