package rules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/tally/internal/model"
)

// ErrRuleNotFound is returned when no rule has the requested ID.
var ErrRuleNotFound = errors.New("rule not found")

// document is the on-disk shape of automation-rules.yaml.
type document struct {
	Rules []model.AutomationRule `yaml:"rules"`
}

// File persists rules in a YAML file. List order is evaluation order.
type File struct {
	path  string
	mu    sync.Mutex
	newID func() string
}

// Path returns the location of automation-rules.yaml under a project root.
func Path(root string) string {
	return filepath.Join(root, "rules", "automation-rules.yaml")
}

// Open returns a File for the project at root. The file need not exist yet.
func Open(root string) *File {
	return &File{path: Path(root), newID: uuid.NewString}
}

// ListRules returns all rules in file order. A missing file has no rules.
func (f *File) ListRules() ([]model.AutomationRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

// SaveRule validates r and writes it. A rule with an empty ID is appended
// with a fresh ID; otherwise the rule with the same ID is replaced in place.
func (f *File) SaveRule(r model.AutomationRule) (model.AutomationRule, error) {
	if err := Validate(r); err != nil {
		return model.AutomationRule{}, fmt.Errorf("invalid rule: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	rules, err := f.read()
	if err != nil {
		return model.AutomationRule{}, err
	}
	if r.ID == "" {
		r.ID = f.newID()
		rules = append(rules, r)
	} else {
		i := indexOf(rules, r.ID)
		if i < 0 {
			return model.AutomationRule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, r.ID)
		}
		rules[i] = r
	}
	return r, f.write(rules)
}

// DeleteRule removes the rule with the given ID.
func (f *File) DeleteRule(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rules, err := f.read()
	if err != nil {
		return err
	}
	i := indexOf(rules, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	return f.write(append(rules[:i], rules[i+1:]...))
}

// ToggleRule flips the enabled flag and returns the updated rule.
func (f *File) ToggleRule(id string) (model.AutomationRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rules, err := f.read()
	if err != nil {
		return model.AutomationRule{}, err
	}
	i := indexOf(rules, id)
	if i < 0 {
		return model.AutomationRule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	rules[i].Enabled = !rules[i].Enabled
	return rules[i], f.write(rules)
}

// GetRule returns the rule with the given ID.
func (f *File) GetRule(id string) (model.AutomationRule, error) {
	rules, err := f.ListRules()
	if err != nil {
		return model.AutomationRule{}, err
	}
	i := indexOf(rules, id)
	if i < 0 {
		return model.AutomationRule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	return rules[i], nil
}

func (f *File) read() ([]model.AutomationRule, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	return doc.Rules, nil
}

func (f *File) write(rules []model.AutomationRule) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating rules dir: %w", err)
	}
	if rules == nil {
		rules = []model.AutomationRule{}
	}
	data, err := yaml.Marshal(document{Rules: rules})
	if err != nil {
		return fmt.Errorf("marshaling rules: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("writing rules: %w", err)
	}
	return nil
}

func indexOf(rules []model.AutomationRule, id string) int {
	for i, r := range rules {
		if r.ID == id {
			return i
		}
	}
	return -1
}
