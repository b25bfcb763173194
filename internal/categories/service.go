package categories

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cleared-dev/tally/internal/model"
)

// Service provides in-memory lookup over the category chart.
type Service struct {
	cats []model.Category
	byID map[string]model.Category
}

// NewService creates a Service from a slice of categories.
func NewService(cats []model.Category) *Service {
	byID := make(map[string]model.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}
	return &Service{cats: cats, byID: byID}
}

// Path returns the location of categories.csv under a project root.
func Path(root string) string {
	return filepath.Join(root, "categories", "categories.csv")
}

// Load reads categories.csv from a project root and returns a Service.
func Load(root string) (*Service, error) {
	f, err := os.Open(Path(root))
	if err != nil {
		return nil, fmt.Errorf("opening categories: %w", err)
	}
	defer f.Close()

	cats, err := ReadCategories(f)
	if err != nil {
		return nil, fmt.Errorf("reading categories: %w", err)
	}
	return NewService(cats), nil
}

// All returns all categories in file order.
func (s *Service) All() []model.Category {
	return s.cats
}

// Get returns a category by ID.
func (s *Service) Get(id string) (model.Category, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// Exists reports whether a category ID exists.
func (s *Service) Exists(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// ByType returns all categories of the given type.
func (s *Service) ByType(typ model.CategoryType) []model.Category {
	var result []model.Category
	for _, c := range s.cats {
		if c.Type == typ {
			result = append(result, c)
		}
	}
	return result
}

// CheckTarget verifies that id names a category usable for the given
// direction: SENT transactions need an expense category and RECEIVED ones an
// income category.
func (s *Service) CheckTarget(id string, dir model.Direction) error {
	c, ok := s.Get(id)
	if !ok {
		return fmt.Errorf("unknown category %q", id)
	}
	want := model.CategoryTypeExpense
	if dir == model.DirectionReceived {
		want = model.CategoryTypeIncome
	}
	if c.Type != want {
		return fmt.Errorf("category %q is %s, %s transactions need %s", id, c.Type, dir, want)
	}
	return nil
}

// Save writes the chart to categories/categories.csv.
func (s *Service) Save(root string) error {
	path := Path(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating categories dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating categories file: %w", err)
	}
	defer f.Close()

	if err := WriteCategories(f, s.cats); err != nil {
		return fmt.Errorf("writing categories: %w", err)
	}
	return nil
}
