package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/cleared-dev/tally/internal/id"
	"github.com/cleared-dev/tally/internal/model"
)

// Exporter writes monthly ledger files under exports/.
type Exporter struct {
	root string
}

// NewExporter creates an Exporter for the project at root.
func NewExporter(root string) *Exporter {
	return &Exporter{root: root}
}

// Export groups txns by month of OccurredAt and rewrites one
// exports/YYYY-MM.csv per month. It returns the written paths in month order.
func (e *Exporter) Export(txns []model.Transaction) ([]string, error) {
	byMonth := make(map[string][]model.Transaction)
	for _, txn := range txns {
		key := id.MonthKey(txn.OccurredAt)
		byMonth[key] = append(byMonth[key], txn)
	}

	keys := make([]string, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if err := os.MkdirAll(e.dir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating exports dir: %w", err)
	}

	var paths []string
	for _, key := range keys {
		path := e.monthPath(key)
		if err := writeFile(path, byMonth[key]); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ReadMonth reads a previously exported month. A missing file yields no rows.
func (e *Exporter) ReadMonth(year, month int) ([]model.Transaction, error) {
	path := e.monthPath(fmt.Sprintf("%04d-%02d", year, month))
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening export %s: %w", path, err)
	}
	defer f.Close()

	txns, err := ReadTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("reading export %s: %w", path, err)
	}
	return txns, nil
}

func (e *Exporter) dir() string {
	return filepath.Join(e.root, "exports")
}

func (e *Exporter) monthPath(key string) string {
	return filepath.Join(e.dir(), key+".csv")
}

func writeFile(path string, txns []model.Transaction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteTransactions(f, txns); err != nil {
		return fmt.Errorf("writing export %s: %w", path, err)
	}
	return nil
}
