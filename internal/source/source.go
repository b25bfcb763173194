// Package source reads exported carrier messages from a project's import/
// directory.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cleared-dev/tally/internal/model"
)

// Parser converts one export file into RawMessages.
type Parser interface {
	Parse(r io.Reader) ([]model.RawMessage, error)
	// Ext is the lower-case file extension the parser handles, e.g. ".csv".
	Ext() string
}

// Registry maps file extensions to parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes an export file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
	// Processed is set for files already moved to import/processed/.
	Processed bool
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate extension.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Ext())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser extension: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for a file name, or nil.
func (r *Registry) Get(name string) Parser {
	return r.parsers[strings.ToLower(filepath.Ext(name))]
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&CSVParser{})
	r.Register(&BackupParser{})
	return r
}

const importDir = "import"

const processedDir = "import/processed"

// Scan returns files in <root>/import/ that reg can parse.
func Scan(root string, reg *Registry) ([]FileInfo, error) {
	return scanDir(filepath.Join(root, importDir), reg, false)
}

// ScanProcessed returns files in <root>/import/processed/ that reg can parse.
func ScanProcessed(root string, reg *Registry) ([]FileInfo, error) {
	return scanDir(filepath.Join(root, processedDir), reg, true)
}

func scanDir(dir string, reg *Registry, processed bool) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || reg.Get(e.Name()) == nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name:      e.Name(),
			Path:      filepath.Join(dir, e.Name()),
			Size:      info.Size(),
			Processed: processed,
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(root, fileName string) error {
	src := filepath.Join(root, importDir, fileName)
	dstDir := filepath.Join(root, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

// Dir is a message source over a project's import directory.
type Dir struct {
	root      string
	reg       *Registry
	processed bool
}

// DirOption configures a Dir.
type DirOption func(*Dir)

// IncludeProcessed makes the Dir also read files already moved to
// import/processed/.
func IncludeProcessed() DirOption {
	return func(d *Dir) { d.processed = true }
}

// NewDir creates a Dir using the default parsers.
func NewDir(root string, opts ...DirOption) *Dir {
	d := &Dir{root: root, reg: DefaultRegistry()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Files lists the export files ListMessages would read, pending files first.
func (d *Dir) Files() ([]FileInfo, error) {
	files, err := Scan(d.root, d.reg)
	if err != nil || !d.processed {
		return files, err
	}
	done, err := ScanProcessed(d.root, d.reg)
	if err != nil {
		return nil, err
	}
	return append(files, done...), nil
}

// ListMessages reads every export file and returns messages received after
// since (all of them when since is zero), oldest first. Messages with the
// same ExternalID in several files are returned once.
func (d *Dir) ListMessages(ctx context.Context, since time.Time) ([]model.RawMessage, error) {
	files, err := d.Files()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var msgs []model.RawMessage
	for _, fi := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, err := d.readFile(fi)
		if err != nil {
			return nil, err
		}
		for _, m := range batch {
			if seen[m.ExternalID] || (!since.IsZero() && !m.Timestamp.After(since)) {
				continue
			}
			seen[m.ExternalID] = true
			msgs = append(msgs, m)
		}
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
			return msgs[i].Timestamp.Before(msgs[j].Timestamp)
		}
		return msgs[i].ExternalID < msgs[j].ExternalID
	})
	return msgs, nil
}

func (d *Dir) readFile(fi FileInfo) ([]model.RawMessage, error) {
	f, err := os.Open(fi.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", fi.Name, err)
	}
	defer f.Close()

	msgs, err := d.reg.Get(fi.Name).Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", fi.Name, err)
	}
	return msgs, nil
}
