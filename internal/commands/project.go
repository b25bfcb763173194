package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/tally/internal/categories"
	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/gitops"
	"github.com/cleared-dev/tally/internal/logger"
	"github.com/cleared-dev/tally/internal/store/sqlite"
)

// project is an opened tally project directory.
type project struct {
	root string
	cfg  *config.Config
	loc  *time.Location
	log  zerolog.Logger
}

func openProject(repoDir string) (*project, error) {
	root, err := filepath.Abs(repoDir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.LoadProject(root)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, fmt.Errorf("configuring logger: %w", err)
	}
	log = log.With().Str("ledger", cfg.Ledger.Name).Logger()
	return &project{root: root, cfg: cfg, loc: loc, log: log}, nil
}

func (p *project) context(ctx context.Context) context.Context {
	return logger.WithContext(ctx, p.log)
}

func (p *project) openStore() (*sqlite.Store, error) {
	s, err := sqlite.Open(p.cfg.DBPath(p.root))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return s, nil
}

func (p *project) categories() (*categories.Service, error) {
	svc, err := categories.Load(p.root)
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}
	return svc, nil
}

// commit records the project's text files in git after a change. Projects
// without a repository, or with auto_commit off, are left alone.
func (p *project) commit(message string) error {
	if !p.cfg.Git.AutoCommit || !gitops.IsRepo(p.root) {
		return nil
	}
	hash, err := gitops.CommitAll(p.root, message, p.cfg.Git.AuthorName, p.cfg.Git.AuthorEmail)
	if err != nil {
		return fmt.Errorf("committing %q: %w", message, err)
	}
	if hash != "" {
		p.log.Debug().Str("commit", hash).Str("message", message).Msg("committed project changes")
	}
	return nil
}
