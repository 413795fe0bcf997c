package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"meridianrx/galen/pkg/guardrails"
)

// Source supplies rule sets to an evaluator.
type Source interface {
	// Load loads and validates all rule sets. It fails on the first
	// broken rule set: dose-safety rules must not silently vanish
	// because one file has a typo.
	Load(ctx context.Context) ([]*guardrails.RuleSet, error)
}

// FileSource loads rule sets from a YAML file or a directory of them.
type FileSource struct {
	path      string
	parser    *guardrails.Parser
	validator *guardrails.Validator
	logger    *slog.Logger
}

// NewFileSource creates a file-based rule source. The path may name a
// single file or a directory; directories are walked recursively for
// .yaml and .yml files, skipping hidden entries.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		path:      path,
		parser:    guardrails.NewParser(),
		validator: guardrails.NewValidator(),
		logger:    logger.With("component", "guardrail-source"),
	}
}

// WithMaxFileSize overrides the parser's rule file size limit.
func (s *FileSource) WithMaxFileSize(size int64) *FileSource {
	s.parser = s.parser.WithMaxFileSize(size)
	return s
}

// Load implements Source.
func (s *FileSource) Load(ctx context.Context) ([]*guardrails.RuleSet, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat rule path %q: %w", s.path, err)
	}

	paths := []string{s.path}
	if info.IsDir() {
		paths, err = s.ruleFiles()
		if err != nil {
			return nil, err
		}
	}

	sets := make([]*guardrails.RuleSet, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		set, err := s.loadFile(path)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}

	s.logger.Info("guardrail rule sets loaded",
		"path", s.path,
		"rule_sets", len(sets),
	)
	return sets, nil
}

// ruleFiles collects the rule files under the directory in a stable
// order.
func (s *FileSource) ruleFiles() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != s.path {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(d.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk rule directory %q: %w", s.path, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *FileSource) loadFile(path string) (*guardrails.RuleSet, error) {
	set, err := s.parser.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rule set %q: %w", path, err)
	}
	if err := s.validator.Validate(set); err != nil {
		return nil, fmt.Errorf("invalid rule set %q: %w", path, err)
	}

	s.logger.Debug("guardrail rule set loaded",
		"path", path,
		"name", set.Name,
		"rules", set.RuleCount(),
	)
	return set, nil
}
