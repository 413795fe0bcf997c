package formulary

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// seedFile is the top-level shape of a formulary seed document.
type seedFile struct {
	Medications []*Medication `yaml:"medications"`
}

// LoadFile reads a YAML seed file and stores every medication it
// contains. It returns the number of medications stored.
//
// The file shape is:
//
//	medications:
//	  - id: metformin-500-tab
//	    name: Metformin 500 mg tablet
//	    form: tablet
//	    ingredients:
//	      - name: metformin hydrochloride
//	        strength: {value: 500, unit: mg}
func LoadFile(ctx context.Context, store Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	for i, med := range seed.Medications {
		if med == nil {
			return 0, fmt.Errorf("seed file %s: medication %d is empty", path, i)
		}
		if err := store.Put(ctx, med); err != nil {
			return 0, fmt.Errorf("seed file %s: %w", path, err)
		}
	}
	return len(seed.Medications), nil
}

// LoadDir loads every .yaml/.yml seed file under a directory,
// recursively, in path order. Hidden files and directories are
// skipped. It returns the total number of medications stored.
func LoadDir(ctx context.Context, store Store, dir string) (int, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk seed directory %s: %w", dir, err)
	}
	sort.Strings(files)

	total := 0
	for _, path := range files {
		n, err := LoadFile(ctx, store, path)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
