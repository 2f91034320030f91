package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
)

// Target names one scannable catalog section. Query is the section path
// ("saude/medicamentos") and Map the matching facet keys ("c,c").
type Target struct {
	Name  string `json:"name"`
	Query string `json:"query"`
	Map   string `json:"map"`
}

// Department is one scan-target file: a department slug plus its category,
// subcategory, and brand targets.
type Department struct {
	Slug          string   `json:"department_slug"`
	Categories    []Target `json:"categories"`
	Subcategories []Target `json:"subcategories"`
	Targets       []Target `json:"targets"`
}

// LoadTargets reads every department JSON file under dir and flattens the
// scan targets. Files that cannot be read or parsed are skipped; their
// problems come back combined alongside whatever loaded. A missing
// directory is not an error.
func LoadTargets(dir string) ([]Target, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading targets dir: %w", err)
	}

	var (
		targets []Target
		errs    error
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reading %s: %w", entry.Name(), err))
			continue
		}
		var dept Department
		if err := json.Unmarshal(raw, &dept); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("parsing %s: %w", entry.Name(), err))
			continue
		}
		if dept.Slug == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s: missing department_slug", entry.Name()))
			continue
		}
		targets = append(targets, dept.Categories...)
		targets = append(targets, dept.Subcategories...)
		targets = append(targets, dept.Targets...)
	}
	return targets, errs
}

// FindTarget returns the named target from the list.
func FindTarget(targets []Target, name string) (Target, bool) {
	for _, t := range targets {
		if t.Name == name {
			return t, true
		}
	}
	return Target{}, false
}
