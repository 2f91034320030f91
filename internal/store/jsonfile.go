package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/angelmondragon/pricewatch-backend/internal/tracker"
	pkgerrors "github.com/angelmondragon/pricewatch-backend/pkg/errors"
	"github.com/angelmondragon/pricewatch-backend/pkg/logger"
)

var errPathRequired = errors.New("json store path is required")

type fileDocument struct {
	Products []tracker.TrackedProduct `json:"products"`
}

// JSONFile keeps the tracked list in one indented JSON document. Writes go
// through a temp file plus rename so a crash never leaves a half-written
// list behind.
type JSONFile struct {
	path   string
	logger *logger.Logger

	mu sync.Mutex
}

func NewJSONFile(path string, logg *logger.Logger) (*JSONFile, error) {
	if path == "" {
		return nil, errPathRequired
	}
	return &JSONFile{path: path, logger: logg}, nil
}

// Load reads the tracked list. A missing file is an empty list, not an
// error; a file that exists but cannot be parsed is.
func (s *JSONFile) Load(ctx context.Context) ([]tracker.TrackedProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []tracker.TrackedProduct{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading tracked list")
	}

	var doc fileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "tracked list file is corrupt")
	}
	return doc.Products, nil
}

// Save replaces the whole document.
func (s *JSONFile) Save(ctx context.Context, products []tracker.TrackedProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating store directory")
		}
	}

	raw, err := json.MarshalIndent(fileDocument{Products: products}, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding tracked list")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing tracked list")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replacing tracked list")
	}
	return nil
}

func (s *JSONFile) Close() error {
	return nil
}
