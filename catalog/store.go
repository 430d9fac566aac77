package catalog

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-perfumes/pipeline"
)

// Store serves the catalog of a dataset file and reloads it whenever the file changes on
// disk, so a running scrape becomes visible at its next checkpoint.
type Store struct {
	path string

	mu      sync.Mutex
	modTime time.Time
	size    int64
	current *Catalog
}

// NewStore returns a store over the dataset at path. The file is read lazily.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Catalog returns the catalog for the file's current contents. A missing file is an
// empty catalog.
func (s *Store) Catalog() (*Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.current = New(nil)
			s.modTime, s.size = time.Time{}, 0
			return s.current, nil
		}
		return nil, fmt.Errorf("stat dataset: %w", err)
	}
	if s.current != nil && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return s.current, nil
	}

	dataset, err := pipeline.LoadDataset(s.path)
	if err != nil {
		return nil, err
	}
	s.current = New(dataset.Records())
	s.modTime, s.size = info.ModTime(), info.Size()
	return s.current, nil
}
