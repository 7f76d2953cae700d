// internal/crawler/sink.go
package crawler

import (
	"fmt"
	"os"
	"sync"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// Sink accumulates extracted records in a JSON array on disk. The whole
// array is rewritten on every add, so the file is valid JSON at any point
// and a rerun picks up the records a crashed crawl already saved.
type Sink struct {
	path   string
	logger *zap.Logger

	mu      sync.Mutex
	records []Product
}

// NewSink opens path and loads any records a previous run left there. A
// missing file, or one that does not hold a JSON array, starts the sink
// empty.
func NewSink(path string, logger *zap.Logger) (*Sink, error) {
	s := &Sink{
		path:    path,
		logger:  logger.With(zap.String("component", "result_sink")),
		records: []Product{},
	}

	if b, err := os.ReadFile(path); err == nil {
		var prior []Product
		if err := json.Unmarshal(b, &prior); err == nil && prior != nil {
			s.records = prior
			s.logger.Info("Loaded results from a previous run.",
				zap.Int("count", len(prior)), zap.String("path", path))
			return s, nil
		}
		s.logger.Warn("Existing output file is not a JSON array, starting over.",
			zap.String("path", path))
	}

	if err := s.write(); err != nil {
		return nil, err
	}
	return s, nil
}

// Add appends one record and rewrites the file.
func (s *Sink) Add(p Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, p)
	return s.write()
}

// Len reports how many records the sink holds, loaded and new.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Path returns the file the sink writes to.
func (s *Sink) Path() string { return s.path }

func (s *Sink) write() error {
	b, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}
