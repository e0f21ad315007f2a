// Package store holds the measurement and profile stores used by the CLI.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/cornelk/hashmap"
	"github.com/google/uuid"
	"github.com/mlsorensen/gobodyscale"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when updating a measurement that was never inserted.
var ErrNotFound = errors.New("measurement not found")

// Memory keeps measurements in memory, indexed by ID.
type Memory struct {
	records *hashmap.Map[string, gobodyscale.Measurement]

	mu       sync.Mutex
	latestID string
}

var _ gobodyscale.MeasurementStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		records: hashmap.New[string, gobodyscale.Measurement](),
	}
}

func (s *Memory) Latest(_ context.Context) (gobodyscale.Measurement, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latestID == "" {
		return gobodyscale.Measurement{}, false, nil
	}
	m, ok := s.records.Get(s.latestID)
	return m, ok, nil
}

func (s *Memory) Insert(_ context.Context, m *gobodyscale.Measurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = uuid.NewString()
	s.records.Set(m.ID, *m)
	s.latestID = m.ID
	return nil
}

func (s *Memory) Update(_ context.Context, m gobodyscale.Measurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records.Get(m.ID); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, m.ID)
	}
	s.records.Set(m.ID, m)
	return nil
}

// All returns every measurement, oldest first.
func (s *Memory) All() []gobodyscale.Measurement {
	out := make([]gobodyscale.Measurement, 0, s.records.Len())
	s.records.Range(func(_ string, m gobodyscale.Measurement) bool {
		out = append(out, m)
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// ExportYAML writes all measurements to w as a YAML list.
func (s *Memory) ExportYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s.All()); err != nil {
		return fmt.Errorf("encoding measurements: %w", err)
	}
	return enc.Close()
}
