package spool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sverdz/CSV-and-EXEL/internal/config"
)

func init() {
	Register("memory", func(ctx context.Context, cfg config.Spool) (Spool, error) {
		return NewMemory(), nil
	})
}

// Memory is an in-process spool. Useful for single-process runs on inputs
// that fit in RAM, and as the test double for the DB backends.
type Memory struct {
	mu      sync.Mutex
	sources []SourceInfo
	rows    map[string][][]string
}

func NewMemory() *Memory {
	return &Memory{rows: make(map[string][][]string)}
}

func (m *Memory) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = nil
	m.rows = make(map[string][][]string)
	return nil
}

func (m *Memory) AddSource(ctx context.Context, partition, source string, index int, header []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sources {
		if s.Source == source {
			return fmt.Errorf("spool: source %q already registered", source)
		}
	}
	h := make([]string, len(header))
	copy(h, header)
	m.sources = append(m.sources, SourceInfo{Partition: partition, Source: source, Index: index, Header: h})
	return nil
}

func (m *Memory) Append(ctx context.Context, source string, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[source]; !ok {
		found := false
		for _, s := range m.sources {
			if s.Source == source {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("spool: append to unregistered source %q", source)
		}
	}
	for _, r := range rows {
		c := make([]string, len(r))
		copy(c, r)
		m.rows[source] = append(m.rows[source], c)
	}
	return nil
}

func (m *Memory) RemoveSource(ctx context.Context, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.sources {
		if s.Source == source {
			m.sources = append(m.sources[:i], m.sources[i+1:]...)
			break
		}
	}
	delete(m.rows, source)
	return nil
}

func (m *Memory) Sources(ctx context.Context) ([]SourceInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SourceInfo, len(m.sources))
	copy(out, m.sources)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Partition != out[j].Partition {
			return out[i].Partition < out[j].Partition
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

func (m *Memory) Read(ctx context.Context, source string, fn func(fields []string) error) error {
	m.mu.Lock()
	rows := m.rows[source]
	m.mu.Unlock()
	for _, r := range rows {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) Close() error { return nil }
