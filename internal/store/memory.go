package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/rainfield/internal/rainfield"
)

var (
	// ErrNotFound is returned when no report is cached for the requested field.
	ErrNotFound = errors.New("no rain field cached")
)

// ReportHistory holds a time-ordered list of reports for one field resolution.
type ReportHistory struct {
	Reports []rainfield.Report
}

// MemoryStore is a concurrency-safe in-memory cache of recent reports.
type MemoryStore struct {
	mu sync.RWMutex

	// key: field key, value: history
	data map[string]*ReportHistory

	// retention configuration
	maxHistory int           // max number of reports per field
	maxAge     time.Duration // optional max age for reports

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*ReportHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveReport appends a new report for a field and enforces retention.
func (s *MemoryStore) SaveReport(params rainfield.FieldParams, report rainfield.Report) {
	key := params.Key()
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &ReportHistory{}
		s.data[key] = history
	}

	history.Reports = append(history.Reports, report)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Reports) > s.maxHistory {
		over := len(history.Reports) - s.maxHistory
		history.Reports = append([]rainfield.Report(nil), history.Reports[over:]...)
	}

	// Enforce retention by age. The newest report is always kept.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Reports)-1; i++ {
			if !history.Reports[i].GeneratedAt.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			history.Reports = append([]rainfield.Report(nil), history.Reports[i:]...)
		}
	}
}

// GetLatest returns the most recent report for a field.
func (s *MemoryStore) GetLatest(params rainfield.FieldParams) (rainfield.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[params.Key()]
	if !ok || len(history.Reports) == 0 {
		return rainfield.Report{}, ErrNotFound
	}
	return history.Reports[len(history.Reports)-1], nil
}

// GetRange returns all reports for a field generated between from and to (inclusive).
func (s *MemoryStore) GetRange(params rainfield.FieldParams, from, to time.Time) ([]rainfield.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[params.Key()]
	if !ok || len(history.Reports) == 0 {
		return nil, ErrNotFound
	}

	var result []rainfield.Report
	for _, r := range history.Reports {
		if !r.GeneratedAt.Before(from) && !r.GeneratedAt.After(to) {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}
