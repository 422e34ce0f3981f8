package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ports "wealthpillar/internal/sheets"
)

// Store is an in-memory report sink for tests and local development.
type Store struct {
	mu      sync.Mutex
	reports []ports.PeriodReport
}

func New() *Store {
	return &Store{}
}

// AppendPeriodReport stores the report and returns a synthetic row reference.
func (s *Store) AppendPeriodReport(_ context.Context, r ports.PeriodReport) (string, error) {
	if r.PersonID == "" {
		return "", errors.New("missing person id")
	}
	if r.End.Before(r.Start.Time) {
		return "", errors.New("report window ends before it starts")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return fmt.Sprintf("mem:%d", len(s.reports)), nil
}

// Reports returns a copy of everything appended so far.
func (s *Store) Reports() []ports.PeriodReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.PeriodReport(nil), s.reports...)
}
