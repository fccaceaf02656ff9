package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sicko7947/walkflow"
)

// MemoryStore implements walkflow.SubmissionStore using in-memory storage
type MemoryStore struct {
	submissions map[string]*walkflow.Submission
	mu          sync.RWMutex
}

// NewMemoryStore creates a new in-memory submission store
func NewMemoryStore() walkflow.SubmissionStore {
	return &MemoryStore{
		submissions: make(map[string]*walkflow.Submission),
	}
}

// SaveSubmission stores a deep copy of sub
func (s *MemoryStore) SaveSubmission(ctx context.Context, sub *walkflow.Submission) error {
	if sub.ID == "" {
		return fmt.Errorf("submission ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.submissions[sub.ID]; exists {
		return fmt.Errorf("submission %s: %w", sub.ID, ErrAlreadyExists)
	}

	// Deep copy
	s.submissions[sub.ID] = sub.Clone()
	return nil
}

// GetSubmission returns a deep copy of the stored submission
func (s *MemoryStore) GetSubmission(ctx context.Context, id string) (*walkflow.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, exists := s.submissions[id]
	if !exists {
		return nil, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}

	return sub.Clone(), nil
}

// ListSubmissions returns matching submissions, newest first
func (s *MemoryStore) ListSubmissions(ctx context.Context, filter walkflow.SubmissionFilter) ([]*walkflow.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var submissions []*walkflow.Submission
	for _, sub := range s.submissions {
		// Apply filters
		if filter.WorkflowID != "" && sub.WorkflowID != filter.WorkflowID {
			continue
		}
		submissions = append(submissions, sub.Clone())
	}

	// ULIDs sort by creation time
	sort.Slice(submissions, func(i, j int) bool {
		return submissions[i].ID > submissions[j].ID
	})

	// Apply limit
	if filter.Limit > 0 && len(submissions) > filter.Limit {
		submissions = submissions[:filter.Limit]
	}

	return submissions, nil
}
