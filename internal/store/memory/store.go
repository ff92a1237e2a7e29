// Package memory provides an in-memory instance store and step log for
// development and testing. It honors the same idempotent-commit contract as
// the Postgres store but does not survive a process restart.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sitepack/sitepack/internal/workflow"
)

// Store implements workflow.InstanceStore and workflow.StepLog.
type Store struct {
	mu        sync.RWMutex
	instances map[string]workflow.Instance
	steps     map[string]map[string][]byte
}

// NewStore constructs a Store.
func NewStore() *Store {
	return &Store{
		instances: make(map[string]workflow.Instance),
		steps:     make(map[string]map[string][]byte),
	}
}

// CreateInstance stores a new instance in queued status.
func (s *Store) CreateInstance(_ context.Context, inst workflow.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.instances[inst.ID]; exists {
		return errors.New("instance already exists")
	}
	s.instances[inst.ID] = inst
	return nil
}

// UpdateInstanceStatus updates status, error text, and download URL.
func (s *Store) UpdateInstanceStatus(
	_ context.Context,
	id string,
	status workflow.Status,
	errText string,
	downloadURL string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok {
		return workflow.ErrInstanceNotFound
	}
	inst.Status = status
	inst.ErrorText = errText
	if downloadURL != "" {
		inst.DownloadURL = downloadURL
	}
	now := time.Now().UTC()
	if status == workflow.StatusRunning && inst.Started == nil {
		inst.Started = pointerTime(now)
	}
	if status.IsTerminal() {
		inst.Finished = pointerTime(now)
	}
	s.instances[id] = inst
	return nil
}

// GetInstance fetches an instance by ID.
func (s *Store) GetInstance(_ context.Context, id string) (workflow.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[id]
	if !ok {
		return workflow.Instance{}, workflow.ErrInstanceNotFound
	}
	return inst, nil
}

// PutStepResult commits a step result. Re-committing an existing step is a
// no-op so a replayed step cannot rewrite history.
func (s *Store) PutStepResult(_ context.Context, instanceID, stepName string, result []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byStep, ok := s.steps[instanceID]
	if !ok {
		byStep = make(map[string][]byte)
		s.steps[instanceID] = byStep
	}
	if _, committed := byStep[stepName]; committed {
		return nil
	}
	byStep[stepName] = append([]byte(nil), result...)
	return nil
}

// GetStepResult returns a committed step result, if present.
func (s *Store) GetStepResult(_ context.Context, instanceID, stepName string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.steps[instanceID][stepName]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), result...), true, nil
}

func pointerTime(t time.Time) *time.Time {
	ts := t
	return &ts
}
